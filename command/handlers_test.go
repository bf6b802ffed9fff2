package command

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-chat-addons/core"
	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

type stubLifecycleService struct {
	installFn   func(context.Context, core.InstallPayload) (core.Credential, error)
	uninstallFn func(context.Context, string) error
	eventFn     func(context.Context, []byte) error
}

func (s stubLifecycleService) HandleInstall(ctx context.Context, payload core.InstallPayload) (core.Credential, error) {
	if s.installFn == nil {
		return core.Credential{}, nil
	}
	return s.installFn(ctx, payload)
}

func (s stubLifecycleService) HandleUninstall(ctx context.Context, installationID string) error {
	if s.uninstallFn == nil {
		return nil
	}
	return s.uninstallFn(ctx, installationID)
}

func (s stubLifecycleService) HandleEvent(ctx context.Context, raw []byte) error {
	if s.eventFn == nil {
		return nil
	}
	return s.eventFn(ctx, raw)
}

func TestInstallCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	svc := stubLifecycleService{
		installFn: func(_ context.Context, payload core.InstallPayload) (core.Credential, error) {
			called = true
			if payload.OAuthID != "oauth-1" {
				t.Fatalf("expected oauth-1, got %q", payload.OAuthID)
			}
			return core.Credential{InstallationID: payload.OAuthID}, nil
		},
	}

	collector := gocmd.NewResult[core.Credential]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewInstallCommand(svc).Execute(ctx, InstallMessage{Payload: core.InstallPayload{
		OAuthID:         "oauth-1",
		OAuthSecret:     "secret",
		CapabilitiesURL: "https://chat.test/capabilities",
	}})
	if err != nil {
		t.Fatalf("execute install: %v", err)
	}
	if !called {
		t.Fatalf("expected install service invocation")
	}
	cred, ok := collector.Load()
	if !ok || cred.InstallationID != "oauth-1" {
		t.Fatalf("expected stored credential, got %#v ok=%v", cred, ok)
	}
}

func TestUninstallAndEventCommands_Delegate(t *testing.T) {
	var uninstalled string
	var payload string
	svc := stubLifecycleService{
		uninstallFn: func(_ context.Context, id string) error {
			uninstalled = id
			return nil
		},
		eventFn: func(_ context.Context, raw []byte) error {
			payload = string(raw)
			return nil
		},
	}

	if err := NewUninstallCommand(svc).Execute(context.Background(), UninstallMessage{InstallationID: "oauth-1"}); err != nil {
		t.Fatalf("execute uninstall: %v", err)
	}
	if uninstalled != "oauth-1" {
		t.Fatalf("unexpected uninstall id %q", uninstalled)
	}

	if err := NewEventCommand(svc).Execute(context.Background(), EventMessage{Payload: []byte(`{"event":"room_enter"}`)}); err != nil {
		t.Fatalf("execute event: %v", err)
	}
	if payload != `{"event":"room_enter"}` {
		t.Fatalf("unexpected event payload %q", payload)
	}
}

func TestCommands_PropagateServiceErrors(t *testing.T) {
	boom := errors.New("handler failed")
	svc := stubLifecycleService{
		eventFn: func(context.Context, []byte) error { return boom },
	}
	err := NewEventCommand(svc).Execute(context.Background(), EventMessage{Payload: []byte(`{}`)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestInstallMessage_ValidateReturnsRichError(t *testing.T) {
	err := (InstallMessage{}).Validate()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.ErrorBadInput, rich.TextCode)
	}
}

func TestEventMessage_ValidateRejectsEmptyPayload(t *testing.T) {
	if err := (EventMessage{Payload: []byte("  ")}).Validate(); !core.HasTextCode(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *UninstallCommand
	err := cmd.Execute(context.Background(), UninstallMessage{InstallationID: "x"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal envelope, got %v", err)
	}
}
