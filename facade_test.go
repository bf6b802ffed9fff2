package addons

import (
	"context"
	"net/http"
	"testing"

	addonscommand "github.com/goliatone/go-chat-addons/command"
	"github.com/goliatone/go-chat-addons/core"
	gocmd "github.com/goliatone/go-command"
)

func TestNewFacade_RequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestNewFacade_WiresCommands(t *testing.T) {
	server := newCapabilityServer(t, http.StatusOK)
	manager, _ := newTestManager(t, server)

	facade, err := NewFacade(manager)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.Install == nil || commands.Uninstall == nil || commands.Event == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	if facade.Service() != addonscommand.LifecycleService(manager) {
		t.Fatalf("expected facade to expose the manager")
	}
}

func TestFacade_InstallCommandCollectsCredential(t *testing.T) {
	server := newCapabilityServer(t, http.StatusOK)
	manager, store := newTestManager(t, server)

	facade, err := NewFacade(manager)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.Credential]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().Install.Execute(ctx, addonscommand.InstallMessage{
		Payload: installPayload(server, "install-1", nil),
	}); err != nil {
		t.Fatalf("execute install: %v", err)
	}

	cred, ok := collector.Load()
	if !ok || cred.InstallationID != "install-1" {
		t.Fatalf("expected collected credential, got %+v (ok=%v)", cred, ok)
	}
	if store.Len() != 1 {
		t.Fatalf("expected credential to be persisted")
	}

	if err := facade.Commands().Uninstall.Execute(context.Background(), addonscommand.UninstallMessage{
		InstallationID: "install-1",
	}); err != nil {
		t.Fatalf("execute uninstall: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected credential to be removed")
	}
}

func TestFacade_EventCommandValidatesPayload(t *testing.T) {
	server := newCapabilityServer(t, http.StatusOK)
	manager, _ := newTestManager(t, server)

	facade, err := NewFacade(manager)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	if err := facade.Commands().Event.Execute(context.Background(), addonscommand.EventMessage{}); err == nil {
		t.Fatalf("expected empty event payload to be rejected")
	}
	if err := facade.Commands().Event.Execute(context.Background(), addonscommand.EventMessage{
		Payload: []byte(`{"event":"room_enter","oauth_client_id":"ghost","item":{}}`),
	}); err != nil {
		t.Fatalf("execute event: %v", err)
	}
}
