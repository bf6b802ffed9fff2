package command

import (
	"context"

	"github.com/goliatone/go-chat-addons/core"
	gocmd "github.com/goliatone/go-command"
)

type LifecycleService interface {
	HandleInstall(ctx context.Context, payload core.InstallPayload) (core.Credential, error)
	HandleUninstall(ctx context.Context, installationID string) error
	HandleEvent(ctx context.Context, raw []byte) error
}

type InstallCommand struct {
	service LifecycleService
}

func NewInstallCommand(service LifecycleService) *InstallCommand {
	return &InstallCommand{service: service}
}

// Execute stores the persisted credential in the context result collector
// when one is present.
func (c *InstallCommand) Execute(ctx context.Context, msg InstallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: install service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	cred, err := c.service.HandleInstall(ctx, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, cred)
	return nil
}

type UninstallCommand struct {
	service LifecycleService
}

func NewUninstallCommand(service LifecycleService) *UninstallCommand {
	return &UninstallCommand{service: service}
}

func (c *UninstallCommand) Execute(ctx context.Context, msg UninstallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: uninstall service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.HandleUninstall(ctx, msg.InstallationID)
}

type EventCommand struct {
	service LifecycleService
}

func NewEventCommand(service LifecycleService) *EventCommand {
	return &EventCommand{service: service}
}

func (c *EventCommand) Execute(ctx context.Context, msg EventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: event service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.HandleEvent(ctx, msg.Payload)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
