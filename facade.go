package addons

import (
	"fmt"

	addonscommand "github.com/goliatone/go-chat-addons/command"
)

type Commands struct {
	Install   *addonscommand.InstallCommand
	Uninstall *addonscommand.UninstallCommand
	Event     *addonscommand.EventCommand
}

// Facade exposes the inbound entry points as go-command handlers.
type Facade struct {
	service  addonscommand.LifecycleService
	commands Commands
}

func NewFacade(service addonscommand.LifecycleService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("addons: facade service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			Install:   addonscommand.NewInstallCommand(service),
			Uninstall: addonscommand.NewUninstallCommand(service),
			Event:     addonscommand.NewEventCommand(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() addonscommand.LifecycleService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ addonscommand.LifecycleService = (*Manager)(nil)
