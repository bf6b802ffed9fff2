package command

import (
	"bytes"
	"strings"

	"github.com/goliatone/go-chat-addons/core"
)

const (
	TypeInstall   = "addons.command.install"
	TypeUninstall = "addons.command.uninstall"
	TypeEvent     = "addons.command.event"
)

type InstallMessage struct {
	Payload core.InstallPayload
}

func (InstallMessage) Type() string { return TypeInstall }

func (m InstallMessage) Validate() error {
	if strings.TrimSpace(m.Payload.OAuthID) == "" {
		return commandValidationError("oauthId", "oauth id is required")
	}
	if strings.TrimSpace(m.Payload.OAuthSecret) == "" {
		return commandValidationError("oauthSecret", "oauth secret is required")
	}
	if strings.TrimSpace(m.Payload.CapabilitiesURL) == "" {
		return commandValidationError("capabilitiesUrl", "capabilities url is required")
	}
	return nil
}

type UninstallMessage struct {
	InstallationID string
}

func (UninstallMessage) Type() string { return TypeUninstall }

func (m UninstallMessage) Validate() error {
	if strings.TrimSpace(m.InstallationID) == "" {
		return commandValidationError("installation_id", "installation id is required")
	}
	return nil
}

// EventMessage carries the raw webhook body; classification happens in the
// handler so unknown event types still reach the generic hooks.
type EventMessage struct {
	Payload []byte
}

func (EventMessage) Type() string { return TypeEvent }

func (m EventMessage) Validate() error {
	if len(bytes.TrimSpace(m.Payload)) == 0 {
		return commandInvalidInputError("command: event payload is required")
	}
	return nil
}
