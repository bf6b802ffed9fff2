// Package addons builds chat-room add-ons: it receives install, uninstall,
// and event webhooks from the platform, keeps one OAuth2 credential set per
// installation, and dispatches typed events to registered handlers that can
// call back into the platform API.
package addons

import (
	"github.com/goliatone/go-chat-addons/client"
	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/events"
	"github.com/goliatone/go-chat-addons/hooks"
)

type Config = core.Config

type Credential = core.Credential

type CredentialStore = core.CredentialStore

type InstallPayload = core.InstallPayload

type Event = events.Event

type Handler = hooks.Handler

type HandlerID = hooks.HandlerID

type Category = hooks.Category

type Client = client.Client

const (
	Continue = hooks.Continue
	Stop     = hooks.Stop
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func Setup(cfg Config, opts ...Option) (*Manager, error) {
	return NewManager(cfg, opts...)
}
