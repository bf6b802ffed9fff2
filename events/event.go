package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/goliatone/go-chat-addons/core"
)

type Event interface {
	Kind() Kind
	// Type is the raw discriminator as received.
	Type() string
	// InstallationID is the oauth client id the webhook is addressed to.
	InstallationID() string
	WebhookID() string
	Raw() map[string]any
	sealed()
}

type base struct {
	kind           Kind
	typ            string
	installationID string
	webhookID      string
	raw            map[string]any
}

func (b *base) Kind() Kind             { return b.kind }
func (b *base) Type() string           { return b.typ }
func (b *base) InstallationID() string { return b.installationID }
func (b *base) WebhookID() string      { return b.webhookID }
func (b *base) sealed()                {}

func (b *base) Raw() map[string]any {
	out := make(map[string]any, len(b.raw))
	for key, value := range b.raw {
		out[key] = value
	}
	return out
}

type Generic struct {
	base
}

// RoomMessaging covers room_message and room_notification.
type RoomMessaging struct {
	base
	message lazy[core.Message]
	room    lazy[core.Room]
}

func (e *RoomMessaging) Message() (core.Message, error) { return e.message.get() }
func (e *RoomMessaging) Room() (core.Room, error)       { return e.room.get() }

func (e *RoomMessaging) IsNotification() bool {
	return e.kind == KindRoomNotification
}

// RoomVisiting covers room_enter and room_exit.
type RoomVisiting struct {
	base
	sender lazy[core.User]
	room   lazy[core.Room]
}

func (e *RoomVisiting) Sender() (core.User, error) { return e.sender.get() }
func (e *RoomVisiting) Room() (core.Room, error)   { return e.room.get() }

func (e *RoomVisiting) IsEnter() bool {
	return e.kind == KindRoomEnter
}

type RoomTopicChange struct {
	base
	topic  lazy[string]
	sender lazy[core.User]
	room   lazy[core.Room]
}

func (e *RoomTopicChange) Topic() (string, error)     { return e.topic.get() }
func (e *RoomTopicChange) Sender() (core.User, error) { return e.sender.get() }
func (e *RoomTopicChange) Room() (core.Room, error)   { return e.room.get() }

// Lifecycle is delivered to install and uninstall handlers.
type Lifecycle struct {
	base
}

func NewLifecycle(kind Kind, installationID string) *Lifecycle {
	return &Lifecycle{base: base{
		kind:           kind,
		typ:            string(kind),
		installationID: installationID,
		raw: map[string]any{
			"event":           string(kind),
			"oauth_client_id": installationID,
		},
	}}
}

type lazy[T any] struct {
	once  sync.Once
	field string
	raw   json.RawMessage
	value T
	err   error
}

func newLazy[T any](field string, raw json.RawMessage) lazy[T] {
	return lazy[T]{field: field, raw: raw}
}

func (l *lazy[T]) get() (T, error) {
	l.once.Do(func() {
		trimmed := bytes.TrimSpace(l.raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			l.err = core.BadInput(fmt.Sprintf("events: item.%s is missing", l.field), map[string]any{"field": l.field})
			return
		}
		if err := json.Unmarshal(trimmed, &l.value); err != nil {
			l.err = core.WrapBadInput(err, fmt.Sprintf("events: decode item.%s", l.field), map[string]any{"field": l.field})
		}
	})
	return l.value, l.err
}

var (
	_ Event = (*Generic)(nil)
	_ Event = (*RoomMessaging)(nil)
	_ Event = (*RoomVisiting)(nil)
	_ Event = (*RoomTopicChange)(nil)
	_ Event = (*Lifecycle)(nil)
)
