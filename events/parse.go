package events

import (
	"bytes"
	"encoding/json"

	"github.com/goliatone/go-chat-addons/core"
)

type envelope struct {
	Event         json.RawMessage `json:"event"`
	OAuthClientID json.RawMessage `json:"oauth_client_id"`
	WebhookID     json.RawMessage `json:"webhook_id"`
	Item          json.RawMessage `json:"item"`
}

type itemFields struct {
	Message json.RawMessage `json:"message"`
	Room    json.RawMessage `json:"room"`
	Sender  json.RawMessage `json:"sender"`
	Topic   json.RawMessage `json:"topic"`
}

// Parse classifies a webhook body. Only the envelope is decoded here; the
// nested item objects are decoded by the variant accessors.
func Parse(raw []byte) (Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, core.BadInput("events: payload is empty", nil)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, core.WrapBadInput(err, "events: payload is not a json object", nil)
	}
	rawMap, err := decodeRawMap(trimmed)
	if err != nil {
		return nil, core.WrapBadInput(err, "events: payload is not a json object", nil)
	}

	typ := core.ScalarString(env.Event)
	b := base{
		kind:           KindOf(typ),
		typ:            typ,
		installationID: core.ScalarString(env.OAuthClientID),
		webhookID:      core.ScalarString(env.WebhookID),
		raw:            rawMap,
	}

	var item itemFields
	if trimmedItem := bytes.TrimSpace(env.Item); len(trimmedItem) > 0 && trimmedItem[0] == '{' {
		if err := json.Unmarshal(trimmedItem, &item); err != nil {
			return nil, core.WrapBadInput(err, "events: item is malformed", map[string]any{"event": b.typ})
		}
	}

	switch b.kind {
	case KindRoomMessage, KindRoomNotification:
		return &RoomMessaging{
			base:    b,
			message: newLazy[core.Message]("message", item.Message),
			room:    newLazy[core.Room]("room", item.Room),
		}, nil
	case KindRoomEnter, KindRoomExit:
		return &RoomVisiting{
			base:   b,
			sender: newLazy[core.User]("sender", item.Sender),
			room:   newLazy[core.Room]("room", item.Room),
		}, nil
	case KindRoomTopicChange:
		return &RoomTopicChange{
			base:   b,
			topic:  newLazy[string]("topic", item.Topic),
			sender: newLazy[core.User]("sender", item.Sender),
			room:   newLazy[core.Room]("room", item.Room),
		}, nil
	default:
		return &Generic{base: b}, nil
	}
}

// FromMap classifies an already-decoded payload.
func FromMap(payload map[string]any) (Event, error) {
	if payload == nil {
		return nil, core.BadInput("events: payload is empty", nil)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, core.WrapBadInput(err, "events: payload is not encodable", nil)
	}
	return Parse(encoded)
}

func decodeRawMap(raw []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	out := map[string]any{}
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
