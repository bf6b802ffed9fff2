package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type UserKind string

const (
	// UserKindNotify is a named-only sender, such as an integration posting
	// notifications under a display name.
	UserKindNotify UserKind = "notify"
	UserKindPerson UserKind = "person"
)

// User is either a named-only notify sender or a full person. The shape is
// chosen when decoding: a bare JSON string yields a notify sender.
type User struct {
	Kind        UserKind
	ID          string
	MentionName string
	Name        string
}

func (u User) IsPerson() bool {
	return u.Kind == UserKindPerson
}

type userBody struct {
	ID          json.RawMessage `json:"id,omitempty"`
	MentionName string          `json:"mention_name,omitempty"`
	Name        string          `json:"name,omitempty"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*u = User{}
		return nil
	}
	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*u = User{Kind: UserKindNotify, Name: name}
		return nil
	}
	var body userBody
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return err
	}
	*u = User{
		Kind:        UserKindPerson,
		ID:          ScalarString(body.ID),
		MentionName: body.MentionName,
		Name:        body.Name,
	}
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	if u.Kind == UserKindNotify {
		return json.Marshal(u.Name)
	}
	var id json.RawMessage
	if u.ID != "" {
		encoded, err := json.Marshal(u.ID)
		if err != nil {
			return nil, err
		}
		id = encoded
	}
	return json.Marshal(userBody{ID: id, MentionName: u.MentionName, Name: u.Name})
}

type Room struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RoomDetail is only returned by the room detail API call; webhooks carry the
// plain Room shape.
type RoomDetail struct {
	Room
	Created           time.Time `json:"created"`
	LastActive        time.Time `json:"last_active"`
	Privacy           string    `json:"privacy"`
	IsArchived        bool      `json:"is_archived"`
	IsGuestAccessible bool      `json:"is_guest_accessible"`
	GuestAccessURL    string    `json:"guest_access_url"`
	Owner             User      `json:"owner"`
	Participants      []User    `json:"participants"`
	Topic             string    `json:"topic"`
	XMPPJID           string    `json:"xmpp_jid"`
}

func (r RoomDetail) IsPublic() bool {
	return r.Privacy == "public"
}

func (r RoomDetail) IsPrivate() bool {
	return r.Privacy == "private"
}

type Message struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Message  string    `json:"message"`
	Format   string    `json:"message_format"`
	Color    string    `json:"color"`
	From     User      `json:"from"`
	Mentions []User    `json:"mentions"`
}

// Page is the paginated collection envelope of list endpoints.
type Page[T any] struct {
	Items      []T `json:"items"`
	StartIndex int `json:"startIndex"`
	MaxResults int `json:"maxResults"`
}

type RoomPage = Page[Room]

type UserPage = Page[User]

// ScalarString renders a raw JSON scalar (string or number) as text.
func ScalarString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return ""
		}
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(string(trimmed))
}
