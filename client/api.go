package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-chat-addons/core"
)

// Notification posts a message as the add-on. RoomID is ignored for
// room-scoped installations.
type Notification struct {
	RoomID  string
	Message string
	// Format is "html" or "text".
	Format string
	Color  string
	Notify bool
	// From is the label shown next to the add-on name.
	From  string
	Extra map[string]any
}

func (n Notification) body() map[string]any {
	body := cloneBody(n.Extra)
	body["message"] = n.Message
	if format := strings.TrimSpace(n.Format); format != "" {
		body["message_format"] = format
	}
	if color := strings.TrimSpace(n.Color); color != "" {
		body["color"] = color
	}
	if n.Notify {
		body["notify"] = true
	}
	if from := strings.TrimSpace(n.From); from != "" {
		body["from"] = from
	}
	return body
}

type Reply struct {
	RoomID          string
	Message         string
	ParentMessageID string
	Extra           map[string]any
}

func (r Reply) body() map[string]any {
	body := cloneBody(r.Extra)
	body["message"] = r.Message
	if parent := strings.TrimSpace(r.ParentMessageID); parent != "" {
		body["parentMessageId"] = parent
	}
	return body
}

type ListRoomsQuery struct {
	StartIndex      int
	MaxResults      int
	IncludePrivate  bool
	IncludeArchived bool
	Extra           url.Values
}

func (q ListRoomsQuery) values() url.Values {
	values := cloneValues(q.Extra)
	if q.StartIndex > 0 {
		values.Set("start-index", strconv.Itoa(q.StartIndex))
	}
	if q.MaxResults > 0 {
		values.Set("max-results", strconv.Itoa(q.MaxResults))
	}
	if q.IncludePrivate {
		values.Set("include-private", "true")
	}
	if q.IncludeArchived {
		values.Set("include-archived", "true")
	}
	return values
}

// RoomQuery addresses a room read. RoomID is ignored for room-scoped
// installations.
type RoomQuery struct {
	RoomID string
	Query  url.Values
}

// MemberRequest identifies the user by id, mention name, or email, checked in
// that order.
type MemberRequest struct {
	RoomID      string
	UserID      string
	UserMention string
	UserEmail   string
	Extra       map[string]any
}

func (r MemberRequest) identity() (string, bool) {
	if id := strings.TrimSpace(r.UserID); id != "" {
		return id, true
	}
	if mention := strings.TrimPrefix(strings.TrimSpace(r.UserMention), "@"); mention != "" {
		return "@" + mention, true
	}
	if email := strings.TrimSpace(r.UserEmail); email != "" {
		return email, true
	}
	return "", false
}

func (c *Client) SendNotification(ctx context.Context, notification Notification) error {
	roomID, err := c.resolveRoomID(notification.RoomID)
	if err != nil {
		return err
	}
	return c.Call(ctx, http.MethodPost, roomPath(roomID, "notification"), nil, notification.body(), nil)
}

func (c *Client) ReplyMessage(ctx context.Context, reply Reply) error {
	roomID, err := c.resolveRoomID(reply.RoomID)
	if err != nil {
		return err
	}
	return c.Call(ctx, http.MethodPost, roomPath(roomID, "reply"), nil, reply.body(), nil)
}

func (c *Client) ListRooms(ctx context.Context, query ListRoomsQuery) (core.RoomPage, error) {
	var page core.RoomPage
	if err := c.Call(ctx, http.MethodGet, "room", query.values(), nil, &page); err != nil {
		return core.RoomPage{}, err
	}
	return page, nil
}

func (c *Client) GetRoom(ctx context.Context, query RoomQuery) (core.RoomDetail, error) {
	roomID, err := c.resolveRoomID(query.RoomID)
	if err != nil {
		return core.RoomDetail{}, err
	}
	var detail core.RoomDetail
	if err := c.Call(ctx, http.MethodGet, roomPath(roomID), cloneValues(query.Query), nil, &detail); err != nil {
		return core.RoomDetail{}, err
	}
	return detail, nil
}

func (c *Client) ListMembers(ctx context.Context, query RoomQuery) (core.UserPage, error) {
	return c.listUsers(ctx, query, "member")
}

func (c *Client) ListParticipants(ctx context.Context, query RoomQuery) (core.UserPage, error) {
	return c.listUsers(ctx, query, "participant")
}

func (c *Client) AddMember(ctx context.Context, request MemberRequest) error {
	return c.member(ctx, http.MethodPut, request)
}

func (c *Client) RemoveMember(ctx context.Context, request MemberRequest) error {
	return c.member(ctx, http.MethodDelete, request)
}

func (c *Client) listUsers(ctx context.Context, query RoomQuery, collection string) (core.UserPage, error) {
	roomID, err := c.resolveRoomID(query.RoomID)
	if err != nil {
		return core.UserPage{}, err
	}
	var page core.UserPage
	if err := c.Call(ctx, http.MethodGet, roomPath(roomID, collection), cloneValues(query.Query), nil, &page); err != nil {
		return core.UserPage{}, err
	}
	return page, nil
}

func (c *Client) member(ctx context.Context, method string, request MemberRequest) error {
	roomID, err := c.resolveRoomID(request.RoomID)
	if err != nil {
		return err
	}
	user, ok := request.identity()
	if !ok {
		return core.MissingUserIdentity(map[string]any{"installation_id": c.cred.InstallationID})
	}
	return c.Call(ctx, method, roomPath(roomID, "member", user), nil, cloneBody(request.Extra), nil)
}

// resolveRoomID prefers the room bound to the installation over the caller's.
func (c *Client) resolveRoomID(explicit string) (string, error) {
	if bound, ok := c.cred.BoundRoomID(); ok {
		return bound, nil
	}
	if roomID := strings.TrimSpace(explicit); roomID != "" {
		return roomID, nil
	}
	return "", core.MissingRoomID(map[string]any{"installation_id": c.cred.InstallationID})
}

func roomPath(roomID string, segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, "room", url.PathEscape(roomID))
	for _, segment := range segments {
		parts = append(parts, url.PathEscape(segment))
	}
	return strings.Join(parts, "/")
}

func cloneBody(extra map[string]any) map[string]any {
	body := make(map[string]any, len(extra)+4)
	for key, value := range extra {
		body[key] = value
	}
	return body
}

func cloneValues(values url.Values) url.Values {
	out := url.Values{}
	for key, list := range values {
		out[key] = append([]string(nil), list...)
	}
	return out
}
