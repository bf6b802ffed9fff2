package core

import (
	"strconv"
	"strings"
	"time"
)

// Credential is the persisted OAuth2 credential set of one installation.
// Records are replaced wholesale; they are never field-mutated after install.
type Credential struct {
	InstallationID   string    `json:"installation_id"`
	ClientID         string    `json:"client_id"`
	ClientSecret     string    `json:"client_secret"`
	AuthorizationURL string    `json:"authorization_url"`
	TokenURL         string    `json:"token_url"`
	APIBaseURL       string    `json:"api_base_url"`
	RoomID           *int64    `json:"room_id,omitempty"`
	GroupID          *int64    `json:"group_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// NormalizeAPIBaseURL guarantees a trailing path separator so relative API
// paths resolve below the base instead of replacing its last segment.
func NormalizeAPIBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}
	return trimmed
}

func (c Credential) Normalize() Credential {
	out := Credential{
		InstallationID:   strings.TrimSpace(c.InstallationID),
		ClientID:         strings.TrimSpace(c.ClientID),
		ClientSecret:     strings.TrimSpace(c.ClientSecret),
		AuthorizationURL: strings.TrimSpace(c.AuthorizationURL),
		TokenURL:         strings.TrimSpace(c.TokenURL),
		APIBaseURL:       NormalizeAPIBaseURL(c.APIBaseURL),
		RoomID:           cloneInt64(c.RoomID),
		GroupID:          cloneInt64(c.GroupID),
		CreatedAt:        c.CreatedAt,
	}
	if !out.CreatedAt.IsZero() {
		out.CreatedAt = out.CreatedAt.UTC()
	}
	return out
}

func (c Credential) Validate() error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(c.InstallationID) == "" {
		missing = append(missing, "installation_id")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(c.TokenURL) == "" {
		missing = append(missing, "token_url")
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		missing = append(missing, "api_base_url")
	}
	if len(missing) > 0 {
		return BadInput("core: credential fields are required: "+strings.Join(missing, ", "), map[string]any{
			"installation_id": strings.TrimSpace(c.InstallationID),
			"missing":         missing,
		})
	}
	if c.RoomID == nil && c.GroupID == nil {
		return BadInput("core: credential requires a room or group scope", map[string]any{
			"installation_id": strings.TrimSpace(c.InstallationID),
		})
	}
	return nil
}

// IsGlobal reports whether the installation covers the whole group.
func (c Credential) IsGlobal() bool {
	return c.RoomID == nil
}

// IsRoomScoped reports whether the installation is bound to a single room.
func (c Credential) IsRoomScoped() bool {
	return c.RoomID != nil
}

// BoundRoomID returns the room id of a room-scoped installation.
func (c Credential) BoundRoomID() (string, bool) {
	if c.RoomID == nil {
		return "", false
	}
	return strconv.FormatInt(*c.RoomID, 10), true
}

func (c Credential) Clone() Credential {
	out := c
	out.RoomID = cloneInt64(c.RoomID)
	out.GroupID = cloneInt64(c.GroupID)
	return out
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
