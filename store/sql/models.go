package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/uptrace/bun"
)

type credentialRecord struct {
	bun.BaseModel `bun:"table:addon_credentials,alias:ac"`

	ID               string    `bun:"id,pk"`
	InstallationID   string    `bun:"installation_id,notnull"`
	ClientID         string    `bun:"client_id,notnull"`
	ClientSecret     string    `bun:"client_secret,notnull"`
	AuthorizationURL string    `bun:"authorization_url,notnull"`
	TokenURL         string    `bun:"token_url,notnull"`
	APIBaseURL       string    `bun:"api_base_url,notnull"`
	RoomID           *int64    `bun:"room_id"`
	GroupID          *int64    `bun:"group_id"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newCredentialRecord(installationID string, cred core.Credential, now time.Time) *credentialRecord {
	record := &credentialRecord{}
	record.apply(installationID, cred, now)
	record.UpdatedAt = now
	return record
}

// apply overwrites every credential column; records are replaced wholesale.
func (r *credentialRecord) apply(installationID string, cred core.Credential, now time.Time) {
	cred = cred.Normalize()
	r.InstallationID = strings.TrimSpace(installationID)
	r.ClientID = cred.ClientID
	r.ClientSecret = cred.ClientSecret
	r.AuthorizationURL = cred.AuthorizationURL
	r.TokenURL = cred.TokenURL
	r.APIBaseURL = cred.APIBaseURL
	r.RoomID = copyInt64(cred.RoomID)
	r.GroupID = copyInt64(cred.GroupID)
	r.CreatedAt = cred.CreatedAt
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

func (r *credentialRecord) toDomain() core.Credential {
	if r == nil {
		return core.Credential{}
	}
	return core.Credential{
		InstallationID:   r.InstallationID,
		ClientID:         r.ClientID,
		ClientSecret:     r.ClientSecret,
		AuthorizationURL: r.AuthorizationURL,
		TokenURL:         r.TokenURL,
		APIBaseURL:       r.APIBaseURL,
		RoomID:           copyInt64(r.RoomID),
		GroupID:          copyInt64(r.GroupID),
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func copyInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}
