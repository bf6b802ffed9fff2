package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// InstallPayload is the body the platform posts when the add-on is installed.
// The oauth id doubles as the installation id.
type InstallPayload struct {
	OAuthID         string `json:"oauthId"`
	OAuthSecret     string `json:"oauthSecret"`
	CapabilitiesURL string `json:"capabilitiesUrl"`
	RoomID          *int64 `json:"roomId,omitempty"`
	GroupID         *int64 `json:"groupId,omitempty"`
}

type installPayloadWire struct {
	OAuthID         string          `json:"oauthId"`
	OAuthSecret     string          `json:"oauthSecret"`
	CapabilitiesURL string          `json:"capabilitiesUrl"`
	RoomID          json.RawMessage `json:"roomId"`
	GroupID         json.RawMessage `json:"groupId"`
}

// UnmarshalJSON accepts room and group ids as numbers or numeric strings.
func (p *InstallPayload) UnmarshalJSON(data []byte) error {
	var wire installPayloadWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	roomID, err := parseOptionalID("roomId", wire.RoomID)
	if err != nil {
		return err
	}
	groupID, err := parseOptionalID("groupId", wire.GroupID)
	if err != nil {
		return err
	}
	*p = InstallPayload{
		OAuthID:         wire.OAuthID,
		OAuthSecret:     wire.OAuthSecret,
		CapabilitiesURL: wire.CapabilitiesURL,
		RoomID:          roomID,
		GroupID:         groupID,
	}
	return nil
}

func (p InstallPayload) InstallationID() string {
	return strings.TrimSpace(p.OAuthID)
}

func (p InstallPayload) Validate() error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(p.OAuthID) == "" {
		missing = append(missing, "oauthId")
	}
	if strings.TrimSpace(p.OAuthSecret) == "" {
		missing = append(missing, "oauthSecret")
	}
	if strings.TrimSpace(p.CapabilitiesURL) == "" {
		missing = append(missing, "capabilitiesUrl")
	}
	if len(missing) > 0 {
		return BadInput("core: install payload fields are required: "+strings.Join(missing, ", "), map[string]any{
			"missing": missing,
		})
	}
	if p.RoomID == nil && p.GroupID == nil {
		return BadInput("core: install payload requires roomId or groupId", map[string]any{
			"installation_id": p.InstallationID(),
		})
	}
	return nil
}

// ParseInstallPayload decodes and validates an install body.
func ParseInstallPayload(raw []byte) (InstallPayload, error) {
	var payload InstallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return InstallPayload{}, WrapBadInput(err, "core: install payload is malformed", nil)
	}
	if err := payload.Validate(); err != nil {
		return InstallPayload{}, err
	}
	return payload, nil
}

func parseOptionalID(field string, raw json.RawMessage) (*int64, error) {
	value := ScalarString(raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, WrapBadInput(err, "core: "+field+" must be numeric", map[string]any{"field": field})
	}
	return &parsed, nil
}
