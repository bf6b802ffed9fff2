package sqlstore

import "github.com/goliatone/go-chat-addons/core"

var (
	_ core.CredentialStore = (*CredentialStore)(nil)
	_ core.CredentialStore = (*CachedCredentialStore)(nil)
)
