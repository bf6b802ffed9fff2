package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-chat-addons/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const credentialCacheKeyPrefix = "go-chat-addons::credential::v1"

// CachedCredentialStore reads through a cache service and invalidates the
// entry on every write. Misses are cached too, so webhook bursts for an
// unknown installation stay off the database.
type CachedCredentialStore struct {
	base  core.CredentialStore
	cache repositorycache.CacheService
}

type cachedCredential struct {
	Found      bool
	Credential core.Credential
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedCredentialStore{base: base, cache: cacheService}, nil
}

// CredentialCacheKey returns go-chat-addons::credential::v1::<installation id>
// with the id URL-path escaped.
func CredentialCacheKey(installationID string) (string, error) {
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return "", core.BadInput("sqlstore: installation id is required", nil)
	}
	return credentialCacheKeyPrefix + "::" + url.PathEscape(installationID), nil
}

func (s *CachedCredentialStore) Get(ctx context.Context, installationID string) (*core.Credential, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return nil, nil
	}
	key, err := CredentialCacheKey(installationID)
	if err != nil {
		return nil, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (cachedCredential, error) {
		cred, fetchErr := s.base.Get(ctx, installationID)
		if fetchErr != nil {
			return cachedCredential{}, fetchErr
		}
		if cred == nil {
			return cachedCredential{}, nil
		}
		return cachedCredential{Found: true, Credential: cred.Clone()}, nil
	})
	if err != nil {
		return nil, err
	}
	if !entry.Found {
		return nil, nil
	}
	out := entry.Credential.Clone()
	return &out, nil
}

func (s *CachedCredentialStore) Put(ctx context.Context, installationID string, cred core.Credential) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Put(ctx, installationID, cred); err != nil {
		return err
	}
	return s.invalidate(ctx, installationID)
}

func (s *CachedCredentialStore) Delete(ctx context.Context, installationID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Delete(ctx, installationID); err != nil {
		return err
	}
	if strings.TrimSpace(installationID) == "" {
		return nil
	}
	return s.invalidate(ctx, installationID)
}

func (s *CachedCredentialStore) invalidate(ctx context.Context, installationID string) error {
	key, err := CredentialCacheKey(installationID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, key)
}
