package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/security"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CredentialStore keeps one addon_credentials row per installation id. With
// a secret provider the client secret is sealed at rest; rows written before
// a provider was configured are still readable.
type CredentialStore struct {
	db      *bun.DB
	repo    repository.Repository[*credentialRecord]
	secrets core.SecretProvider
	now     func() time.Time
}

type StoreOption func(*CredentialStore)

func WithSecretProvider(provider core.SecretProvider) StoreOption {
	return func(s *CredentialStore) {
		s.secrets = provider
	}
}

func NewCredentialStore(db *bun.DB, opts ...StoreOption) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	store := &CredentialStore{
		db:   db,
		repo: repo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *CredentialStore) Get(ctx context.Context, installationID string) (*core.Credential, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: credential store is not configured")
	}
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return nil, nil
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("installation_id", "=", installationID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, core.Internal("sqlstore: load credential", map[string]any{
			"installation_id": installationID,
			"error":           err.Error(),
		})
	}
	if len(records) == 0 {
		return nil, nil
	}
	cred := records[0].toDomain()
	secret, err := s.openSecret(ctx, cred.ClientSecret)
	if err != nil {
		return nil, core.Internal("sqlstore: open client secret", map[string]any{
			"installation_id": installationID,
			"error":           err.Error(),
		})
	}
	cred.ClientSecret = secret
	return &cred, nil
}

// Put inserts or fully replaces the record for installationID.
func (s *CredentialStore) Put(ctx context.Context, installationID string, cred core.Credential) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return core.BadInput("sqlstore: installation id is required", nil)
	}

	sealed, err := s.sealSecret(ctx, cred.ClientSecret)
	if err != nil {
		return core.Internal("sqlstore: seal client secret", map[string]any{
			"installation_id": installationID,
			"error":           err.Error(),
		})
	}
	cred.ClientSecret = sealed

	now := s.now()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findCredentialTx(ctx, tx, installationID)
		if err != nil {
			return err
		}
		if record == nil {
			record = newCredentialRecord(installationID, cred, now)
			record.ID = uuid.NewString()
			_, err = tx.NewInsert().Model(record).Exec(ctx)
			return err
		}

		record.apply(installationID, cred, now)
		_, err = tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx)
		return err
	})
}

// Delete is a no-op for unknown installation ids.
func (s *CredentialStore) Delete(ctx context.Context, installationID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("installation_id = ?", installationID).
		Exec(ctx)
	return err
}

func (s *CredentialStore) sealSecret(ctx context.Context, secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if s.secrets == nil || secret == "" {
		return secret, nil
	}
	sealed, err := s.secrets.Encrypt(ctx, []byte(secret))
	if err != nil {
		return "", err
	}
	return string(sealed), nil
}

func (s *CredentialStore) openSecret(ctx context.Context, stored string) (string, error) {
	if !security.IsEnvelope(stored) {
		return stored, nil
	}
	if s.secrets == nil {
		return "", fmt.Errorf("sqlstore: client secret is sealed but no secret provider is configured")
	}
	plaintext, err := s.secrets.Decrypt(ctx, []byte(stored))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func findCredentialTx(ctx context.Context, tx bun.Tx, installationID string) (*credentialRecord, error) {
	record := &credentialRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.installation_id = ?", installationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
