package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/migrations"
	"github.com/goliatone/go-chat-addons/security"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// PersistenceConfig satisfies the go-persistence-bun client config.
type PersistenceConfig struct {
	Driver         string
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
	MaxOpenConns   int
	CacheTTL       time.Duration
	DisableCaching bool
	SkipMigrations bool
	// SecretKey enables sealing of client secrets at rest.
	SecretKey   string
	SecretKeyID string
}

func (c PersistenceConfig) GetDebug() bool    { return c.Debug }
func (c PersistenceConfig) GetDriver() string { return c.Driver }
func (c PersistenceConfig) GetServer() string { return c.DSN }

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return "go-chat-addons"
	}
	return c.OtelIdentifier
}

func (c PersistenceConfig) migrationDialect() (string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case DriverSQLite, "sqlite":
		return migrations.DialectSQLite, sqlitedialect.New(), nil
	case DriverPostgres, "pgx", "pg":
		return migrations.DialectPostgres, pgdialect.New(), nil
	default:
		return "", nil, fmt.Errorf("sqlstore: unsupported driver %q", c.Driver)
	}
}

// Stores bundles the opened persistence client with the credential stores
// built on top of it. Credentials is the cached store unless caching is
// disabled.
type Stores struct {
	Client      *persistence.Client
	Base        *CredentialStore
	Credentials core.CredentialStore
}

// Open connects to the configured database, applies the embedded credential
// migrations and builds the credential stores.
func Open(ctx context.Context, cfg PersistenceConfig) (*Stores, error) {
	migrationDialect, dialect, err := cfg.migrationDialect()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	driver := DriverPostgres
	if migrationDialect == migrations.DialectSQLite {
		driver = DriverSQLite
	}
	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	} else if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	if !cfg.SkipMigrations {
		if err := Migrate(ctx, client, migrationDialect); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	stores, err := NewStores(client.DB(), cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	stores.Client = client
	return stores, nil
}

// Migrate registers the embedded migrations for dialect on client and runs
// them.
func Migrate(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	_, err := migrations.Register(ctx, func(_ context.Context, target string, _ string, fsys fs.FS) error {
		if target != dialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(dialect))
	if err != nil {
		return fmt.Errorf("sqlstore: register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

// NewStores builds the credential stores over an existing bun db.
func NewStores(db *bun.DB, cfg PersistenceConfig) (*Stores, error) {
	var opts []StoreOption
	if strings.TrimSpace(cfg.SecretKey) != "" {
		provider, err := security.NewAppKeySecretProviderFromString(cfg.SecretKey, security.WithKeyID(cfg.SecretKeyID))
		if err != nil {
			return nil, fmt.Errorf("sqlstore: secret provider: %w", err)
		}
		opts = append(opts, WithSecretProvider(provider))
	}
	base, err := NewCredentialStore(db, opts...)
	if err != nil {
		return nil, err
	}
	stores := &Stores{Base: base, Credentials: base}
	if cfg.DisableCaching {
		return stores, nil
	}

	cacheConfig := repositorycache.DefaultConfig()
	if cfg.CacheTTL > 0 {
		cacheConfig.TTL = cfg.CacheTTL
	}
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: new cache service: %w", err)
	}
	cached, err := NewCachedCredentialStore(base, cacheService)
	if err != nil {
		return nil, err
	}
	stores.Credentials = cached
	return stores, nil
}

// NewCredentialStoreFrom accepts a *bun.DB or anything exposing DB() *bun.DB,
// such as a go-persistence-bun client.
func NewCredentialStoreFrom(candidate any, opts ...StoreOption) (*CredentialStore, error) {
	db, err := resolveBunDB(candidate)
	if err != nil {
		return nil, err
	}
	return NewCredentialStore(db, opts...)
}

func (s *Stores) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
