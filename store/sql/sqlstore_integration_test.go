package sqlstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/security"
	sqlstore "github.com/goliatone/go-chat-addons/store/sql"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	stores := openSQLiteStores(t, false)

	var tableName string
	if err := stores.Client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"addon_credentials",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "addon_credentials" {
		t.Fatalf("expected addon_credentials table, got %q", tableName)
	}
}

func TestCredentialStore_PutGetDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := openSQLiteStores(t, true)
	store := stores.Base

	missing, err := store.Get(ctx, "install-unknown")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil credential for unknown installation, got %#v", missing)
	}

	roomID := int64(42)
	groupID := int64(7)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.Put(ctx, "install-1", core.Credential{
		InstallationID:   "install-1",
		ClientID:         "install-1",
		ClientSecret:     "secret-1",
		AuthorizationURL: "https://chat.example.test/users/authorize",
		TokenURL:         "https://chat.example.test/v2/oauth/token",
		APIBaseURL:       "https://chat.example.test/v2",
		RoomID:           &roomID,
		GroupID:          &groupID,
		CreatedAt:        created,
	}); err != nil {
		t.Fatalf("put credential: %v", err)
	}

	got, err := store.Get(ctx, " install-1 ")
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if got == nil {
		t.Fatalf("expected stored credential")
	}
	if got.APIBaseURL != "https://chat.example.test/v2/" {
		t.Fatalf("expected normalized api base url, got %q", got.APIBaseURL)
	}
	if got.RoomID == nil || *got.RoomID != 42 || got.GroupID == nil || *got.GroupID != 7 {
		t.Fatalf("expected room and group ids to round trip, got %#v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %s, got %s", created, got.CreatedAt)
	}
	if got.ClientSecret != "secret-1" || got.TokenURL != "https://chat.example.test/v2/oauth/token" {
		t.Fatalf("unexpected credential fields %#v", got)
	}

	if err := store.Delete(ctx, "install-1"); err != nil {
		t.Fatalf("delete credential: %v", err)
	}
	if err := store.Delete(ctx, "install-1"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	after, err := store.Get(ctx, "install-1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if after != nil {
		t.Fatalf("expected credential to be removed")
	}
}

func TestCredentialStore_PutReplacesRecordWholesale(t *testing.T) {
	ctx := context.Background()
	stores := openSQLiteStores(t, true)
	store := stores.Base

	roomID := int64(42)
	groupID := int64(7)
	if err := store.Put(ctx, "install-2", testCredential("install-2", "secret-a", &roomID, &groupID)); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := store.Put(ctx, "install-2", testCredential("install-2", "secret-b", nil, &groupID)); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := store.Get(ctx, "install-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ClientSecret != "secret-b" {
		t.Fatalf("expected replaced secret, got %#v", got)
	}
	if got.RoomID != nil {
		t.Fatalf("expected room id to be cleared by replacement, got %d", *got.RoomID)
	}

	var rows int
	if err := stores.Client.DB().NewRaw(
		"SELECT COUNT(*) FROM addon_credentials WHERE installation_id = ?",
		"install-2",
	).Scan(ctx, &rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single row per installation, got %d", rows)
	}
}

func TestCredentialStore_RejectsEmptyInstallationID(t *testing.T) {
	stores := openSQLiteStores(t, true)
	err := stores.Base.Put(context.Background(), "  ", testCredential("x", "s", nil, nil))
	if !core.HasTextCode(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input error, got %v", err)
	}
}

func TestCredentialStore_ConcurrentPutsKeepOneRecord(t *testing.T) {
	ctx := context.Background()
	stores := openSQLiteStores(t, true)
	store := stores.Base
	groupID := int64(7)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Put(ctx, "install-3", testCredential("install-3", fmt.Sprintf("secret-%d", i), nil, &groupID))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent put: %v", err)
		}
	}

	got, err := store.Get(ctx, "install-3")
	if err != nil || got == nil {
		t.Fatalf("expected a stored credential, got %#v err=%v", got, err)
	}
}

func TestCachedCredentialStore_OverSQLite(t *testing.T) {
	ctx := context.Background()
	stores := openSQLiteStores(t, false)
	groupID := int64(9)

	if err := stores.Credentials.Put(ctx, "install-4", testCredential("install-4", "secret-a", nil, &groupID)); err != nil {
		t.Fatalf("put: %v", err)
	}
	first, err := stores.Credentials.Get(ctx, "install-4")
	if err != nil || first == nil {
		t.Fatalf("get through cache: %#v %v", first, err)
	}

	if err := stores.Credentials.Put(ctx, "install-4", testCredential("install-4", "secret-b", nil, &groupID)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	second, err := stores.Credentials.Get(ctx, "install-4")
	if err != nil || second == nil {
		t.Fatalf("get after replace: %#v %v", second, err)
	}
	if second.ClientSecret != "secret-b" {
		t.Fatalf("expected invalidated cache to serve the replaced record, got %q", second.ClientSecret)
	}

	if err := stores.Credentials.Delete(ctx, "install-4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := stores.Credentials.Get(ctx, "install-4")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected nil after delete, got %#v", gone)
	}
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), sqlstore.PersistenceConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func testCredential(installationID, secret string, roomID, groupID *int64) core.Credential {
	return core.Credential{
		InstallationID: installationID,
		ClientID:       installationID,
		ClientSecret:   secret,
		TokenURL:       "https://chat.example.test/v2/oauth/token",
		APIBaseURL:     "https://chat.example.test/v2/",
		RoomID:         roomID,
		GroupID:        groupID,
	}
}

func openSQLiteStores(t *testing.T, disableCaching bool) *sqlstore.Stores {
	t.Helper()

	dsn := fmt.Sprintf("file:addons-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	stores, err := sqlstore.Open(context.Background(), sqlstore.PersistenceConfig{
		Driver:         sqlstore.DriverSQLite,
		DSN:            dsn,
		PingTimeout:    time.Second,
		OtelIdentifier: "go-chat-addons-tests",
		CacheTTL:       time.Minute,
		DisableCaching: disableCaching,
	})
	if err != nil {
		t.Fatalf("open sqlite stores: %v", err)
	}
	t.Cleanup(func() {
		_ = stores.Close()
	})
	return stores
}

func TestCredentialStore_SealsClientSecretAtRest(t *testing.T) {
	ctx := context.Background()
	stores, err := sqlstore.Open(ctx, sqlstore.PersistenceConfig{
		Driver:         sqlstore.DriverSQLite,
		DSN:            fmt.Sprintf("file:addons-sealed-%d?mode=memory&cache=shared", time.Now().UnixNano()),
		DisableCaching: true,
		SecretKey:      "test-app-key",
		SecretKeyID:    "tests",
	})
	if err != nil {
		t.Fatalf("open sqlite stores: %v", err)
	}
	t.Cleanup(func() { _ = stores.Close() })

	groupID := int64(7)
	if err := stores.Base.Put(ctx, "install-1", core.Credential{
		InstallationID: "install-1",
		ClientID:       "install-1",
		ClientSecret:   "secret-1",
		TokenURL:       "https://chat.example.test/v2/oauth/token",
		APIBaseURL:     "https://chat.example.test/v2/",
		GroupID:        &groupID,
	}); err != nil {
		t.Fatalf("put credential: %v", err)
	}

	var raw string
	if err := stores.Client.DB().NewRaw(
		"SELECT client_secret FROM addon_credentials WHERE installation_id = ?",
		"install-1",
	).Scan(ctx, &raw); err != nil {
		t.Fatalf("query raw secret: %v", err)
	}
	if raw == "secret-1" || !security.IsEnvelope(raw) {
		t.Fatalf("expected sealed secret at rest, got %q", raw)
	}

	got, err := stores.Base.Get(ctx, "install-1")
	if err != nil || got == nil {
		t.Fatalf("get credential: %v %v", got, err)
	}
	if got.ClientSecret != "secret-1" {
		t.Fatalf("expected decrypted secret, got %q", got.ClientSecret)
	}

	plain, err := sqlstore.NewCredentialStoreFrom(stores.Client)
	if err != nil {
		t.Fatalf("new plain store: %v", err)
	}
	if _, err := plain.Get(ctx, "install-1"); !core.HasTextCode(err, core.ErrorInternal) {
		t.Fatalf("expected sealed secret without provider to fail, got %v", err)
	}
}
