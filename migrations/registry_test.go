package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	addons "github.com/goliatone/go-chat-addons"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	found := map[string]bool{}
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		found[entry.Dialect] = true
	}
	if !found[DialectPostgres] || !found[DialectSQLite] {
		t.Fatalf("expected postgres and sqlite filesystems, got %v", found)
	}
}

func TestFilesystems_RejectsMissingDownPair(t *testing.T) {
	source := fstest.MapFS{
		"data/sql/migrations/00001_a.up.sql":        {Data: []byte("SELECT 1;")},
		"data/sql/migrations/00001_a.down.sql":      {Data: []byte("SELECT 1;")},
		"data/sql/migrations/sqlite/00001_a.up.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := Filesystems(source); err == nil {
		t.Fatalf("expected missing sqlite down migration to be rejected")
	}
}

func TestFilesystems_AcceptsRootedSource(t *testing.T) {
	source := fstest.MapFS{
		"00001_a.up.sql":          {Data: []byte("SELECT 1;")},
		"00001_a.down.sql":        {Data: []byte("SELECT 1;")},
		"sqlite/00001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"sqlite/00001_a.down.sql": {Data: []byte("SELECT 1;")},
	}
	filesystems, err := Filesystems(source)
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if filesystems[0].Path != "." || filesystems[1].Path != "sqlite" {
		t.Fatalf("unexpected paths %q %q", filesystems[0].Path, filesystems[1].Path)
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	var labels []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		calls = append(calls, dialect)
		labels = append(labels, label)
		return nil
	}, WithValidationTargets(" SQLite "))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 || calls[0] != DialectSQLite {
		t.Fatalf("expected a single sqlite registration, got %v", calls)
	}
	if labels[0] != DefaultSourceLabel {
		t.Fatalf("expected default source label, got %q", labels[0])
	}
}

func TestRegister_RequiresRegisterFunc(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil register func")
	}
}

func TestCredentialMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := addons.GetMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_addon_credentials.up.sql",
		"data/sql/migrations/00001_addon_credentials.down.sql",
		"data/sql/migrations/sqlite/00001_addon_credentials.up.sql",
		"data/sql/migrations/sqlite/00001_addon_credentials.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteCredentialMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-addon-credentials?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(addons.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_addon_credentials.up.sql"); err != nil {
		t.Fatalf("apply credential migration up: %v", err)
	}

	insert := `INSERT INTO addon_credentials
		(id, installation_id, client_id, client_secret, token_url, api_base_url, room_id, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, insert,
		"c1", "install-1", "install-1", "secret", "https://chat.example.test/v2/oauth/token",
		"https://chat.example.test/v2/", 42, 7,
	); err != nil {
		t.Fatalf("insert credential: %v", err)
	}
	if _, err := db.ExecContext(ctx, insert,
		"c2", "install-1", "install-1", "other", "https://chat.example.test/v2/oauth/token",
		"https://chat.example.test/v2/", nil, 7,
	); err == nil {
		t.Fatalf("expected unique installation_id violation")
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_addon_credentials.down.sql"); err != nil {
		t.Fatalf("apply credential migration down: %v", err)
	}

	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"addon_credentials",
	).Scan(&tables); err != nil {
		t.Fatalf("query tables after down: %v", err)
	}
	if tables != 0 {
		t.Fatalf("expected addon_credentials to be dropped after down migration")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
