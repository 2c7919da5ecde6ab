package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.sqlite")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return sqlDB
}

func TestApplyMigrations(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"0001_init.sql": &fstest.MapFile{
			Data: []byte(`CREATE TABLE widgets (id TEXT PRIMARY KEY);`),
		},
		"0002_more.sql": &fstest.MapFile{
			Data: []byte(`ALTER TABLE widgets ADD COLUMN label TEXT;`),
		},
	}

	if err := ApplyMigrations(sqlDB, migrations); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := sqlDB.Exec(`INSERT INTO widgets (id, label) VALUES ('w1', 'first')`); err != nil {
		t.Fatalf("schema incomplete after migrations: %v", err)
	}

	var applied int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("read bookkeeping: %v", err)
	}
	if applied != 2 {
		t.Fatalf("got %d applied migrations, want 2", applied)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"0001_init.sql": &fstest.MapFile{
			Data: []byte(`CREATE TABLE widgets (id TEXT PRIMARY KEY);`),
		},
	}

	if err := ApplyMigrations(sqlDB, migrations); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	// Re-running must skip the already-applied file rather than fail on
	// the duplicate CREATE TABLE.
	if err := ApplyMigrations(sqlDB, migrations); err != nil {
		t.Fatalf("second apply: %v", err)
	}
}

func TestApplyMigrationsSkipsNonSQL(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"README.md": &fstest.MapFile{
			Data: []byte(`not sql`),
		},
		"0001_init.sql": &fstest.MapFile{
			Data: []byte(`CREATE TABLE widgets (id TEXT PRIMARY KEY);`),
		},
	}

	if err := ApplyMigrations(sqlDB, migrations); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	var applied int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("read bookkeeping: %v", err)
	}
	if applied != 1 {
		t.Fatalf("got %d applied migrations, want 1", applied)
	}
}
