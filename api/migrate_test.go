package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openMigrationTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", sqliteDSN(filepath.Join(t.TempDir(), "migrate.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return db
}

func countRows(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var n int64
	if err := db.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	return countRows(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = '"+name+"'") == 1
}

func TestRunMigrationsRecordsApplied(t *testing.T) {
	db := openMigrationTestDB(t)
	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE items(id INTEGER PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;"),
		},
	}

	if err := runMigrations(db, sqliteDialect, migrations, "."); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 1 {
		t.Fatalf("expected 1 migration row, got %d", n)
	}
	if !tableExists(t, db, "items") {
		t.Fatal("expected items table")
	}

	// applying again must neither rerun the Up section nor record twice
	if err := runMigrations(db, sqliteDialect, migrations, "."); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 1 {
		t.Fatalf("expected 1 migration row after rerun, got %d", n)
	}
}

func TestRunMigrationsDoesNotRecordFailure(t *testing.T) {
	db := openMigrationTestDB(t)
	migrations := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREAT TABLE things(id INT);")},
	}

	if err := runMigrations(db, sqliteDialect, migrations, "."); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 0 {
		t.Fatalf("failed migration was recorded: %d rows", n)
	}
}

func TestRunMigrationsOrdersByName(t *testing.T) {
	db := openMigrationTestDB(t)
	migrations := fstest.MapFS{
		"sub/002_alter.sql":  &fstest.MapFile{Data: []byte("ALTER TABLE items ADD COLUMN name TEXT;")},
		"sub/001_create.sql": &fstest.MapFile{Data: []byte("CREATE TABLE items(id INTEGER PRIMARY KEY);")},
		"sub/README.md":      &fstest.MapFile{Data: []byte("not sql")},
	}

	if err := runMigrations(db, sqliteDialect, migrations, "sub"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if n := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 2 {
		t.Fatalf("expected 2 migration rows, got %d", n)
	}
}

func TestApplyEmbeddedSQLiteMigrations(t *testing.T) {
	db := openMigrationTestDB(t)

	if err := applyMigrations(db, sqliteDialect); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	for _, table := range []string{"users", "tasks"} {
		if !tableExists(t, db, table) {
			t.Fatalf("expected %s table", table)
		}
	}
}

func TestEmbeddedMigrationsExistForEveryDialect(t *testing.T) {
	for _, d := range []dialect{sqliteDialect, postgresDialect} {
		entries, err := migrationFS.ReadDir("migrations/" + d.name)
		if err != nil {
			t.Fatalf("%s: %v", d.name, err)
		}
		if len(entries) == 0 {
			t.Fatalf("%s: no migrations", d.name)
		}
	}
}

func TestExtractUpMigration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "CREATE TABLE a(id INT);", want: "CREATE TABLE a(id INT);"},
		{in: "-- +migrate Up\nCREATE TABLE a(id INT);", want: "\nCREATE TABLE a(id INT);"},
		{in: "-- +migrate Up\nCREATE TABLE a(id INT);\n-- +migrate Down\nDROP TABLE a;", want: "\nCREATE TABLE a(id INT);\n"},
	}
	for _, tt := range tests {
		if got := extractUpMigration(tt.in); got != tt.want {
			t.Errorf("extractUpMigration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
