package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const queryTimeout = 5 * time.Second

// dialect names the SQL engine behind a connection. Queries are written with ?
// placeholders and rebound for engines that need another form.
type dialect struct {
	name   string
	driver string
}

var (
	postgresDialect = dialect{name: "postgres", driver: "postgres"}
	sqliteDialect   = dialect{name: "sqlite", driver: "sqlite"}
)

func (d dialect) rebind(query string) string {
	if d != postgresDialect {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseDSN maps a database URL onto a dialect and the driver-specific DSN.
// sqlite:///app.db is relative to the working directory, sqlite:////var/app.db is absolute.
func parseDSN(raw string) (dialect, string, error) {
	dsn := strings.TrimSpace(raw)
	switch {
	case dsn == "":
		return dialect{}, "", errors.New("database url is required")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgresDialect, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "/")
		if path == "" {
			return dialect{}, "", fmt.Errorf("database url %q has no sqlite path", dsn)
		}
		return sqliteDialect, sqliteDSN(path), nil
	case strings.Contains(dsn, "://"):
		scheme, _, _ := strings.Cut(dsn, "://")
		return dialect{}, "", fmt.Errorf("unsupported database scheme %q", scheme)
	default:
		return sqliteDialect, sqliteDSN(dsn), nil
	}
}

func sqliteDSN(path string) string {
	return filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func openDB(cfg config) (*sql.DB, dialect, error) {
	d, dsn, err := parseDSN(cfg.DB.DSN)
	if err != nil {
		return nil, dialect{}, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, dialect{}, fmt.Errorf("open %s db: %w", d.name, err)
	}

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.DB.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, dialect{}, fmt.Errorf("ping %s db: %w", d.name, err)
	}

	return db, d, nil
}

type storage struct {
	users *userStore
	tasks *taskStore
}

func newStorage(db *sql.DB, d dialect, now func() time.Time) *storage {
	return &storage{
		users: newUserStore(db, d, now),
		tasks: newTaskStore(db, d, now),
	}
}

// isUniqueViolation reports whether err is a unique-key violation from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		return strings.Contains(strings.ToLower(sqliteErr.Error()), "unique constraint failed")
	}
	return false
}

// toMillis keeps timestamps at millisecond precision in UTC for storage.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
