package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestParseDSN(t *testing.T) {
	tests := []struct {
		raw     string
		dialect dialect
		prefix  string
	}{
		{raw: "postgres://u:p@localhost:5432/tasks?sslmode=disable", dialect: postgresDialect, prefix: "postgres://u:p@localhost:5432/tasks"},
		{raw: "postgresql://localhost/tasks", dialect: postgresDialect, prefix: "postgresql://localhost/tasks"},
		{raw: "sqlite:///app.db", dialect: sqliteDialect, prefix: "app.db?"},
		{raw: "sqlite:////var/lib/tasks/app.db", dialect: sqliteDialect, prefix: "/var/lib/tasks/app.db?"},
		{raw: " data/app.db ", dialect: sqliteDialect, prefix: "data/app.db?"},
	}
	for _, tt := range tests {
		d, dsn, err := parseDSN(tt.raw)
		if err != nil {
			t.Fatalf("parseDSN(%q): %v", tt.raw, err)
		}
		if d != tt.dialect {
			t.Fatalf("parseDSN(%q) dialect = %v, want %v", tt.raw, d, tt.dialect)
		}
		if !strings.HasPrefix(dsn, tt.prefix) {
			t.Fatalf("parseDSN(%q) dsn = %q, want prefix %q", tt.raw, dsn, tt.prefix)
		}
	}
}

func TestParseDSNRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "sqlite://", "mysql://localhost/tasks"} {
		if _, _, err := parseDSN(raw); err == nil {
			t.Fatalf("parseDSN(%q): expected error", raw)
		}
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT id FROM tasks WHERE id = ? AND user_id = ?"
	if got := sqliteDialect.rebind(query); got != query {
		t.Fatalf("sqlite rebind = %q", got)
	}
	want := "SELECT id FROM tasks WHERE id = $1 AND user_id = $2"
	if got := postgresDialect.rebind(query); got != want {
		t.Fatalf("postgres rebind = %q, want %q", got, want)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "postgres unique", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), want: true},
		{name: "postgres other", err: &pq.Error{Code: "23503"}, want: false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(tt.err); got != tt.want {
			t.Errorf("%s: isUniqueViolation = %v, want %v", tt.name, got, tt.want)
		}
	}
}
