package main

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

func TestResolveDSN(t *testing.T) {
	t.Setenv(envDSN, "")
	if got := resolveDSN(""); got != defaultDSN {
		t.Errorf("default = %q", got)
	}

	t.Setenv(envDSN, "postgres://env")
	if got := resolveDSN(""); got != "postgres://env" {
		t.Errorf("env = %q", got)
	}
	if got := resolveDSN("postgres://flag"); got != "postgres://flag" {
		t.Errorf("flag = %q", got)
	}
}

func TestIgnoreNoChange(t *testing.T) {
	if err := ignoreNoChange(migrate.ErrNoChange); err != nil {
		t.Errorf("ErrNoChange = %v", err)
	}
	boom := errors.New("boom")
	if err := ignoreNoChange(boom); !errors.Is(err, boom) {
		t.Errorf("boom = %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	up, err := fs.ReadFile(migrations, "migrations/000001_invoice_runs.up.sql")
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	for _, col := range []string{"id TEXT PRIMARY KEY", "state JSONB", "updated_at"} {
		if !strings.Contains(string(up), col) {
			t.Errorf("up migration missing %q", col)
		}
	}

	if _, err := fs.ReadFile(migrations, "migrations/000001_invoice_runs.down.sql"); err != nil {
		t.Errorf("read down migration: %v", err)
	}
}
