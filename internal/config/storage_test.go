package config

import (
	"strings"
	"testing"
)

func TestPostgresConnectionString(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "lectern",
		PostgresPassword: "simple",
		PostgresDBName:   "lectern",
		PostgresSSLMode:  "disable",
	}

	dsn := cfg.PostgresConnectionString()
	want := "host=localhost port=5432 user=lectern password='simple' dbname=lectern sslmode=disable"
	if dsn != want {
		t.Errorf("DSN mismatch:\n got: %s\nwant: %s", dsn, want)
	}
}

func TestPostgresConnectionString_SpecialCharacters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		contains string
	}{
		{"space", "pass word", "password='pass word'"},
		{"single quote", "pa'ss", `password='pa\'ss'`},
		{"backslash", `pa\ss`, `password='pa\\ss'`},
		{"equals sign", "pa=ss", "password='pa=ss'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{PostgresPassword: tt.password}
			if dsn := cfg.PostgresConnectionString(); !strings.Contains(dsn, tt.contains) {
				t.Errorf("expected DSN to contain %q, got: %s", tt.contains, dsn)
			}
		})
	}
}

func TestPostgresURL(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "lectern",
		PostgresPassword: "p@ss/word",
		PostgresDBName:   "lectern",
		PostgresSSLMode:  "disable",
	}

	u := cfg.PostgresURL()
	if !strings.HasPrefix(u, "postgres://") {
		t.Errorf("expected postgres:// scheme, got: %s", u)
	}
	// Special characters must be percent-encoded for golang-migrate.
	if strings.Contains(u, "p@ss/word") {
		t.Errorf("expected encoded password in URL, got: %s", u)
	}
	if !strings.Contains(u, "sslmode=disable") {
		t.Errorf("expected sslmode query param, got: %s", u)
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()

	cfg := &Config{ServerHost: "0.0.0.0", ServerPort: 8000}
	if got := cfg.ServerAddr(); got != "0.0.0.0:8000" {
		t.Errorf("ServerAddr() = %q, want 0.0.0.0:8000", got)
	}
}
