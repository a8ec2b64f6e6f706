// ABOUTME: Tests for configuration layering and the bind security policy.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"NEUROGEMS_BACKEND_URL", "NEUROGEMS_BACKEND_TOKEN", "NEUROGEMS_BIND", "NEUROGEMS_AUTH_TOKEN",
		"NEUROGEMS_DATA_DIR", "NEUROGEMS_MLRUNS_DIR", "NEUROGEMS_NATS_URL", "NEUROGEMS_ALLOW_REMOTE",
		"NEUROGEMS_TIMEOUT", "NEUROGEMS_SESSION_TTL", "NEUROGEMS_MAX_SESSIONS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://127.0.0.1:5000" || cfg.Bind != "127.0.0.1:3000" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.MaxSessions != 100 || cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected session defaults, got %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "neurogems.yaml")
	body := "backend_url: http://backend:5000\ntimeout: 30s\nmax_sessions: 5\nnats_url: nats://file:4222\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEUROGEMS_NATS_URL", "nats://env:4222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "http://backend:5000" || cfg.Timeout != 30*time.Second || cfg.MaxSessions != 5 {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.NATSURL != "nats://env:4222" {
		t.Fatalf("expected env to win, got %q", cfg.NATSURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEUROGEMS_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		want error
	}{
		{"default", func(*Config) {}, nil},
		{"relative backend", func(c *Config) { c.BackendURL = "backend:5000" }, ErrBackendURL},
		{"ftp backend", func(c *Config) { c.BackendURL = "ftp://host" }, ErrBackendURL},
		{"localhost bind", func(c *Config) { c.Bind = "localhost:3000" }, nil},
		{"ipv6 loopback", func(c *Config) { c.Bind = "[::1]:3000" }, nil},
		{"all interfaces", func(c *Config) { c.Bind = "0.0.0.0:3000" }, ErrNonLoopbackBind},
		{"empty host", func(c *Config) { c.Bind = ":3000" }, ErrNonLoopbackBind},
		{"hostname", func(c *Config) { c.Bind = "example.com:3000" }, ErrNonLoopbackBind},
		{"remote without token", func(c *Config) { c.Bind = "0.0.0.0:3000"; c.AllowRemote = true }, ErrRemoteWithoutToken},
		{"remote with token", func(c *Config) { c.Bind = "0.0.0.0:3000"; c.AllowRemote = true; c.AuthToken = "s3cret" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(&cfg)
			err := cfg.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
