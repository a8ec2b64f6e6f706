// ABOUTME: Dashboard configuration: defaults, an optional YAML file, then NEUROGEMS_* environment overrides.
// ABOUTME: Enforces security constraint: non-loopback binds need explicit opt-in and an auth token.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigError represents configuration validation errors.
var (
	ErrBackendURL = errors.New("backend URL must be an absolute http(s) URL")

	ErrRemoteWithoutToken = errors.New(
		"NEUROGEMS_ALLOW_REMOTE is true but NEUROGEMS_AUTH_TOKEN is not set; refusing to start without authentication",
	)
	ErrNonLoopbackBind = errors.New(
		"NEUROGEMS_BIND is a non-loopback address but NEUROGEMS_ALLOW_REMOTE is not true; set NEUROGEMS_ALLOW_REMOTE=true and NEUROGEMS_AUTH_TOKEN to allow remote access",
	)
)

// Config holds everything the binary needs to reach the backend and serve the dashboard.
type Config struct {
	BackendURL   string        `yaml:"backend_url"`   // NEUROGEMS_BACKEND_URL, default http://127.0.0.1:5000
	BackendToken string        `yaml:"backend_token"` // NEUROGEMS_BACKEND_TOKEN, optional bearer token
	Timeout      time.Duration `yaml:"timeout"`       // NEUROGEMS_TIMEOUT, per backend call
	Bind         string        `yaml:"bind"`          // NEUROGEMS_BIND, default 127.0.0.1:3000
	AllowRemote  bool          `yaml:"allow_remote"`  // NEUROGEMS_ALLOW_REMOTE
	AuthToken    string        `yaml:"auth_token"`    // NEUROGEMS_AUTH_TOKEN
	DataDir      string        `yaml:"data_dir"`      // NEUROGEMS_DATA_DIR, activity database lives here
	MLRunsDir    string        `yaml:"mlruns_dir"`    // NEUROGEMS_MLRUNS_DIR, served under /mlruns
	NATSURL      string        `yaml:"nats_url"`      // NEUROGEMS_NATS_URL, empty disables publishing
	SessionTTL   time.Duration `yaml:"session_ttl"`   // NEUROGEMS_SESSION_TTL
	MaxSessions  int           `yaml:"max_sessions"`  // NEUROGEMS_MAX_SESSIONS
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		BackendURL:  "http://127.0.0.1:5000",
		Timeout:     2 * time.Minute,
		Bind:        "127.0.0.1:3000",
		SessionTTL:  2 * time.Hour,
		MaxSessions: 100,
	}
}

// Load applies defaults, then the YAML file at path (skipped when path is empty),
// then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.BackendURL = envOrDefault("NEUROGEMS_BACKEND_URL", c.BackendURL)
	c.BackendToken = envOrDefault("NEUROGEMS_BACKEND_TOKEN", c.BackendToken)
	c.Bind = envOrDefault("NEUROGEMS_BIND", c.Bind)
	c.AuthToken = envOrDefault("NEUROGEMS_AUTH_TOKEN", c.AuthToken)
	c.DataDir = envOrDefault("NEUROGEMS_DATA_DIR", c.DataDir)
	c.MLRunsDir = envOrDefault("NEUROGEMS_MLRUNS_DIR", c.MLRunsDir)
	c.NATSURL = envOrDefault("NEUROGEMS_NATS_URL", c.NATSURL)

	if v := os.Getenv("NEUROGEMS_ALLOW_REMOTE"); v != "" {
		c.AllowRemote = v == "true" || v == "1" || v == "yes"
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"NEUROGEMS_TIMEOUT", &c.Timeout},
		{"NEUROGEMS_SESSION_TTL", &c.SessionTTL},
	} {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}
	if v := os.Getenv("NEUROGEMS_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NEUROGEMS_MAX_SESSIONS: %w", err)
		}
		c.MaxSessions = n
	}
	return nil
}

// Validate checks the backend URL and the bind policy.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBackendURL, c.BackendURL)
	}

	if c.AllowRemote && c.AuthToken == "" {
		return ErrRemoteWithoutToken
	}

	// Only 127.0.0.0/8, ::1 and "localhost" count as loopback.
	if !c.AllowRemote {
		if host, _, err := net.SplitHostPort(c.Bind); err == nil {
			ip := net.ParseIP(host)
			switch {
			case ip != nil && ip.IsLoopback():
			case host == "localhost":
			default:
				return fmt.Errorf("%w: NEUROGEMS_BIND=%s", ErrNonLoopbackBind, c.Bind)
			}
		}
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
