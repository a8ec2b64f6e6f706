// ABOUTME: Tests for .env parsing and the no-clobber loading rule.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDotEnvLine(t *testing.T) {
	cases := []struct {
		line       string
		key, value string
		ok         bool
	}{
		{"NEUROGEMS_BIND=127.0.0.1:3000", "NEUROGEMS_BIND", "127.0.0.1:3000", true},
		{"export NEUROGEMS_AUTH_TOKEN=abc", "NEUROGEMS_AUTH_TOKEN", "abc", true},
		{`NEUROGEMS_BACKEND_URL="http://x:5000"`, "NEUROGEMS_BACKEND_URL", "http://x:5000", true},
		{"KEY='a=b'", "KEY", "a=b", true},
		{`KEY="mismatched'`, "KEY", `"mismatched'`, true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"NOEQUALS", "", "", false},
		{"=value", "", "", false},
	}
	for _, c := range cases {
		k, v, ok := parseDotEnvLine(c.line)
		if ok != c.ok || k != c.key || v != c.value {
			t.Errorf("parseDotEnvLine(%q) = %q, %q, %v; want %q, %q, %v", c.line, k, v, ok, c.key, c.value, c.ok)
		}
	}
}

func TestLoadDotEnvDoesNotClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "NEUROGEMS_TEST_SET=from-file\nNEUROGEMS_TEST_NEW=fresh\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEUROGEMS_TEST_SET", "from-env")
	t.Setenv("NEUROGEMS_TEST_NEW", "")
	os.Unsetenv("NEUROGEMS_TEST_NEW")

	if n := loadDotEnv(path); n != 1 {
		t.Errorf("expected 1 applied variable, got %d", n)
	}
	if got := os.Getenv("NEUROGEMS_TEST_SET"); got != "from-env" {
		t.Errorf("expected environment to win, got %q", got)
	}
	if got := os.Getenv("NEUROGEMS_TEST_NEW"); got != "fresh" {
		t.Errorf("expected file value, got %q", got)
	}
	if n := loadDotEnv(filepath.Join(t.TempDir(), "missing")); n != 0 {
		t.Errorf("expected nothing from a missing file, got %d", n)
	}
}

func TestDataDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)
	dir, err := defaultDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(xdg, "neurogems") {
		t.Errorf("expected XDG dir, got %q", dir)
	}

	got, err := resolveDataDir("", "")
	if err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created", got)
	}

	explicit := filepath.Join(t.TempDir(), "flag")
	if got, _ := resolveDataDir(explicit, "/ignored"); got != explicit {
		t.Errorf("expected flag to win, got %q", got)
	}
}

func TestShouldUseColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if shouldUseColor(os.Stdout) {
		t.Error("expected NO_COLOR to disable colour")
	}
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	if !shouldUseColor(os.Stdout) {
		t.Error("expected CLICOLOR_FORCE to enable colour")
	}
}
