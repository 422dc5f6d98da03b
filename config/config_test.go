package config

import (
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Bind != "localhost" {
		t.Errorf("expected Bind=localhost, got %q", cfg.Bind)
	}
	if cfg.Port != 12345 {
		t.Errorf("expected Port=12345, got %d", cfg.Port)
	}
	if cfg.CodeLength != 4 {
		t.Errorf("expected CodeLength=4, got %d", cfg.CodeLength)
	}
	if cfg.MaxAttempts != 10 {
		t.Errorf("expected MaxAttempts=10, got %d", cfg.MaxAttempts)
	}
	if len(cfg.Colors) != 6 {
		t.Errorf("expected 6 colors, got %d", len(cfg.Colors))
	}
	if cfg.BaseRating != 1200 {
		t.Errorf("expected BaseRating=1200, got %d", cfg.BaseRating)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("MATCHSERVER_PORT", "9090")
	os.Setenv("MATCHSERVER_CODE_LENGTH", "5")
	defer func() {
		os.Unsetenv("MATCHSERVER_PORT")
		os.Unsetenv("MATCHSERVER_CODE_LENGTH")
	}()

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected Port=9090 after env override, got %d", cfg.Port)
	}
	if cfg.CodeLength != 5 {
		t.Errorf("expected CodeLength=5 after env override, got %d", cfg.CodeLength)
	}
	// Non-overridden fields should remain default
	if cfg.MaxAttempts != 10 {
		t.Errorf("expected MaxAttempts=10 (default), got %d", cfg.MaxAttempts)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	os.Setenv("MATCHSERVER_PORT", "not-a-number")
	defer os.Unsetenv("MATCHSERVER_PORT")

	cfg := Load()

	// Should fall back to default when env value is invalid
	if cfg.Port != 12345 {
		t.Errorf("expected Port=12345 (default) with invalid env, got %d", cfg.Port)
	}
}
