package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Diagrams.Workers != 4 || cfg.Diagrams.TimeoutSeconds != 30 {
		t.Errorf("diagram defaults = %+v", cfg.Diagrams)
	}
	if cfg.Typst.Workers != 6 {
		t.Errorf("typst workers = %d, want 6", cfg.Typst.Workers)
	}
}

func TestConfigInvalidPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Serve.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestConfigEmptyContentDir(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Content.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty content dir")
	}
}

func TestAuthTokenModeRequiresToken(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Serve.Auth.Mode = AuthModeToken
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for token mode without token")
	}
	if !strings.Contains(err.Error(), "token") {
		t.Errorf("err = %v", err)
	}

	cfg.Serve.Auth.Token = "sekret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("token mode with token should validate: %v", err)
	}
	if !cfg.Serve.Auth.AuthEnabled() {
		t.Error("AuthEnabled() = false in token mode")
	}
}

func TestBackendResolveURLEnvFallback(t *testing.T) {
	cfg := NewDefaultConfig()
	t.Setenv(BackendURLEnv, "")
	if got := cfg.Backend.ResolveURL(); got != "" {
		t.Errorf("unset url = %q, want empty", got)
	}

	t.Setenv(BackendURLEnv, "https://env.example.com")
	if got := cfg.Backend.ResolveURL(); got != "https://env.example.com" {
		t.Errorf("env fallback = %q", got)
	}

	cfg.Backend.URL = "https://cfg.example.com"
	if got := cfg.Backend.ResolveURL(); got != "https://cfg.example.com" {
		t.Errorf("explicit url should win: %q", got)
	}
}
