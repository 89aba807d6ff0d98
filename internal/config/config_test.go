package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_BASE_URL", "http://example.test/v1beta/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.Gemini.BaseURL != "http://example.test/v1beta" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Gemini.BaseURL)
	}
	if cfg.Credits.Starter != 20 {
		t.Errorf("expected 20 starter credits, got %d", cfg.Credits.Starter)
	}
	if cfg.Credits.CodeGenerationCost != 5 {
		t.Errorf("expected code cost 5, got %d", cfg.Credits.CodeGenerationCost)
	}
	if cfg.ToastTTL != 3*time.Second {
		t.Errorf("expected toast ttl 3s, got %s", cfg.ToastTTL)
	}
}

func TestLoadRejectsInvalidCredits(t *testing.T) {
	t.Setenv("STARTER_CREDITS", "0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for zero starter credits")
	}
	if !strings.Contains(err.Error(), "STARTER_CREDITS") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TOAST_TTL", "soon")
	if got := getEnvDuration("TOAST_TTL", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"https://forge.example.com", false},
	}
	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.url}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("DEBUG", "true")
	if !getEnvBool("DEBUG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("DEBUG", "maybe")
	if getEnvBool("DEBUG", false) {
		t.Fatal("expected fallback for garbage")
	}
}
