package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Backend != "gemini" {
		t.Errorf("Backend = %q, want gemini", cfg.Oracle.Backend)
	}
	if cfg.Oracle.Region != DefaultRegion {
		t.Errorf("Region = %q, want %q", cfg.Oracle.Region, DefaultRegion)
	}
	if cfg.Oracle.Model != DefaultGeminiModel {
		t.Errorf("Model = %q, want %q", cfg.Oracle.Model, DefaultGeminiModel)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
oracle:
  backend: openai
  api_key_env: MY_OPENAI_KEY
email:
  cc: ops@example.com
overrides:
  - match: Acme Custody
    label: Acme
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Backend != "openai" {
		t.Errorf("Backend = %q, want openai", cfg.Oracle.Backend)
	}
	if cfg.Email.CC != "ops@example.com" {
		t.Errorf("CC = %q", cfg.Email.CC)
	}

	n := cfg.Normalizer()
	if got := n.Simplify("Acme Custody Ltd"); got != "Acme" {
		t.Errorf("Simplify with extra override = %q, want Acme", got)
	}
	if got := n.Simplify("FH-Mirae Fund"); got != "Mirae" {
		t.Errorf("built-in override lost: %q", got)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("oracle:\n  backend: watson\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted an unknown backend")
	}
}
