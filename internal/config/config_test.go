package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider %q, got %q", ProviderAnthropic, cfg.Provider)
	}
	if cfg.DatabasePath != "addestra.db" {
		t.Errorf("expected default database_path %q, got %q", "addestra.db", cfg.DatabasePath)
	}
	if cfg.Server.Port != 8420 {
		t.Errorf("expected default port 8420, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.addestra.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.DatabasePath = "data/training.db"
	original.RequestsPerMinute = 10
	original.Server.Port = 9000

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.DatabasePath != original.DatabasePath {
		t.Errorf("database_path: got %q, want %q", loaded.DatabasePath, original.DatabasePath)
	}
	if loaded.RequestsPerMinute != original.RequestsPerMinute {
		t.Errorf("requests_per_minute: got %d, want %d", loaded.RequestsPerMinute, original.RequestsPerMinute)
	}
	if loaded.Server.Port != original.Server.Port {
		t.Errorf("server.port: got %d, want %d", loaded.Server.Port, original.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected defaults for missing file, got provider %q", cfg.Provider)
	}
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("ADDESTRA_PROVIDER", "ollama")
	os.Setenv("ADDESTRA_MODEL", "llama3:70b")
	defer os.Unsetenv("ADDESTRA_PROVIDER")
	defer os.Unsetenv("ADDESTRA_MODEL")

	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("expected env override provider ollama, got %q", cfg.Provider)
	}
	if cfg.Model != "llama3:70b" {
		t.Errorf("expected env override model, got %q", cfg.Model)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "google"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}

	cfg = DefaultConfig()
	cfg.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty model")
	}

	cfg = DefaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
}
