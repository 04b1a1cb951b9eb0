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
	if cfg.Pool.Min != 5 || cfg.Pool.Max != 50 {
		t.Fatalf("unexpected pool defaults: %+v", cfg.Pool)
	}
	if cfg.Cache.L1Capacity != 2000 {
		t.Fatalf("unexpected cache default: %+v", cfg.Cache)
	}
	if len(cfg.Cache.CategoryTTLs) != 5 {
		t.Fatalf("expected 5 default category TTLs, got %d", len(cfg.Cache.CategoryTTLs))
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("pool:\n  min: 10\n  max: 100\napi:\n  port: 9000\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pool.Min != 10 || cfg.Pool.Max != 100 {
		t.Fatalf("file values not applied: %+v", cfg.Pool)
	}
	if cfg.API.Port != 9000 {
		t.Fatalf("file values not applied: %+v", cfg.API)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  host: file-host\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DB_HOST", "env-host")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "env-host" {
		t.Fatalf("expected env override, got %q", cfg.Database.Host)
	}
}

func TestValidateRejectsBadPool(t *testing.T) {
	cfg := &Config{Pool: Pool{Min: 10, Max: 5}, Cache: Cache{L1Capacity: 1}, API: API{Port: 1}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for max < min")
	}
}

func TestAPIKeysFromCommaSeparatedEnv(t *testing.T) {
	t.Setenv("API_KEYS", "key-a, key-b")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.API.APIKeys) != 2 || cfg.API.APIKeys[0] != "key-a" || cfg.API.APIKeys[1] != "key-b" {
		t.Fatalf("unexpected API keys: %v", cfg.API.APIKeys)
	}
}
