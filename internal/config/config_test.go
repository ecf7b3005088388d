package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Helper to clear all config-related env vars
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"FIELDSYNC_PORT",
		"FIELDSYNC_READ_TIMEOUT",
		"FIELDSYNC_WRITE_TIMEOUT",
		"FIELDSYNC_SHUTDOWN_TIMEOUT",
		"FIELDSYNC_DB_PATH",
		"FIELDSYNC_MEDIA_ROOT",
		"FIELDSYNC_LOG_LEVEL",
		"FIELDSYNC_LOG_FORMAT",
		"FIELDSYNC_CONFIG_PATH",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

// dur converts Duration to time.Duration for comparison
func dur(d Duration) time.Duration {
	return time.Duration(d)
}

// Test: Default values when no config file and no env vars
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if dur(cfg.Server.ReadTimeout) != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if dur(cfg.Server.WriteTimeout) != 30*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 30s", cfg.Server.WriteTimeout)
	}
	if dur(cfg.Server.ShutdownTimeout) != 15*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 15s", cfg.Server.ShutdownTimeout)
	}

	// Database defaults
	if cfg.Database.Path != "data/fieldsync.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "data/fieldsync.db")
	}

	// Media defaults
	if cfg.Media.Root != "data/media" {
		t.Errorf("Media.Root = %q, want %q", cfg.Media.Root, "data/media")
	}

	// Log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
}

// Test: YAML file values override defaults
func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	clearEnv(t)

	yamlContent := `
server:
  port: 9090
  read_timeout: 45s
  shutdown_timeout: 5s
database:
  path: /var/lib/fieldsync/sync.db
media:
  root: /var/lib/fieldsync/media
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "fieldsync.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if dur(cfg.Server.ReadTimeout) != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 45s", cfg.Server.ReadTimeout)
	}
	if dur(cfg.Server.ShutdownTimeout) != 5*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Path != "/var/lib/fieldsync/sync.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Media.Root != "/var/lib/fieldsync/media" {
		t.Errorf("Media.Root = %q", cfg.Media.Root)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	// Unset YAML fields keep defaults
	if dur(cfg.Server.WriteTimeout) != 30*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 30s default", cfg.Server.WriteTimeout)
	}
}

// Test: Env vars override YAML file values
func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIELDSYNC_PORT", "7070")
	t.Setenv("FIELDSYNC_DB_PATH", "/tmp/env.db")
	t.Setenv("FIELDSYNC_LOG_LEVEL", "error")

	yamlContent := `
server:
  port: 9090
database:
  path: /var/lib/fieldsync/sync.db
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "fieldsync.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want env override", cfg.Log.Level)
	}
}

// Test: invalid duration string in YAML is an error
func TestLoadFromFile_InvalidDuration(t *testing.T) {
	clearEnv(t)

	yamlContent := `
server:
  read_timeout: not-a-duration
`
	path := filepath.Join(t.TempDir(), "fieldsync.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("LoadFromFile() error = nil, want duration parse error")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want invalid duration", err)
	}
}

// Test: missing explicit file is an error for LoadFromFile
func TestLoadFromFile_Missing(t *testing.T) {
	clearEnv(t)

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("LoadFromFile() error = nil, want read error")
	}
}
