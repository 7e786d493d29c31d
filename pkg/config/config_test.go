package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/refperm/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences, causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_MinimalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
logging:
  level: "debug"

store:
  type: yaml
  yaml:
    dir: "`+yamlSafePath(tmpDir)+`/projects"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Store.YAML.Dir != yamlSafePath(tmpDir)+"/projects" {
		t.Errorf("Expected yaml dir to be preserved, got %q", cfg.Store.YAML.Dir)
	}
	if cfg.Engine.AllProjectsName != "All-Projects" {
		t.Errorf("Expected default root project 'All-Projects', got %q", cfg.Engine.AllProjectsName)
	}
	if cfg.Cache.CheckFrequency != 5*time.Minute {
		t.Errorf("Expected default check frequency 5m, got %v", cfg.Cache.CheckFrequency)
	}
	if cfg.Identity.Type != IdentityTypeStatic {
		t.Errorf("Expected default identity type 'static', got %q", cfg.Identity.Type)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
shutdown_timeout: 5s

metrics:
  enabled: true

store:
  type: sqlite
  sqlite:
    path: "`+yamlSafePath(tmpDir)+`/projects.db"

cache:
  check_frequency: 30s
  sort_cache_size: 500
  persisted:
    enabled: true
    path: "`+yamlSafePath(tmpDir)+`/cache"
    block_cache_size: 16Mi

engine:
  all_projects_name: Root
  admin_groups: [administrators]

identity:
  type: static
  users:
    - username: alice
      account_id: 1000001
      emails: [alice@example.com]
      groups: [developers]
    - username: root
      admin: true
  includes:
    developers: [contractors]
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown_timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port to default to 9090 when enabled, got %d", cfg.Metrics.Port)
	}
	if cfg.Store.Type != StoreTypeSQLite {
		t.Errorf("Expected store type sqlite, got %q", cfg.Store.Type)
	}
	if cfg.Cache.CheckFrequency != 30*time.Second {
		t.Errorf("Expected check_frequency 30s, got %v", cfg.Cache.CheckFrequency)
	}
	if cfg.Cache.SortCacheSize != 500 {
		t.Errorf("Expected sort_cache_size 500, got %d", cfg.Cache.SortCacheSize)
	}
	if cfg.Cache.Persisted.BlockCacheSize != 16*bytesize.MiB {
		t.Errorf("Expected block_cache_size 16Mi, got %v", cfg.Cache.Persisted.BlockCacheSize)
	}
	if cfg.Engine.AllProjectsName != "Root" {
		t.Errorf("Expected root project 'Root', got %q", cfg.Engine.AllProjectsName)
	}
	if len(cfg.Identity.Users) != 2 {
		t.Fatalf("Expected 2 static users, got %d", len(cfg.Identity.Users))
	}
	alice := cfg.Identity.Users[0]
	if alice.Name != "alice" || alice.ID != 1000001 {
		t.Errorf("Unexpected first user: %+v", alice)
	}
	if len(alice.Groups) != 1 || alice.Groups[0] != "developers" {
		t.Errorf("Expected alice in developers, got %v", alice.Groups)
	}
	if !cfg.Identity.Users[1].Admin {
		t.Error("Expected root to be an administrator")
	}
	if got := cfg.Identity.Includes["developers"]; len(got) != 1 || got[0] != "contractors" {
		t.Errorf("Expected developers to include contractors, got %v", got)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
store:
  type: memory
`)
	t.Setenv("REFPERM_LOGGING_LEVEL", "WARN")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected env to override level to 'WARN', got %q", cfg.Logging.Level)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Store.Type != StoreTypeYAML {
		t.Errorf("Expected default store type 'yaml', got %q", cfg.Store.Type)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "BadStoreType",
			content: "store:\n  type: etcd\n",
			wantErr: "oneof",
		},
		{
			name:    "BadDuration",
			content: "cache:\n  check_frequency: soon\n",
			wantErr: "unmarshal",
		},
		{
			name:    "WatchWithoutYAMLStore",
			content: "store:\n  type: memory\n  yaml:\n    watch: true\n",
			wantErr: "watch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(missing)
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "refperm init --config") {
		t.Errorf("Expected init instructions in error, got: %v", err)
	}
}

func TestMustLoad_DefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := MustLoad("")
	if err == nil {
		t.Fatal("Expected error when no default config exists")
	}
	if !strings.Contains(err.Error(), GetDefaultConfigPath()) {
		t.Errorf("Expected default path in error, got: %v", err)
	}

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	cfg, err := MustLoad("")
	if err != nil {
		t.Fatalf("MustLoad failed after init: %v", err)
	}
	if cfg.Engine.AllProjectsName != "All-Projects" {
		t.Errorf("Expected root project 'All-Projects', got %q", cfg.Engine.AllProjectsName)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := GetDefaultConfig()
	cfg.Store = StoreConfig{Type: StoreTypeMemory}
	cfg.Cache.Persisted.BlockCacheSize = 32 * bytesize.MiB
	cfg.Cache.CheckFrequency = 90 * time.Second

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected file mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Store.Type != StoreTypeMemory {
		t.Errorf("Expected store type memory, got %q", loaded.Store.Type)
	}
	if loaded.Cache.Persisted.BlockCacheSize != 32*bytesize.MiB {
		t.Errorf("Expected block cache size 32Mi, got %v", loaded.Cache.Persisted.BlockCacheSize)
	}
	if loaded.Cache.CheckFrequency != 90*time.Second {
		t.Errorf("Expected check frequency 90s, got %v", loaded.Cache.CheckFrequency)
	}
	if len(loaded.Identity.Users) != 1 || loaded.Identity.Users[0].Name != "admin" {
		t.Errorf("Expected the default admin user to survive, got %+v", loaded.Identity.Users)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "refperm", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if DefaultConfigExists() {
		t.Error("Expected no config at a fresh XDG_CONFIG_HOME")
	}
}
