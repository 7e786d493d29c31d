package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/refperm/internal/bytesize"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Enabled {
		t.Error("Expected telemetry to be disabled by default")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default endpoint 'localhost:4317', got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) == 0 {
		t.Error("Expected default profile types")
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port while disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Store.Type != StoreTypeYAML {
		t.Errorf("Expected default store type 'yaml', got %q", cfg.Store.Type)
	}
	if want := filepath.Join(dir, "refperm", "projects"); cfg.Store.YAML.Dir != want {
		t.Errorf("Expected yaml dir %q, got %q", want, cfg.Store.YAML.Dir)
	}

	cfg = &Config{Store: StoreConfig{Type: StoreTypeSQLite}}
	ApplyDefaults(cfg)
	if want := filepath.Join(dir, "refperm", "projects.db"); cfg.Store.SQLite.Path != want {
		t.Errorf("Expected sqlite path %q, got %q", want, cfg.Store.SQLite.Path)
	}

	cfg = &Config{Store: StoreConfig{Type: StoreTypePostgres}}
	ApplyDefaults(cfg)
	if cfg.Store.Postgres.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Store.Postgres.Port)
	}
	if cfg.Store.Postgres.SSLMode != "disable" {
		t.Errorf("Expected default sslmode 'disable', got %q", cfg.Store.Postgres.SSLMode)
	}
}

func TestApplyDefaults_Cache(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := &Config{Cache: CacheConfig{Persisted: PersistedCacheConfig{Enabled: true}}}
	ApplyDefaults(cfg)

	if cfg.Cache.CheckFrequency != 5*time.Minute {
		t.Errorf("Expected default check frequency 5m, got %v", cfg.Cache.CheckFrequency)
	}
	if cfg.Cache.SortCacheSize != 10000 {
		t.Errorf("Expected default sort cache size 10000, got %d", cfg.Cache.SortCacheSize)
	}
	if want := filepath.Join(dir, "refperm", "cache"); cfg.Cache.Persisted.Path != want {
		t.Errorf("Expected persisted path %q, got %q", want, cfg.Cache.Persisted.Path)
	}
	if cfg.Cache.Persisted.BlockCacheSize != 64*bytesize.MiB {
		t.Errorf("Expected default block cache size 64Mi, got %v", cfg.Cache.Persisted.BlockCacheSize)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		ShutdownTimeout: time.Minute,
		Cache:           CacheConfig{CheckFrequency: time.Second, SortCacheSize: 7},
		Engine:          EngineConfig{AllProjectsName: "Root"},
		Identity:        IdentityConfig{Type: IdentityTypeStore},
	}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != time.Minute {
		t.Errorf("Expected shutdown timeout 1m to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Cache.CheckFrequency != time.Second || cfg.Cache.SortCacheSize != 7 {
		t.Errorf("Expected cache settings to be preserved, got %+v", cfg.Cache)
	}
	if cfg.Engine.AllProjectsName != "Root" {
		t.Errorf("Expected root project 'Root' to be preserved, got %q", cfg.Engine.AllProjectsName)
	}
	if cfg.Identity.Type != IdentityTypeStore {
		t.Errorf("Expected identity type 'store' to be preserved, got %q", cfg.Identity.Type)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Engine.AllProjectsName != "All-Projects" {
		t.Errorf("Expected default root project 'All-Projects', got %q", cfg.Engine.AllProjectsName)
	}
	if len(cfg.Engine.AdminGroups) != 1 || cfg.Engine.AdminGroups[0] != "administrators" {
		t.Errorf("Expected default admin group 'administrators', got %v", cfg.Engine.AdminGroups)
	}
	if len(cfg.Identity.Users) != 1 || cfg.Identity.Users[0].Name != "admin" {
		t.Errorf("Expected a default admin user, got %+v", cfg.Identity.Users)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}
}
