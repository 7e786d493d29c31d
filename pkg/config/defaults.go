package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/refperm/internal/bytesize"
	"github.com/marmos91/refperm/pkg/access"
	"github.com/marmos91/refperm/pkg/identity"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyStoreDefaults(&cfg.Store)
	applyCacheDefaults(&cfg.Cache)
	applyEngineDefaults(&cfg.Engine)
	applyIdentityDefaults(&cfg.Identity)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets the port only when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyStoreDefaults defaults to a YAML directory next to the config file.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = StoreTypeYAML
	}

	switch cfg.Type {
	case StoreTypeYAML:
		if cfg.YAML.Dir == "" {
			cfg.YAML.Dir = filepath.Join(getConfigDir(), "projects")
		}
	case StoreTypeSQLite, StoreTypePostgres:
		db := cfg.Database()
		db.ApplyDefaults()
		cfg.SQLite, cfg.Postgres = db.SQLite, db.Postgres
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.CheckFrequency == 0 {
		cfg.CheckFrequency = 5 * time.Minute
	}
	if cfg.SortCacheSize == 0 {
		cfg.SortCacheSize = 10000
	}

	if cfg.Persisted.Enabled && !cfg.Persisted.InMemory && cfg.Persisted.Path == "" {
		cfg.Persisted.Path = filepath.Join(getConfigDir(), "cache")
	}
	if cfg.Persisted.BlockCacheSize == 0 {
		cfg.Persisted.BlockCacheSize = 64 * bytesize.MiB
	}
}

func applyEngineDefaults(cfg *EngineConfig) {
	if cfg.AllProjectsName == "" {
		cfg.AllProjectsName = access.DefaultRootProject
	}
}

func applyIdentityDefaults(cfg *IdentityConfig) {
	if cfg.Type == "" {
		cfg.Type = IdentityTypeStatic
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for generating sample configuration files and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Type: StoreTypeYAML,
		},
		Engine: EngineConfig{
			AllProjectsName: access.DefaultRootProject,
			AdminGroups:     []string{"administrators"},
		},
		Identity: IdentityConfig{
			Type: IdentityTypeStatic,
			Users: []identity.User{
				{ID: 1000000, Name: "admin", Groups: []access.GroupUUID{"administrators"}},
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
