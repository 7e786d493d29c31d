package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/refperm/internal/bytesize"
	"github.com/marmos91/refperm/pkg/identity"
	"github.com/marmos91/refperm/pkg/project/store"
)

// Config represents the refperm configuration.
//
// It captures the static setup of the permission engine:
//   - Logging, tracing and metrics
//   - The project store backend holding project configs
//   - The project cache and the persisted parsed-config cache
//   - Engine settings (root project, administrator groups)
//   - The identity source used to resolve users and groups
//
// Project access sections themselves live in the store, not here.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (REFPERM_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Store selects where project configs are kept
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Cache configures the project cache and its persisted layer
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Engine contains permission evaluation settings
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`

	// Identity selects how users and group memberships are resolved
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server started by
// "refperm serve".
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics and health endpoints
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// StoreType names a project store backend.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeSQLite   StoreType = "sqlite"
	StoreTypePostgres StoreType = "postgres"
	StoreTypeYAML     StoreType = "yaml"
)

// StoreConfig selects and configures the project store.
type StoreConfig struct {
	// Type is one of memory, sqlite, postgres, yaml
	// Default: yaml
	Type StoreType `mapstructure:"type" validate:"required,oneof=memory sqlite postgres yaml" yaml:"type"`

	// SQLite is used when Type is sqlite
	SQLite store.SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite,omitempty"`

	// Postgres is used when Type is postgres
	Postgres store.PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`

	// YAML is used when Type is yaml
	YAML YAMLStoreConfig `mapstructure:"yaml" yaml:"yaml,omitempty"`
}

// Database returns the GORM database settings for sqlite and postgres stores.
func (c *StoreConfig) Database() *store.DatabaseConfig {
	return &store.DatabaseConfig{
		Type:     store.DatabaseType(c.Type),
		SQLite:   c.SQLite,
		Postgres: c.Postgres,
	}
}

// YAMLStoreConfig configures the directory-of-files project store.
type YAMLStoreConfig struct {
	// Dir holds one <project>.yaml file per project
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Watch evicts cached projects when their file changes on disk
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// CacheConfig configures project caching.
type CacheConfig struct {
	// CheckFrequency is how often cached projects are revalidated against
	// the store. Zero disables revalidation.
	// Default: 5m
	CheckFrequency time.Duration `mapstructure:"check_frequency" validate:"gte=0" yaml:"check_frequency"`

	// SortCacheSize bounds the number of cached specificity orderings.
	// Zero disables the sort cache.
	// Default: 10000
	SortCacheSize int64 `mapstructure:"sort_cache_size" validate:"gte=0" yaml:"sort_cache_size"`

	// Persisted keeps parsed project configs on disk across restarts
	Persisted PersistedCacheConfig `mapstructure:"persisted" yaml:"persisted"`
}

// PersistedCacheConfig configures the badger-backed parsed config cache.
type PersistedCacheConfig struct {
	// Enabled wraps the project store with the persisted cache
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the badger directory
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// InMemory keeps the cache in memory only, mostly for tests
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory,omitempty"`

	// BlockCacheSize is the badger block cache size
	// Supports human-readable formats: "64MB", "256Mi"
	// Default: 64Mi
	BlockCacheSize bytesize.ByteSize `mapstructure:"block_cache_size" yaml:"block_cache_size,omitempty"`
}

// EngineConfig contains permission evaluation settings.
type EngineConfig struct {
	// AllProjectsName is the root of the project hierarchy
	// Default: "All-Projects"
	AllProjectsName string `mapstructure:"all_projects_name" validate:"required" yaml:"all_projects_name"`

	// AdminGroups are group UUIDs whose members are server administrators
	AdminGroups []string `mapstructure:"admin_groups" yaml:"admin_groups,omitempty"`
}

// IdentityType names an identity source.
type IdentityType string

const (
	IdentityTypeStatic IdentityType = "static"
	IdentityTypeStore  IdentityType = "store"
)

// IdentityConfig configures user and group resolution.
type IdentityConfig struct {
	// Type is static (users listed below) or store (accounts tables of a
	// sqlite or postgres project store)
	// Default: static
	Type IdentityType `mapstructure:"type" validate:"required,oneof=static store" yaml:"type"`

	// Users are the static accounts
	Users []identity.User `mapstructure:"users" yaml:"users,omitempty"`

	// Includes maps a group UUID to the group UUIDs it includes. The
	// loader lowercases map keys, so included groups need lowercase UUIDs.
	Includes map[string][]string `mapstructure:"includes" yaml:"includes,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (REFPERM_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  refperm init\n\n"+
				"Or specify a custom config file:\n"+
				"  refperm <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  refperm init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may carry database passwords.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: REFPERM_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("REFPERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/refperm/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize so
// config files can use sizes like "64Mi" or "100MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/refperm, ~/.config/refperm, or "."
// when no home directory can be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "refperm")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "refperm")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
