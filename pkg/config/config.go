// Package config loads the service configuration from a YAML file with
// environment variable overrides, applying defaults and validating at load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Macros   MacrosConfig   `yaml:"macros"`
	Sessions SessionsConfig `yaml:"sessions"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	RequestTimeout  Duration `yaml:"request_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MacrosConfig bounds the macro resolver.
type MacrosConfig struct {
	MaxDepth         int `yaml:"max_depth"`
	MaxSubstitutions int `yaml:"max_substitutions"`
}

// SessionsConfig configures per-session serialization and element waits.
type SessionsConfig struct {
	GuardTimeout Duration `yaml:"guard_timeout"`
	WaitTimeout  Duration `yaml:"wait_timeout"`
}

// PluginsConfig configures manifest loading and the invocation allowlist.
// Allow and Deny hold glob patterns matched against canonical plugin keys;
// an empty allow list permits every registered plugin.
type PluginsConfig struct {
	ManifestDir string   `yaml:"manifest_dir"`
	Allow       []string `yaml:"allow"`
	Deny        []string `yaml:"deny"`
}

// HistoryConfig configures the invocation audit log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Limit   int    `yaml:"limit"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9944,
			RequestTimeout:  Duration(2 * time.Minute),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Macros: MacrosConfig{
			MaxDepth:         8,
			MaxSubstitutions: 64,
		},
		Sessions: SessionsConfig{
			GuardTimeout: Duration(30 * time.Second),
			WaitTimeout:  Duration(10 * time.Second),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "g4-plugins.db",
			Limit:   50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path, merges it over the defaults,
// applies environment overrides, and validates the result. A missing file
// is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults apply
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays G4_* environment variables over the loaded file.
func applyEnv(cfg *Config) {
	if host := os.Getenv("G4_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("G4_SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = n
		}
	}
	if dir := os.Getenv("G4_MANIFEST_DIR"); dir != "" {
		cfg.Plugins.ManifestDir = dir
	}
	if path := os.Getenv("G4_HISTORY_PATH"); path != "" {
		cfg.History.Path = path
	}
	if level := os.Getenv("G4_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("G4_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Macros.MaxDepth < 1 {
		return fmt.Errorf("macros.max_depth must be positive, got %d", c.Macros.MaxDepth)
	}
	if c.Macros.MaxSubstitutions < 1 {
		return fmt.Errorf("macros.max_substitutions must be positive, got %d", c.Macros.MaxSubstitutions)
	}
	if c.Sessions.GuardTimeout <= 0 {
		return fmt.Errorf("sessions.guard_timeout must be positive, got %s", c.Sessions.GuardTimeout)
	}
	if c.Sessions.WaitTimeout <= 0 {
		return fmt.Errorf("sessions.wait_timeout must be positive, got %s", c.Sessions.WaitTimeout)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	return nil
}
