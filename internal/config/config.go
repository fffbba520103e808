// Package config manages the RADIUS daemon configuration using koanf/v2.
//
// Supports defaults, YAML files, and environment variables, layered in
// that order: each layer overrides the one before it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete radiusd configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig holds the RADIUS server's own settings.
type ServerConfig struct {
	// BindAddr is the local address the three UDP sockets bind to.
	BindAddr string `koanf:"bind_addr"`

	// Driver selects the event-loop driver: "sync" (epoll readiness
	// loop) or "async" (goroutine-per-socket).
	Driver string `koanf:"driver"`

	// DictionaryPath is the base dictionary file to load; INCLUDE
	// directives within it pull in vendor files.
	DictionaryPath string `koanf:"dictionary_path"`

	// Secret is the shared secret used for every host in AllowedHosts,
	// unless HostSecrets overrides a specific host.
	Secret string `koanf:"secret"`

	// AllowedHosts is the source-address allow-list.
	AllowedHosts []string `koanf:"allowed_hosts"`

	// HostSecrets optionally overrides Secret on a per-host basis.
	HostSecrets map[string]string `koanf:"host_secrets"`

	// AuthPort, AcctPort, CoAPort are the three service ports
	// (RFC defaults: 1812, 1813, 3799).
	AuthPort uint16 `koanf:"auth_port"`
	AcctPort uint16 `koanf:"acct_port"`
	CoAPort  uint16 `koanf:"coa_port"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddr: "0.0.0.0",
			Driver:   "async",
			AuthPort: 1812,
			AcctPort: 1813,
			CoAPort:  3799,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for radiusd configuration.
// Variables are named RADIUSD_<section>_<key>, e.g. RADIUSD_SERVER_SECRET.
const envPrefix = "RADIUSD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (RADIUSD_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms RADIUSD_SERVER_SECRET -> server.secret and
// RADIUSD_SERVER_BIND_ADDR -> server.bind_addr: only the first underscore
// after the prefix separates section from key.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"server.bind_addr": defaults.Server.BindAddr,
		"server.driver":    defaults.Server.Driver,
		"server.auth_port": defaults.Server.AuthPort,
		"server.acct_port": defaults.Server.AcctPort,
		"server.coa_port":  defaults.Server.CoAPort,
		"metrics.addr":     defaults.Metrics.Addr,
		"metrics.path":     defaults.Metrics.Path,
		"log.level":        defaults.Log.Level,
		"log.format":       defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyDictionaryPath indicates no dictionary file was configured.
	ErrEmptyDictionaryPath = errors.New("server.dictionary_path must not be empty")

	// ErrEmptySecret indicates no shared secret was configured.
	ErrEmptySecret = errors.New("server.secret must not be empty unless every host has an explicit host_secrets entry")

	// ErrNoAllowedHosts indicates the allow-list is empty.
	ErrNoAllowedHosts = errors.New("server.allowed_hosts must not be empty")

	// ErrInvalidDriver indicates an unrecognized event-loop driver.
	ErrInvalidDriver = errors.New("server.driver must be \"sync\" or \"async\"")

	// ErrDuplicatePort indicates two services were configured on the
	// same port.
	ErrDuplicatePort = errors.New("auth_port, acct_port and coa_port must be distinct")
)

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if cfg.Server.DictionaryPath == "" {
		return ErrEmptyDictionaryPath
	}
	if len(cfg.Server.AllowedHosts) == 0 {
		return ErrNoAllowedHosts
	}
	if cfg.Server.Secret == "" {
		for _, host := range cfg.Server.AllowedHosts {
			if _, ok := cfg.Server.HostSecrets[host]; !ok {
				return ErrEmptySecret
			}
		}
	}
	if cfg.Server.Driver != "sync" && cfg.Server.Driver != "async" {
		return ErrInvalidDriver
	}
	if cfg.Server.AuthPort == cfg.Server.AcctPort || cfg.Server.AuthPort == cfg.Server.CoAPort || cfg.Server.AcctPort == cfg.Server.CoAPort {
		return ErrDuplicatePort
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
