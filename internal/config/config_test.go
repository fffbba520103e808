package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/radiusgo/radiusd/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.Server.BindAddr != "0.0.0.0" {
		t.Errorf("Server.BindAddr = %q, want %q", cfg.Server.BindAddr, "0.0.0.0")
	}
	if cfg.Server.Driver != "async" {
		t.Errorf("Server.Driver = %q, want %q", cfg.Server.Driver, "async")
	}
	if cfg.Server.AuthPort != 1812 || cfg.Server.AcctPort != 1813 || cfg.Server.CoAPort != 3799 {
		t.Errorf("default ports = %d/%d/%d, want 1812/1813/3799", cfg.Server.AuthPort, cfg.Server.AcctPort, cfg.Server.CoAPort)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	// DefaultConfig alone lacks a dictionary path and allow-list, so it
	// should fail validation until a caller supplies those.
	if err := config.Validate(cfg); !errors.Is(err, config.ErrEmptyDictionaryPath) {
		t.Errorf("Validate(DefaultConfig()) error = %v, want ErrEmptyDictionaryPath", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
server:
  bind_addr: "127.0.0.1"
  driver: "sync"
  dictionary_path: "/etc/radiusd/dictionary"
  secret: "testing123"
  allowed_hosts:
    - "127.0.0.1"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
`
	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Server.BindAddr != "127.0.0.1" {
		t.Errorf("Server.BindAddr = %q, want %q", cfg.Server.BindAddr, "127.0.0.1")
	}
	if cfg.Server.Driver != "sync" {
		t.Errorf("Server.Driver = %q, want %q", cfg.Server.Driver, "sync")
	}
	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	// Ports should inherit defaults since the YAML didn't override them.
	if cfg.Server.AuthPort != 1812 {
		t.Errorf("Server.AuthPort = %d, want default 1812", cfg.Server.AuthPort)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	yamlContent := `
server:
  dictionary_path: "/etc/radiusd/dictionary"
  secret: "testing123"
  allowed_hosts: ["127.0.0.1"]
log:
  level: "warn"
`
	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Server.BindAddr != "0.0.0.0" {
		t.Errorf("Server.BindAddr = %q, want default %q", cfg.Server.BindAddr, "0.0.0.0")
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "json")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	baseValid := func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Server.DictionaryPath = "/etc/radiusd/dictionary"
		cfg.Server.Secret = "testing123"
		cfg.Server.AllowedHosts = []string{"127.0.0.1"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name:    "empty dictionary path",
			modify:  func(cfg *config.Config) { cfg.Server.DictionaryPath = "" },
			wantErr: config.ErrEmptyDictionaryPath,
		},
		{
			name:    "no allowed hosts",
			modify:  func(cfg *config.Config) { cfg.Server.AllowedHosts = nil },
			wantErr: config.ErrNoAllowedHosts,
		},
		{
			name: "empty secret without per-host override",
			modify: func(cfg *config.Config) {
				cfg.Server.Secret = ""
			},
			wantErr: config.ErrEmptySecret,
		},
		{
			name:    "invalid driver",
			modify:  func(cfg *config.Config) { cfg.Server.Driver = "bogus" },
			wantErr: config.ErrInvalidDriver,
		},
		{
			name:    "duplicate ports",
			modify:  func(cfg *config.Config) { cfg.Server.AcctPort = cfg.Server.AuthPort },
			wantErr: config.ErrDuplicatePort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := baseValid()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmptySecretWithHostSecrets(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Server.DictionaryPath = "/etc/radiusd/dictionary"
	cfg.Server.AllowedHosts = []string{"127.0.0.1"}
	cfg.Server.HostSecrets = map[string]string{"127.0.0.1": "per-host-secret"}

	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate() with per-host secret returned error: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	// Environment variable tests cannot be parallel because they modify
	// process-wide state (os.Setenv).

	yamlContent := `
server:
  dictionary_path: "/etc/radiusd/dictionary"
  secret: "testing123"
  allowed_hosts: ["127.0.0.1"]
log:
  level: "info"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("RADIUSD_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "debug")
	}
}

// writeTemp creates a temporary YAML file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "radiusd.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
