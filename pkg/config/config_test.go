package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/fsbroker/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

server:
  port: 9500
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 9500 {
		t.Errorf("Expected server port 9500, got %d", cfg.Server.Port)
	}
	if cfg.Backend.Type != "memory" {
		t.Errorf("Expected default backend 'memory', got %q", cfg.Backend.Type)
	}
	if cfg.API.Port != 9401 {
		t.Errorf("Expected API port 9401, got %d", cfg.API.Port)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Server.Port != 9400 {
		t.Errorf("Expected default broker port 9400, got %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[server]
max_frame_size = "1Mi"
max_io_size = "256Ki"

[server.timeouts]
idle = "90s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Server.MaxFrameSize != bytesize.MiB {
		t.Errorf("Expected max_frame_size 1Mi, got %v", cfg.Server.MaxFrameSize)
	}
	if cfg.Server.MaxIOSize != 256*bytesize.KiB {
		t.Errorf("Expected max_io_size 256Ki, got %v", cfg.Server.MaxIOSize)
	}
	if cfg.Server.Timeouts.Idle != 90*time.Second {
		t.Errorf("Expected idle timeout 90s, got %v", cfg.Server.Timeouts.Idle)
	}
}

func TestLoad_BackendSection(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, "config.yaml", `
backend:
  type: local
  local:
    root: "`+yamlSafePath(root)+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Backend.Type != "local" {
		t.Errorf("Expected backend 'local', got %q", cfg.Backend.Type)
	}
	if cfg.Backend.Local["root"] != yamlSafePath(root) {
		t.Errorf("Expected local root %q, got %v", root, cfg.Backend.Local["root"])
	}
}

func TestLoad_RejectsUnknownBackendOption(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
backend:
  type: badger
  badger:
    in_memory: true
    compression: zstd
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for unknown badger option")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.MaxFrameSize != 16*bytesize.MiB {
		t.Errorf("Expected default frame size 16Mi, got %v", cfg.Server.MaxFrameSize)
	}
	if cfg.API.Port != 9401 {
		t.Errorf("Expected default API port 9401, got %d", cfg.API.Port)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	if base := filepath.Base(GetConfigDir()); base != "fsbroker" {
		t.Errorf("Expected directory name 'fsbroker', got %q", base)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("FSBROKER_LOGGING_LEVEL", "ERROR")
	t.Setenv("FSBROKER_SERVER_PORT", "9600")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

server:
  port: 9400
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override the config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Port != 9600 {
		t.Errorf("Expected port 9600 from env var, got %d", cfg.Server.Port)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Server.MaxConnections = 12
	cfg.Server.Timeouts.Read = 2 * time.Minute
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Server.MaxConnections != 12 {
		t.Errorf("Expected max_connections 12, got %d", loaded.Server.MaxConnections)
	}
	if loaded.Server.Timeouts.Read != 2*time.Minute {
		t.Errorf("Expected read timeout 2m, got %v", loaded.Server.Timeouts.Read)
	}
}
