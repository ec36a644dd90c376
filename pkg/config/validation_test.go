package config

import (
	"strings"
	"testing"

	"github.com/marmos91/fsbroker/internal/bytesize"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}

	cfg = GetDefaultConfig()
	cfg.Server.Port = -2
	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for broker port -2")
	}
}

func TestValidate_EphemeralPortsAllowed(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = -1
	cfg.API.Port = -1

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected port -1 to be accepted, got: %v", err)
	}
}

func TestValidate_IOSizeAboveFrameSize(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.MaxFrameSize = bytesize.MiB
	cfg.Server.MaxIOSize = 2 * bytesize.MiB

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for max_io_size above max_frame_size")
	}
	if !strings.Contains(err.Error(), "server") {
		t.Errorf("Expected error to name the server section, got: %v", err)
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Backend.Type = "ftp"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown backend type")
	}
}

func TestValidate_MetricsNeedAPI(t *testing.T) {
	cfg := GetDefaultConfig()
	off := false
	cfg.API.Enabled = &off
	cfg.Metrics.Enabled = true

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for metrics without the API server")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for telemetry without endpoint")
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate above 1")
	}
}
