package config

import (
	"strings"
	"testing"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/converter"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PLC.Source != SourceDump || cfg.PLC.DumpDir != "/var/lib/kilnwatch/dumps" {
		t.Errorf("unexpected plc config: %+v", cfg.PLC)
	}
	if cfg.PLC.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v", cfg.PLC.PollInterval)
	}
	if len(cfg.Layouts.Blocks) != 2 || cfg.Layouts.Blocks[1] != "db6_vibration" {
		t.Errorf("blocks = %v", cfg.Layouts.Blocks)
	}
	if cfg.Decode.Workers != 4 {
		t.Errorf("workers = %d", cfg.Decode.Workers)
	}

	reg := cfg.Converters.Registry()
	if reg.DisplacementMode != converter.HighPrecision || !reg.DB6HighPrecision {
		t.Errorf("registry config = %+v", reg)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PLC.Source != SourceS7 || cfg.PLC.Rack != 0 || cfg.PLC.Slot != 1 {
		t.Errorf("unexpected plc defaults: %+v", cfg.PLC)
	}
	if cfg.PLC.Timeout != 5*time.Second || cfg.PLC.PollInterval != 5*time.Second {
		t.Errorf("unexpected timing defaults: %+v", cfg.PLC)
	}
	if cfg.Layouts.Modules != "plc_modules" {
		t.Errorf("modules = %q", cfg.Layouts.Modules)
	}
	if cfg.Decode.Workers != 1 || cfg.Logging.Level != "info" {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Decode, cfg.Logging)
	}
	if cfg.Converters.Registry().DisplacementMode != converter.HighRange {
		t.Error("displacement mode should default to high_range")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("KILN_PLC_ADDRESS", "10.0.0.5")
	t.Setenv("KILN_DECODE_WORKERS", "8")

	cfg, err := Load("testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PLC.Address != "10.0.0.5" {
		t.Errorf("address = %q", cfg.PLC.Address)
	}
	if cfg.Decode.Workers != 8 {
		t.Errorf("workers = %d", cfg.Decode.Workers)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("testdata/missing.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := Load("testdata/bad_mode.yaml")
	if err == nil || !strings.Contains(err.Error(), "displacement mode") {
		t.Errorf("expected displacement mode error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			PLC:        PLCConfig{Source: SourceS7, Address: "plc", PollInterval: time.Second},
			Layouts:    LayoutsConfig{Modules: "plc_modules"},
			Converters: ConvertersConfig{VibrationDisplacementMode: "high_range"},
			Decode:     DecodeConfig{Workers: 1},
			Logging:    LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.PLC.Source = "opcua" }},
		{"s7 without address", func(c *Config) { c.PLC.Address = "" }},
		{"dump without dir", func(c *Config) { c.PLC.Source = SourceDump; c.PLC.DumpDir = "" }},
		{"zero poll interval", func(c *Config) { c.PLC.PollInterval = 0 }},
		{"no modules file", func(c *Config) { c.Layouts.Modules = "" }},
		{"zero workers", func(c *Config) { c.Decode.Workers = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	valid := base()
	if err := valid.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		l := LoggingConfig{Level: "warn", Development: dev}
		logger, err := l.NewLogger()
		if err != nil {
			t.Fatalf("NewLogger(dev=%v): %v", dev, err)
		}
		if logger.Core().Enabled(-1) {
			t.Errorf("dev=%v: debug should be disabled at warn level", dev)
		}
	}

	bad := LoggingConfig{Level: "nope"}
	if _, err := bad.NewLogger(); err == nil {
		t.Error("expected error for invalid level")
	}
}
