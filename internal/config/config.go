package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/converter"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	SourceS7   = "s7"
	SourceDump = "dump"
)

type Config struct {
	PLC        PLCConfig        `mapstructure:"plc"`
	Layouts    LayoutsConfig    `mapstructure:"layouts"`
	Converters ConvertersConfig `mapstructure:"converters"`
	Decode     DecodeConfig     `mapstructure:"decode"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type PLCConfig struct {
	Source       string        `mapstructure:"source"`
	Address      string        `mapstructure:"address"`
	Rack         int           `mapstructure:"rack"`
	Slot         int           `mapstructure:"slot"`
	Timeout      time.Duration `mapstructure:"timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DumpDir      string        `mapstructure:"dump_dir"`
}

type LayoutsConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
	Modules     string   `mapstructure:"modules"`
	Blocks      []string `mapstructure:"blocks"`
}

type ConvertersConfig struct {
	VibrationDisplacementMode string `mapstructure:"vibration_displacement_mode"`
	DB6HighPrecision          bool   `mapstructure:"db6_high_precision"`
}

type DecodeConfig struct {
	Workers int `mapstructure:"workers"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads the YAML config at path. Every key can be overridden from the
// environment with the KILN_ prefix, e.g. KILN_PLC_ADDRESS.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("plc.source", SourceS7)
	v.SetDefault("plc.address", "192.168.0.1")
	v.SetDefault("plc.rack", 0)
	v.SetDefault("plc.slot", 1)
	v.SetDefault("plc.timeout", "5s")
	v.SetDefault("plc.idle_timeout", "60s")
	v.SetDefault("plc.poll_interval", "5s")
	v.SetDefault("plc.dump_dir", "dumps")

	v.SetDefault("layouts.search_paths", []string{"configs/layouts"})
	v.SetDefault("layouts.modules", "plc_modules")
	v.SetDefault("layouts.blocks", []string{})

	v.SetDefault("converters.vibration_displacement_mode", string(converter.HighRange))
	v.SetDefault("converters.db6_high_precision", false)

	v.SetDefault("decode.workers", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetEnvPrefix("KILN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.PLC.Source {
	case SourceS7:
		if c.PLC.Address == "" {
			return fmt.Errorf("plc.address is required for source %s", SourceS7)
		}
	case SourceDump:
		if c.PLC.DumpDir == "" {
			return fmt.Errorf("plc.dump_dir is required for source %s", SourceDump)
		}
	default:
		return fmt.Errorf("unknown plc.source %q", c.PLC.Source)
	}

	if c.PLC.PollInterval <= 0 {
		return fmt.Errorf("plc.poll_interval must be positive")
	}
	if c.Layouts.Modules == "" {
		return fmt.Errorf("layouts.modules is required")
	}
	if c.Decode.Workers < 1 {
		return fmt.Errorf("decode.workers must be at least 1")
	}
	if _, err := converter.ParseDisplacementMode(c.Converters.VibrationDisplacementMode); err != nil {
		return fmt.Errorf("converters: %w", err)
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// Registry returns the converter registry settings. Validate has already
// checked the displacement mode.
func (c *ConvertersConfig) Registry() converter.RegistryConfig {
	mode, _ := converter.ParseDisplacementMode(c.VibrationDisplacementMode)
	return converter.RegistryConfig{
		DisplacementMode: mode,
		DB6HighPrecision: c.DB6HighPrecision,
	}
}

// NewLogger builds a production (JSON) or development (console) logger at the
// configured level.
func (l *LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	return zc.Build()
}
