package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules"
)

// Default configuration values.
const (
	DefaultMaxPasses   = rewrite.DefaultMaxPasses
	DefaultWorkers     = 0
	DefaultMaxFileSize = "2 MiB"
	DefaultLogLevel    = "info"
)

// Config is the top-level configuration struct for refang.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Rules         RulesConfig         `mapstructure:"rules"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// RulesConfig selects and configures rewrite rules.
type RulesConfig struct {
	// Enabled lists rule names to run; empty runs every rule.
	Enabled         []string              `mapstructure:"enabled"`
	MagicAccessor   MagicAccessorConfig   `mapstructure:"magic_accessor"`
	ArgumentRewrite ArgumentRewriteConfig `mapstructure:"argument_rewrite"`
}

// MagicAccessorConfig holds magic accessor rule settings.
type MagicAccessorConfig struct {
	LegacyBase string `mapstructure:"legacy_base"`
}

// ArgumentRewriteConfig holds argument rewrite rule settings.
type ArgumentRewriteConfig struct {
	// Table is the path of the YAML change table.
	Table string `mapstructure:"table"`
}

// EngineConfig holds driver knobs.
type EngineConfig struct {
	MaxPasses   int    `mapstructure:"max_passes"`
	Workers     int    `mapstructure:"workers"`
	MaxFileSize string `mapstructure:"max_file_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMaxPasses indicates the pass limit is not positive.
	ErrInvalidMaxPasses = errors.New("engine.max_passes must be positive")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("engine.workers must be non-negative")
	// ErrInvalidMaxFileSize indicates the size limit cannot be parsed.
	ErrInvalidMaxFileSize = errors.New("engine.max_file_size is not a byte size")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	engineErr := c.validateEngine()
	if engineErr != nil {
		return engineErr
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	rulesErr := (rules.Config{Enabled: c.Rules.Enabled}).Validate()
	if rulesErr != nil {
		return fmt.Errorf("rules.enabled: %w", rulesErr)
	}

	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.MaxPasses <= 0 {
		return ErrInvalidMaxPasses
	}

	if c.Engine.Workers < 0 {
		return ErrInvalidWorkers
	}

	if _, err := c.MaxFileSize(); err != nil {
		return err
	}

	return nil
}

// MaxFileSize returns engine.max_file_size in bytes; zero means unlimited.
func (c *Config) MaxFileSize() (uint64, error) {
	size, err := rewrite.ParseSize(c.Engine.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMaxFileSize, err)
	}

	return size, nil
}

// LogLevel returns logging.level as a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
}
