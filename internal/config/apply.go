package config

import (
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/refang/pkg/observability"
	"github.com/Sumatoshi-tech/refang/pkg/rules"
	"github.com/Sumatoshi-tech/refang/pkg/rules/argrewrite"
)

// RulesConfig builds the rule selection, loading the change table when
// one is configured.
func (c *Config) RulesConfig(logger *slog.Logger) (rules.Config, error) {
	out := rules.Config{
		Enabled:    c.Rules.Enabled,
		LegacyBase: c.Rules.MagicAccessor.LegacyBase,
		Logger:     logger,
	}

	if path := c.Rules.ArgumentRewrite.Table; path != "" {
		table, err := argrewrite.LoadTable(path)
		if err != nil {
			return rules.Config{}, fmt.Errorf("rules.argument_rewrite.table: %w", err)
		}

		out.Table = table
	}

	return out, nil
}

// ObservabilityConfig merges logging and telemetry settings into base.
func (c *Config) ObservabilityConfig(base observability.Config) observability.Config {
	if level, err := c.LogLevel(); err == nil {
		base.LogLevel = level
	}

	base.LogJSON = base.LogJSON || c.Logging.JSON

	if c.Observability.OTLPEndpoint != "" {
		base.OTLPEndpoint = c.Observability.OTLPEndpoint
		base.OTLPInsecure = c.Observability.OTLPInsecure
	}

	if c.Observability.MetricsAddr != "" {
		base.Prometheus = true
	}

	return base
}
