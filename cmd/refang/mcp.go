package main

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/refang/pkg/mcp"
	"github.com/Sumatoshi-tech/refang/pkg/observability"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
)

// errCacheSizeTooLarge is returned for cache sizes beyond int64.
var errCacheSizeTooLarge = errors.New("cache size too large")

func mcpCmd(root *rootOptions) *cobra.Command {
	var cacheSize string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes refang as tools that AI agents can discover and invoke:
  - refang_rewrite: Rewrite inline PHP code and return the result and diff
  - refang_rules: List the configured rewrite rules`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			size, err := parseCacheSize(cacheSize)
			if err != nil {
				return err
			}

			a, err := newApp(root, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer a.close()

			rulesCfg, err := a.rulesConfig(nil, "")
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(a.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:        a.logger,
				Metrics:       red,
				Tracer:        a.providers.Tracer,
				Rules:         rulesCfg,
				EngineOptions: a.engineOptions(),
				CacheSize:     size,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().StringVar(&cacheSize, "cache-size", "", "Rewrite result cache size (e.g., '64MiB'; empty = default)")

	return cmd
}

// parseCacheSize parses --cache-size; empty selects the cache default.
func parseCacheSize(text string) (int64, error) {
	size, err := rewrite.ParseSize(text)
	if err != nil {
		return 0, fmt.Errorf("--cache-size: %w", err)
	}

	if size > math.MaxInt64 {
		return 0, fmt.Errorf("--cache-size: %w", errCacheSizeTooLarge)
	}

	return int64(size), nil
}
