package mcp

import (
	"context"
	"fmt"
	"maps"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/refang/internal/cache"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules"
	"github.com/Sumatoshi-tech/refang/pkg/rules/argrewrite"
	"github.com/Sumatoshi-tech/refang/pkg/uast"
)

// handleRewrite processes refang_rewrite tool calls. The code is indexed on
// its own, so only classes declared in it are known to the rules.
func (s *Server) handleRewrite(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input RewriteInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	path := input.Path
	if path == "" {
		path = defaultPath
	}

	if !uast.IsSupported(path) {
		return errorResult(fmt.Errorf("%w: %s", uast.ErrUnsupportedFile, path))
	}

	cfg, err := s.rulesFor(input)
	if err != nil {
		return errorResult(err)
	}

	key := cache.KeyOf([]byte(path), []byte(strings.Join(cfg.Enabled, ",")), []byte(input.Table), []byte(input.Code))
	if cached, ok := s.results.Get(key); ok {
		cached.Cached = true

		return jsonResult(cached)
	}

	processor := rewrite.NewProcessor(rules.Factory(cfg),
		rewrite.WithWorkers(1),
		rewrite.WithEngineOptions(s.engineOpts...),
		rewrite.WithProcessorLogger(s.logger),
	)

	results, err := processor.Process(ctx, []rewrite.Source{{Path: path, Content: []byte(input.Code)}})
	if err != nil {
		return errorResult(fmt.Errorf("rewrite: %w", err))
	}

	result := results[0]

	output := RewriteOutput{
		Code:    string(result.After),
		Changed: result.Changed(),
		Diff:    result.Diff,
		Applied: maps.Clone(result.Stats.Applied),
		Passes:  result.Stats.Passes,
	}

	if result.Warning != nil {
		output.Warning = result.Warning.Error()
	}

	s.results.Put(key, output, int64(len(output.Code)+len(output.Diff)))

	return jsonResult(output)
}

// rulesFor narrows the server's rule configuration to the call's input.
func (s *Server) rulesFor(input RewriteInput) (rules.Config, error) {
	cfg := s.rules
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}

	if len(input.Rules) > 0 {
		cfg.Enabled = input.Rules
	}

	if input.Table != "" {
		table, err := argrewrite.ParseTable([]byte(input.Table))
		if err != nil {
			return rules.Config{}, fmt.Errorf("parse table: %w", err)
		}

		cfg.Table = table
	}

	err := cfg.Validate()
	if err != nil {
		return rules.Config{}, err
	}

	return cfg, nil
}

// handleRules processes refang_rules tool calls.
func (s *Server) handleRules(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	_ RulesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	infos, err := rules.Describe(s.rules)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(infos)
}
