package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameRewrite = "refang_rewrite"
	ToolNameRules   = "refang_rules"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20
)

// defaultPath names inline code in diffs when the caller gives no path.
const defaultPath = "input.php"

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
)

// Input types (auto-generate JSON schemas via struct tags).

// RewriteInput is the input schema for the refang_rewrite tool.
type RewriteInput struct {
	Code  string   `json:"code"            jsonschema:"PHP source code to rewrite"`
	Path  string   `json:"path,omitempty"  jsonschema:"optional file name used in the diff header (default: input.php)"`
	Rules []string `json:"rules,omitempty" jsonschema:"optional list of rule names to run (default: all configured)"`
	Table string   `json:"table,omitempty" jsonschema:"optional YAML argument change table replacing the configured one"`
}

// RulesInput is the input schema for the refang_rules tool.
type RulesInput struct{}

// RewriteOutput is the result of one refang_rewrite call.
type RewriteOutput struct {
	Code    string         `json:"code"`
	Changed bool           `json:"changed"`
	Diff    string         `json:"diff,omitempty"`
	Applied map[string]int `json:"applied,omitempty"`
	Passes  int            `json:"passes"`
	Warning string         `json:"warning,omitempty"`
	Cached  bool           `json:"cached,omitempty"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateCodeInput checks common code input constraints.
func validateCodeInput(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}
