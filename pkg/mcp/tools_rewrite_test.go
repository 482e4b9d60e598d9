package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/refang/pkg/rules"
	"github.com/Sumatoshi-tech/refang/pkg/rules/argrewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules/magicaccessor"
)

const mailerJobPHP = `<?php

class Mailer
{
    public function send($to, $subject)
    {
    }
}

class Job
{
    public function run(Mailer $mailer)
    {
        $mailer->send('a@b.c');
    }
}
`

const subjectTable = `
Mailer:
  send:
    "1": {op: set_default, value: hi}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	table, err := argrewrite.ParseTable([]byte(subjectTable))
	require.NoError(t, err)

	return NewServer(ServerDeps{Rules: rules.Config{Table: table}})
}

func rewriteOutput(t *testing.T, result *mcpsdk.CallToolResult, output ToolOutput) RewriteOutput {
	t.Helper()

	require.NotNil(t, result)
	require.False(t, result.IsError, "unexpected tool error: %v", result.Content)

	out, ok := output.Data.(RewriteOutput)
	require.True(t, ok)

	return out
}

func errorText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.True(t, result.IsError)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestHandleRewrite_AppliesConfiguredTable(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	result, output, err := srv.handleRewrite(context.Background(), &mcpsdk.CallToolRequest{}, RewriteInput{Code: mailerJobPHP})
	require.NoError(t, err)

	out := rewriteOutput(t, result, output)
	assert.True(t, out.Changed)
	assert.Contains(t, out.Code, "$mailer->send('a@b.c', 'hi');")
	assert.Contains(t, out.Code, "public function send($to, $subject)")
	assert.Contains(t, out.Diff, "--- a/input.php")
	assert.Contains(t, out.Diff, "+        $mailer->send('a@b.c', 'hi');")
	assert.Positive(t, out.Applied[argrewrite.Name])
	assert.False(t, out.Cached)
	assert.Empty(t, out.Warning)
}

func TestHandleRewrite_RuleSelection(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	result, output, err := srv.handleRewrite(context.Background(), &mcpsdk.CallToolRequest{}, RewriteInput{
		Code:  mailerJobPHP,
		Path:  "Job.php",
		Rules: []string{magicaccessor.Name},
	})
	require.NoError(t, err)

	out := rewriteOutput(t, result, output)
	assert.False(t, out.Changed)
	assert.Equal(t, mailerJobPHP, out.Code)
	assert.Empty(t, out.Diff)
}

func TestHandleRewrite_InlineTable(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, output, err := srv.handleRewrite(context.Background(), &mcpsdk.CallToolRequest{}, RewriteInput{
		Code:  mailerJobPHP,
		Table: "Mailer:\n  send:\n    \"2\": {op: set_default, value: 3}\n",
	})
	require.NoError(t, err)

	out := rewriteOutput(t, result, output)
	assert.Contains(t, out.Code, "public function send($to, $subject, $arg2 = 3)")
}

func TestHandleRewrite_CachesResults(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	input := RewriteInput{Code: mailerJobPHP}

	result, output, err := srv.handleRewrite(context.Background(), &mcpsdk.CallToolRequest{}, input)
	require.NoError(t, err)

	first := rewriteOutput(t, result, output)

	result, output, err = srv.handleRewrite(context.Background(), &mcpsdk.CallToolRequest{}, input)
	require.NoError(t, err)

	second := rewriteOutput(t, result, output)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Code, second.Code)

	stats := srv.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestHandleRewrite_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input RewriteInput
		want  string
	}{
		{name: "empty code", input: RewriteInput{}, want: "code parameter is required"},
		{
			name:  "too large",
			input: RewriteInput{Code: strings.Repeat("a", MaxCodeInputBytes+1)},
			want:  "exceeds maximum size",
		},
		{name: "unsupported path", input: RewriteInput{Code: "package main\n", Path: "main.go"}, want: "main.go"},
		{name: "unknown rule", input: RewriteInput{Code: "<?php\n", Rules: []string{"nope"}}, want: "unknown rule"},
		{name: "bad table", input: RewriteInput{Code: "<?php\n", Table: "Mailer: [1, 2"}, want: "parse table"},
		{
			name:  "syntax error",
			input: RewriteInput{Code: "<?php\nclass A {\n    public function f( {\n}\n"},
			want:  "rewrite",
		},
	}

	srv := newTestServer(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, _, err := srv.handleRewrite(context.Background(), &mcpsdk.CallToolRequest{}, tt.input)
			require.NoError(t, err)
			assert.Contains(t, errorText(t, result), tt.want)
		})
	}
}

func TestHandleRules(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	result, output, err := srv.handleRules(context.Background(), &mcpsdk.CallToolRequest{}, RulesInput{})
	require.NoError(t, err)
	require.False(t, result.IsError)

	infos, ok := output.Data.([]rules.Info)
	require.True(t, ok)
	require.Len(t, infos, 2)
	assert.Equal(t, magicaccessor.Name, infos[0].Name)
	assert.Equal(t, "1 methods across 1 types", infos[1].Description)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"name": "argument_rewrite"`)
}
