package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
)

const mailerPHP = `<?php

namespace App;

class Mailer
{
    public function send($to, $subject)
    {
    }
}
`

const jobPHP = `<?php

namespace App;

class Job
{
    public function run(Mailer $mailer)
    {
        $mailer->send('a@b.c');
    }
}
`

const changeTable = `App\Mailer:
  send:
    "1": {op: set_default, value: hi}
`

// project writes a small PHP project with a config pointing at its change
// table and returns the project dir and config path.
func project(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Mailer.php"), []byte(mailerPHP), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Job.php"), []byte(jobPHP), 0o600))

	tablePath := filepath.Join(dir, "changes.yaml")
	require.NoError(t, os.WriteFile(tablePath, []byte(changeTable), 0o600))

	cfgPath := filepath.Join(dir, "refang.yaml")
	cfg := "rules:\n  argument_rewrite:\n    table: " + tablePath + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	return src, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestRootCmd_Commands(t *testing.T) {
	t.Parallel()

	names := make([]string, 0)
	for _, sub := range newRootCmd().Commands() {
		names = append(names, sub.Name())
	}

	assert.Subset(t, names, []string{"process", "rules", "mcp", "version"})
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "refang ")
	assert.Contains(t, out, "commit:")
}

func TestProcessCmd_DryRun(t *testing.T) {
	t.Parallel()

	src, cfgPath := project(t)

	out, err := execute(t, "--config", cfgPath, "process", src)
	require.NoError(t, err)

	assert.Contains(t, out, "-        $mailer->send('a@b.c');")
	assert.Contains(t, out, "+        $mailer->send('a@b.c', 'hi');")
	assert.Contains(t, out, "Job.php")

	content, readErr := os.ReadFile(filepath.Join(src, "Job.php"))
	require.NoError(t, readErr)
	assert.Equal(t, jobPHP, string(content))
}

func TestProcessCmd_Write(t *testing.T) {
	t.Parallel()

	src, cfgPath := project(t)

	_, err := execute(t, "--config", cfgPath, "--quiet", "process", "--write", src)
	require.NoError(t, err)

	content, readErr := os.ReadFile(filepath.Join(src, "Job.php"))
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "$mailer->send('a@b.c', 'hi');")

	out, err := execute(t, "--config", cfgPath, "process", "--check", src)
	require.NoError(t, err, "a second run finds nothing to do")
	assert.NotContains(t, out, "+        $mailer")
}

func TestProcessCmd_Check(t *testing.T) {
	t.Parallel()

	src, cfgPath := project(t)

	_, err := execute(t, "--config", cfgPath, "--quiet", "process", "--check", src)
	require.ErrorIs(t, err, ErrChangesPending)
}

func TestProcessCmd_Errors(t *testing.T) {
	t.Parallel()

	src, cfgPath := project(t)

	_, err := execute(t, "--config", cfgPath, "process", "--rules", "nope", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rule")

	_, err = execute(t, "--config", cfgPath, "process", t.TempDir())
	require.ErrorIs(t, err, rewrite.ErrNoSources)

	_, err = execute(t, "--config", cfgPath, "process", "--max-file-size", "huge", src)
	require.Error(t, err)
}

func TestRulesCmd(t *testing.T) {
	t.Parallel()

	_, cfgPath := project(t)

	out, err := execute(t, "--config", cfgPath, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "magic_accessor")
	assert.Contains(t, out, "argument_rewrite")
	assert.Contains(t, out, `App\Mailer::send 1=set_default('hi')`)
}

func TestFormatApplied(t *testing.T) {
	t.Parallel()

	assert.Empty(t, formatApplied(nil))
	assert.Equal(t, "a=2 b=1", formatApplied(map[string]int{"b": 1, "a": 2, "c": 0}))
}

func TestFileStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, rewrite.FileFailed, fileStatus(rewrite.FileResult{Err: rewrite.ErrNoSources}))
	assert.Equal(t, rewrite.FileChanged, fileStatus(rewrite.FileResult{Diff: "--- a/x\n"}))
	assert.Equal(t, rewrite.FileUnchanged, fileStatus(rewrite.FileResult{}))
}

func TestParseCacheSize(t *testing.T) {
	t.Parallel()

	size, err := parseCacheSize("")
	require.NoError(t, err)
	assert.Zero(t, size)

	size, err = parseCacheSize("1 KiB")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), size)

	_, err = parseCacheSize("lots")
	require.Error(t, err)
}
