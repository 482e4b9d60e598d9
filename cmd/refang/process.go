package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/refang/pkg/observability"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules"
	"github.com/Sumatoshi-tech/refang/pkg/textutil"
	"github.com/Sumatoshi-tech/refang/pkg/uast"
)

// ErrChangesPending is returned by --check when files would be rewritten.
var ErrChangesPending = errors.New("files need rewriting")

// processOptions holds the process command flags.
type processOptions struct {
	write         bool
	check         bool
	noColor       bool
	includeVendor bool
	workers       int
	maxFileSize   string
	rules         []string
	table         string
}

func processCmd(root *rootOptions) *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process [paths...]",
		Short: "Rewrite PHP files",
		Long: `Rewrite the PHP files found under the given paths (default: current directory).

Without --write the rewrite is a dry run: a unified diff is printed for every
changed file. Vendored and dot-prefixed directories are skipped unless
--include-vendor is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), cmd.OutOrStdout(), root, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "Write rewritten files in place")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Fail when any file would be rewritten")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored diff output")
	cmd.Flags().BoolVar(&opts.includeVendor, "include-vendor", false, "Also rewrite vendored and dot-prefixed paths")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of parallel workers (0 = engine.workers or CPU count)")
	cmd.Flags().StringVar(&opts.maxFileSize, "max-file-size", "", "Skip larger files (e.g., '2MiB'; empty = engine.max_file_size)")
	cmd.Flags().StringSliceVarP(&opts.rules, "rules", "r", nil, "Rules to run (default: rules.enabled or all)")
	cmd.Flags().StringVar(&opts.table, "table", "", "Argument change table (default: rules.argument_rewrite.table)")

	return cmd
}

func runProcess(ctx context.Context, out io.Writer, root *rootOptions, opts *processOptions, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if opts.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	a, err := newApp(root, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer a.close()

	rulesCfg, err := a.rulesConfig(opts.rules, opts.table)
	if err != nil {
		return err
	}

	maxFileSize, err := a.cfg.MaxFileSize()
	if err != nil {
		return err
	}

	if opts.maxFileSize != "" {
		maxFileSize, err = rewrite.ParseSize(opts.maxFileSize)
		if err != nil {
			return fmt.Errorf("--max-file-size: %w", err)
		}
	}

	sources, err := rewrite.Discovery{
		MaxFileSize:   maxFileSize,
		IncludeVendor: opts.includeVendor,
		Logger:        a.logger,
	}.Discover(paths)
	if err != nil {
		return err
	}

	workers := opts.workers
	if workers == 0 {
		workers = a.cfg.Engine.Workers
	}

	processor := rewrite.NewProcessor(rules.Factory(rulesCfg),
		rewrite.WithWorkers(workers),
		rewrite.WithEngineOptions(a.engineOptions()...),
		rewrite.WithFileRecorder(a.ruleMetrics),
		rewrite.WithProcessorLogger(a.logger),
		rewrite.WithProcessorTracer(a.providers.Tracer),
	)

	results, processErr := processor.Process(ctx, sources)
	if results == nil {
		return processErr
	}

	changed, err := emitResults(out, results, opts.write)
	if err != nil {
		return err
	}

	if !root.quiet {
		renderSummary(out, results)
	}

	if processErr != nil {
		return fmt.Errorf("some files were not rewritten: %w", processErr)
	}

	if opts.check && !opts.write && changed > 0 {
		return fmt.Errorf("%w: %d", ErrChangesPending, changed)
	}

	return nil
}

// emitResults prints the diff of every changed file, or writes it back when
// write is set, and returns the number of changed files.
func emitResults(out io.Writer, results []rewrite.FileResult, write bool) (int, error) {
	changed := 0

	for _, result := range results {
		if !result.Changed() {
			continue
		}

		changed++

		if !write {
			uast.WriteColorDiff(out, result.Diff)

			continue
		}

		err := writeInPlace(result.Path, result.After)
		if err != nil {
			return changed, err
		}
	}

	return changed, nil
}

// writeInPlace replaces path's content keeping its permissions.
func writeInPlace(path string, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	err = os.WriteFile(path, content, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// fileStatus labels a result for the summary table.
func fileStatus(result rewrite.FileResult) string {
	switch {
	case result.Err != nil:
		return rewrite.FileFailed
	case result.Changed():
		return rewrite.FileChanged
	default:
		return rewrite.FileUnchanged
	}
}

// formatApplied renders per-rule apply counts as "rule=n" pairs.
func formatApplied(applied map[string]int) string {
	names := make([]string, 0, len(applied))

	for name, count := range applied {
		if count > 0 {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+strconv.Itoa(applied[name]))
	}

	return strings.Join(parts, " ")
}

func renderSummary(out io.Writer, results []rewrite.FileResult) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"File", "Status", "Applied", "Passes", "Lines", "Size"})

	counts := map[string]int{}

	for _, result := range results {
		status := fileStatus(result)
		counts[status]++

		lines, size := "", ""
		if result.After != nil {
			lines = strconv.Itoa(textutil.CountLines(result.After))
			size = humanize.Bytes(uint64(len(result.After)))
		}

		if result.Warning != nil {
			status += " (not converged)"
		}

		tbl.AppendRow(table.Row{result.Path, status, formatApplied(result.Stats.Applied), result.Stats.Passes, lines, size})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Total: %d files", len(results)),
		fmt.Sprintf("%d changed, %d failed", counts[rewrite.FileChanged], counts[rewrite.FileFailed]),
	})

	tbl.Render()
}
