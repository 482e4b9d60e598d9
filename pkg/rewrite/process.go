package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/refang/pkg/reflection"
	"github.com/Sumatoshi-tech/refang/pkg/uast"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// File outcomes reported to a FileRecorder.
const (
	FileUnchanged = "ok"
	FileChanged   = "changed"
	FileFailed    = "error"
)

// Source is one input file.
type Source struct {
	Path    string
	Content []byte
}

// FileResult is the outcome of rewriting one Source.
type FileResult struct {
	Path   string
	Before []byte
	// After is the printed result; nil when the file failed.
	After []byte
	Diff  string
	Stats Stats
	// Warning is set when the engine stopped before converging.
	Warning error
	// Err is set when the file could not be parsed or printed.
	Err error
}

// Changed reports whether the rewrite altered the file.
func (r FileResult) Changed() bool {
	return r.Err == nil && r.Diff != ""
}

// FileRecorder receives per-file outcomes. *observability.RuleMetrics
// implements it.
type FileRecorder interface {
	RecordFile(ctx context.Context, status string, duration time.Duration)
}

// RuleFactory builds the rules of a run once every input is indexed.
type RuleFactory func(reflector reflection.Reflector) ([]Rule, error)

// Processor parses a set of PHP sources, indexes their classes and runs
// the rules over every file.
type Processor struct {
	parser     *uast.Parser
	factory    RuleFactory
	engineOpts []EngineOption
	workers    int
	logger     *slog.Logger
	files      FileRecorder
	tracer     trace.Tracer
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers bounds concurrent parses and rewrites; values below one mean
// GOMAXPROCS.
func WithWorkers(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

// WithEngineOptions passes options to the engine of every run.
func WithEngineOptions(opts ...EngineOption) ProcessorOption {
	return func(p *Processor) { p.engineOpts = append(p.engineOpts, opts...) }
}

// WithFileRecorder attaches a per-file metrics recorder.
func WithFileRecorder(recorder FileRecorder) ProcessorOption {
	return func(p *Processor) { p.files = recorder }
}

// WithProcessorLogger sets the processor logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProcessorTracer sets the tracer used for run spans.
func WithProcessorTracer(tracer trace.Tracer) ProcessorOption {
	return func(p *Processor) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// NewProcessor creates a Processor whose rules come from factory.
func NewProcessor(factory RuleFactory, opts ...ProcessorOption) *Processor {
	p := &Processor{
		parser:  uast.NewParser(),
		factory: factory,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}

	return p
}

// Process rewrites sources. Results keep the input order. Files that fail
// to parse or print carry their error and are also joined into the
// returned error; a contract violation or cancellation aborts the run and
// is returned alone.
func (p *Processor) Process(ctx context.Context, sources []Source) ([]FileResult, error) {
	ctx, span := p.tracer.Start(ctx, "rewrite.process",
		trace.WithAttributes(attribute.Int("rewrite.files", len(sources))))
	defer span.End()

	results := make([]FileResult, len(sources))
	trees := make([]*node.Node, len(sources))

	if err := p.parseAll(ctx, sources, results, trees); err != nil {
		span.RecordError(err)

		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	index := reflection.NewIndex()

	for _, tree := range trees {
		if tree != nil {
			index.Add(tree)
		}
	}

	p.logger.DebugContext(ctx, "indexed classes", "classes", index.Len(), "files", len(sources))

	rules, err := p.factory(index)
	if err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}

	engine := NewEngine(rules, p.engineOpts...)

	if err := p.rewriteAll(ctx, engine, results, trees); err != nil {
		span.RecordError(err)

		return nil, err
	}

	var errs []error

	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}

	return results, errors.Join(errs...)
}

func (p *Processor) parseAll(ctx context.Context, sources []Source, results []FileResult, trees []*node.Node) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	for idx, source := range sources {
		results[idx] = FileResult{Path: source.Path, Before: source.Content}

		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			tree, err := p.parser.Parse(groupCtx, source.Path, source.Content)
			if err != nil {
				results[idx].Err = err

				p.logger.WarnContext(groupCtx, "skipping file", "path", source.Path, "error", err)

				return nil
			}

			trees[idx] = tree

			return nil
		})
	}

	return group.Wait()
}

func (p *Processor) rewriteAll(ctx context.Context, engine *Engine, results []FileResult, trees []*node.Node) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	for idx, tree := range trees {
		if tree == nil {
			p.recordFile(ctx, FileFailed, 0)

			continue
		}

		group.Go(func() error {
			return p.rewriteFile(groupCtx, engine, &results[idx], tree)
		})
	}

	return group.Wait()
}

// rewriteFile runs the engine over one tree and prints it. Only fatal
// errors are returned; file-local failures are stored in result.
func (p *Processor) rewriteFile(ctx context.Context, engine *Engine, result *FileResult, tree *node.Node) error {
	started := time.Now()

	root, stats, err := engine.Run(ctx, tree)
	result.Stats = stats

	switch {
	case errors.Is(err, ErrNotConverged):
		result.Warning = err

		p.logger.WarnContext(ctx, "rewrite did not converge", "path", result.Path, "passes", stats.Passes)
	case err != nil:
		p.recordFile(ctx, FileFailed, time.Since(started))

		return fmt.Errorf("%s: %w", result.Path, err)
	}

	out, err := uast.Print(result.Before, root)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", result.Path, err)

		p.recordFile(ctx, FileFailed, time.Since(started))

		return nil
	}

	result.After = out
	result.Diff = uast.UnifiedDiff(result.Path, result.Before, out)

	status := FileUnchanged
	if result.Diff != "" {
		status = FileChanged
	}

	p.recordFile(ctx, status, time.Since(started))

	p.logger.DebugContext(ctx, "file rewritten",
		"path", result.Path, "status", status, "applied", stats.TotalApplied())

	return nil
}

func (p *Processor) recordFile(ctx context.Context, status string, duration time.Duration) {
	if p.files != nil {
		p.files.RecordFile(ctx, status, duration)
	}
}
