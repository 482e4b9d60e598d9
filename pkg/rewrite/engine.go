package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

const (
	// DefaultMaxPasses bounds whole-tree passes when no option overrides it.
	DefaultMaxPasses = 3

	tracerName = "refang/rewrite"
)

// Recorder receives per-rule counters. *observability.RuleMetrics
// implements it.
type Recorder interface {
	RecordMatch(ctx context.Context, rule string)
	RecordApply(ctx context.Context, rule string)
	RecordViolation(ctx context.Context, rule string)
}

// Stats summarizes one engine run.
type Stats struct {
	// Matched counts Match calls that returned true, per rule.
	Matched map[string]int
	// Applied counts Apply calls that changed the tree, per rule.
	Applied map[string]int
	// Passes is the number of whole-tree passes performed.
	Passes int
}

// NewStats returns empty Stats.
func NewStats() Stats {
	return Stats{Matched: map[string]int{}, Applied: map[string]int{}}
}

// Merge adds other's counters into s.
func (s *Stats) Merge(other Stats) {
	if s.Matched == nil {
		s.Matched = map[string]int{}
	}

	if s.Applied == nil {
		s.Applied = map[string]int{}
	}

	for name, count := range other.Matched {
		s.Matched[name] += count
	}

	for name, count := range other.Applied {
		s.Applied[name] += count
	}

	s.Passes = max(s.Passes, other.Passes)
}

// TotalApplied sums Applied across rules.
func (s Stats) TotalApplied() int {
	total := 0
	for count := range maps.Values(s.Applied) {
		total += count
	}

	return total
}

// Engine drives rules over trees. It holds no per-tree state and may be
// shared across goroutines as long as its rules are stateless.
type Engine struct {
	rules     []Rule
	maxPasses int
	logger    *slog.Logger
	recorder  Recorder
	tracer    trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxPasses sets the pass limit; values below one are ignored.
func WithMaxPasses(passes int) EngineOption {
	return func(e *Engine) {
		if passes > 0 {
			e.maxPasses = passes
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) EngineOption {
	return func(e *Engine) { e.recorder = recorder }
}

// WithTracer sets the tracer used for run spans.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// NewEngine creates an engine running rules in the given order.
func NewEngine(rules []Rule, opts ...EngineOption) *Engine {
	engine := &Engine{
		rules:     rules,
		maxPasses: DefaultMaxPasses,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Rules returns the engine's rules in execution order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Run rewrites root in place, repeating whole-tree passes until a pass
// changes nothing. It returns the possibly replaced root. When the pass
// limit is reached with changes still happening the tree is returned along
// with ErrNotConverged. A contract violation aborts the run.
func (e *Engine) Run(ctx context.Context, root *node.Node) (*node.Node, Stats, error) {
	ctx, span := e.tracer.Start(ctx, "rewrite.run")
	defer span.End()

	stats := NewStats()

	for pass := 1; pass <= e.maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return root, stats, fmt.Errorf("rewrite pass %d: %w", pass, err)
		}

		stats.Passes = pass

		walker := &passWalker{engine: e, ctx: ctx, stats: &stats}

		next, err := walker.visit(root)
		if err != nil {
			span.RecordError(err)

			return root, stats, err
		}

		root = next

		if !walker.changed {
			span.SetAttributes(attribute.Int("rewrite.passes", pass))

			return root, stats, nil
		}
	}

	span.SetAttributes(attribute.Int("rewrite.passes", e.maxPasses))

	return root, stats, fmt.Errorf("after %d passes: %w", e.maxPasses, ErrNotConverged)
}

// passWalker carries the state of one pre-order pass.
type passWalker struct {
	engine  *Engine
	ctx     context.Context //nolint:containedctx // scoped to a single pass.
	stats   *Stats
	changed bool
}

// visit runs every rule on n, then descends into the (possibly replaced)
// node's children, writing replacements back into the parent slot.
func (w *passWalker) visit(n *node.Node) (*node.Node, error) {
	for _, rule := range w.engine.rules {
		next, err := w.applyRule(rule, n)
		if err != nil {
			return n, err
		}

		n = next
	}

	for idx, child := range n.Children {
		if child == nil {
			continue
		}

		replaced, err := w.visit(child)
		if err != nil {
			return n, err
		}

		n.Children[idx] = replaced
	}

	return n, nil
}

func (w *passWalker) applyRule(rule Rule, n *node.Node) (*node.Node, error) {
	name := rule.Name()

	candidate, ok := rule.Match(n)
	if !ok {
		return n, nil
	}

	w.stats.Matched[name]++
	w.record(func(r Recorder) { r.RecordMatch(w.ctx, name) })

	before := n.Fingerprint()

	out, err := rule.Apply(n, candidate)
	if err != nil {
		if errors.Is(err, ErrContractViolation) {
			w.record(func(r Recorder) { r.RecordViolation(w.ctx, name) })
		}

		return n, fmt.Errorf("apply %s: %w", name, err)
	}

	if out == nil {
		out = n
	}

	if out == n && out.Fingerprint() == before {
		w.engine.logger.DebugContext(w.ctx, "rule matched without changes",
			"rule", name, "type", n.Type, "name", n.Prop(node.PropName))

		return out, nil
	}

	w.changed = true
	w.stats.Applied[name]++
	w.record(func(r Recorder) { r.RecordApply(w.ctx, name) })

	w.engine.logger.DebugContext(w.ctx, "rule applied",
		"rule", name, "type", n.Type, "name", n.Prop(node.PropName))

	return out, nil
}

func (w *passWalker) record(fn func(Recorder)) {
	if w.engine.recorder != nil {
		fn(w.engine.recorder)
	}
}
