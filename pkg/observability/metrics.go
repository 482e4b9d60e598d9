package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "refang.requests.total"
	metricRequestDuration  = "refang.request.duration.seconds"
	metricErrorsTotal      = "refang.errors.total"
	metricInflightRequests = "refang.inflight.requests"

	metricRuleMatches    = "refang.rule.matches.total"
	metricRuleApplies    = "refang.rule.applies.total"
	metricRuleViolations = "refang.rule.contract_violations.total"
	metricFileDuration   = "refang.file.rewrite.duration.seconds"
	metricFilesTotal     = "refang.files.total"

	attrOp     = "op"
	attrStatus = "status"
	attrRule   = "rule"

	// StatusOK marks a successful request or file.
	StatusOK = "ok"
	// StatusError marks a failed request or file.
	StatusError = "error"
	// StatusChanged marks a file the rules rewrote.
	StatusChanged = "changed"
)

// durationBucketBoundaries covers 1ms to 60s: a single file rewrite up to a
// large MCP request.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// metricBuilder accumulates OTel instrument creation errors,
// enabling batch construction with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

// setErr records the first instrument creation error.
func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:    b.counter(metricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration:  b.histogram(metricRequestDuration, "Request duration in seconds", "s", durationBucketBoundaries...),
		errorsTotal:      b.counter(metricErrorsTotal, "Total number of errors", "{error}"),
		inflightRequests: b.upDownCounter(metricInflightRequests, "Number of in-flight requests", "{request}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// RuleMetrics counts rule activity and file rewrite latency.
type RuleMetrics struct {
	matches      metric.Int64Counter
	applies      metric.Int64Counter
	violations   metric.Int64Counter
	files        metric.Int64Counter
	fileDuration metric.Float64Histogram
}

// NewRuleMetrics creates rule metric instruments from the given meter.
func NewRuleMetrics(mt metric.Meter) (*RuleMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RuleMetrics{
		matches:      b.counter(metricRuleMatches, "Nodes a rule matched", "{node}"),
		applies:      b.counter(metricRuleApplies, "Nodes a rule rewrote", "{node}"),
		violations:   b.counter(metricRuleViolations, "Apply calls without a matching candidate", "{call}"),
		files:        b.counter(metricFilesTotal, "Files processed", "{file}"),
		fileDuration: b.histogram(metricFileDuration, "Per-file rewrite duration in seconds", "s", durationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordMatch counts one match of rule.
func (rm *RuleMetrics) RecordMatch(ctx context.Context, rule string) {
	rm.matches.Add(ctx, 1, metric.WithAttributes(attribute.String(attrRule, rule)))
}

// RecordApply counts one application of rule.
func (rm *RuleMetrics) RecordApply(ctx context.Context, rule string) {
	rm.applies.Add(ctx, 1, metric.WithAttributes(attribute.String(attrRule, rule)))
}

// RecordViolation counts one contract violation raised by rule.
func (rm *RuleMetrics) RecordViolation(ctx context.Context, rule string) {
	rm.violations.Add(ctx, 1, metric.WithAttributes(attribute.String(attrRule, rule)))
}

// RecordFile records one processed file with its outcome and duration.
func (rm *RuleMetrics) RecordFile(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	rm.files.Add(ctx, 1, attrs)
	rm.fileDuration.Record(ctx, duration.Seconds(), attrs)
}
