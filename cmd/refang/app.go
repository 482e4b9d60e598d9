package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Sumatoshi-tech/refang/internal/config"
	"github.com/Sumatoshi-tech/refang/pkg/observability"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules"
	"github.com/Sumatoshi-tech/refang/pkg/rules/argrewrite"
	"github.com/Sumatoshi-tech/refang/pkg/version"
)

const (
	metricsPath              = "/metrics"
	metricsReadHeaderTimeout = 5 * time.Second
)

// app holds the configuration and telemetry of one command invocation.
type app struct {
	cfg         *config.Config
	providers   observability.Providers
	ruleMetrics *observability.RuleMetrics
	logger      *slog.Logger
	metricsSrv  *http.Server
}

// newApp loads configuration and starts telemetry for a command.
func newApp(root *rootOptions, mode observability.AppMode) (*app, error) {
	cfg, err := config.LoadConfig(root.configPath)
	if err != nil {
		return nil, err
	}

	base := observability.DefaultConfig()
	base.ServiceVersion = version.Version
	base.Mode = mode
	base.LogJSON = mode == observability.ModeMCP

	obsCfg := cfg.ObservabilityConfig(base)

	switch {
	case root.verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case root.quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	ruleMetrics, err := observability.NewRuleMetrics(providers.Meter)
	if err != nil {
		_ = providers.Shutdown(context.Background())

		return nil, fmt.Errorf("rule metrics: %w", err)
	}

	a := &app{
		cfg:         cfg,
		providers:   providers,
		ruleMetrics: ruleMetrics,
		logger:      providers.Logger,
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" && providers.MetricsHandler != nil {
		startErr := a.serveMetrics(addr)
		if startErr != nil {
			a.close()

			return nil, startErr
		}
	}

	return a, nil
}

// serveMetrics exposes the Prometheus handler on addr until close.
func (a *app) serveMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, a.providers.MetricsHandler)

	a.metricsSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		serveErr := a.metricsSrv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "error", serveErr)
		}
	}()

	a.logger.Info("serving metrics", "addr", listener.Addr().String(), "path", metricsPath)

	return nil
}

// close stops the metrics server and flushes telemetry.
func (a *app) close() {
	ctx := context.Background()

	if a.metricsSrv != nil {
		shutdownErr := a.metricsSrv.Shutdown(ctx)
		if shutdownErr != nil {
			a.logger.Warn("metrics server shutdown failed", "error", shutdownErr)
		}
	}

	shutdownErr := a.providers.Shutdown(ctx)
	if shutdownErr != nil {
		a.logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}

// rulesConfig builds the rule selection, letting command flags override the
// configured rule list and change table.
func (a *app) rulesConfig(enabled []string, tablePath string) (rules.Config, error) {
	cfg, err := a.cfg.RulesConfig(a.logger)
	if err != nil {
		return rules.Config{}, err
	}

	if len(enabled) > 0 {
		cfg.Enabled = enabled
	}

	if tablePath != "" {
		table, loadErr := argrewrite.LoadTable(tablePath)
		if loadErr != nil {
			return rules.Config{}, fmt.Errorf("--table: %w", loadErr)
		}

		cfg.Table = table
	}

	err = cfg.Validate()
	if err != nil {
		return rules.Config{}, err
	}

	return cfg, nil
}

// engineOptions wires configuration and telemetry into every engine.
func (a *app) engineOptions() []rewrite.EngineOption {
	return []rewrite.EngineOption{
		rewrite.WithMaxPasses(a.cfg.Engine.MaxPasses),
		rewrite.WithLogger(a.logger),
		rewrite.WithRecorder(a.ruleMetrics),
		rewrite.WithTracer(a.providers.Tracer),
	}
}
