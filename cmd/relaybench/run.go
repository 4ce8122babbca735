package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/torosent/relaybench/internal/config"
	"github.com/torosent/relaybench/internal/dashboard"
	"github.com/torosent/relaybench/internal/logging"
	"github.com/torosent/relaybench/internal/metrics"
	"github.com/torosent/relaybench/internal/output"
	"github.com/torosent/relaybench/internal/runner"
	"github.com/torosent/relaybench/internal/threshold"
	"github.com/torosent/relaybench/internal/tracing"
	"github.com/torosent/relaybench/internal/websocket"
	"github.com/torosent/relaybench/internal/workload"
)

const shutdownTimeout = 5 * time.Second

// runBenchmark wires a validated configuration into a Runner, streams
// snapshots to the configured sinks and prints the final report.
func runBenchmark(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, logFile := logging.Setup(cfg.Log)
	if logFile != nil {
		defer logFile.Close()
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	target, err := config.ParseTarget(cfg.Target)
	if err != nil {
		return err
	}
	remote, err := config.ResolveTarget(ctx, nil, target)
	if err != nil {
		return err
	}
	interfaces, err := config.ParseInterfaces(cfg.Interfaces)
	if err != nil {
		return err
	}
	headers, err := config.ParseHeaders(cfg.Headers)
	if err != nil {
		return err
	}

	if cfg.Threads > 0 {
		runtime.GOMAXPROCS(cfg.Threads)
	}

	provider, err := tracing.Init(ctx, cfg.Tracing,
		tracing.WithRun(string(cfg.Mode), target.String()),
		tracing.WithServiceVersion(version),
	)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	conns := metrics.NewConnections(cfg.Count)
	var msgs *metrics.Messages
	if cfg.Mode != config.ModeConnect {
		msgs = metrics.NewMessages()
	}

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, metrics.NewExporter(conns, msgs), logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sinks []runner.Sink
	if !cfg.Dashboard {
		sinks = append(sinks, newPrinter(stdout, cfg.JSON, msgs))
	}
	if cfg.OutputFile != "" {
		file, err := output.OpenAppendFile(cfg.OutputFile)
		if err != nil {
			return err
		}
		defer file.Close()
		sinks = append(sinks, newPrinter(file, true, msgs))
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(msgs, dashboardConfig(cfg, target, len(interfaces)), cancel)
		if err != nil {
			return err
		}
		sinks = append(sinks, dash)
		dash.Start()
	}

	dialer := websocket.NewDialer(websocket.Config{
		Headers:            headers,
		ConnectTimeout:     cfg.ConnectTimeout,
		InsecureSkipVerify: cfg.Insecure,
	})

	r := runner.New(runner.Options{
		Target:         target,
		Remote:         remote,
		Count:          cfg.Count,
		Rate:           cfg.Rate,
		Keepalive:      cfg.KeepaliveDuration(),
		Interfaces:     interfaces,
		Dialer:         dialer,
		Workload:       newWorkload(cfg, msgs),
		Connections:    conns,
		Sink:           runner.MultiSink(sinks...),
		ReportInterval: cfg.ReportInterval,
		ArrivalModel:   runner.ArrivalModel(cfg.Arrival),
		Tracer:         provider.Tracer(),
		Propagate:      provider.ShouldPropagate(),
		Logger:         logger,
	})

	logger.Info("benchmark starting",
		"mode", cfg.Mode,
		"target", target.String(),
		"remote", remote.String(),
		"count", cfg.Count,
		"rate", cfg.Rate,
		"keepalive", cfg.KeepaliveDuration(),
		"arrival", cfg.Arrival,
		"connect_timeout", dialer.Timeout(),
	)
	result := r.Run(runCtx)
	if dash != nil {
		dash.Stop()
	}
	logger.Info("benchmark finished",
		"duration", result.Duration,
		"closed", result.Connections.Closed,
		"lost", result.Connections.Lost,
		"errored", result.Connections.Errored,
	)

	summary := metrics.NewSummary(string(cfg.Mode), target.String(), result.Duration, conns, msgs)
	results := threshold.NewEvaluator(thresholds).Evaluate(summary)

	if err := output.WriteReport(stdout, output.Format(cfg.Report), summary, results); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if !threshold.Passed(results) {
		fmt.Fprintln(stderr, "Thresholds failed.")
		return errThresholdsFailed
	}
	return nil
}

// newPrinter returns the snapshot sink for the run's mode.
func newPrinter(w io.Writer, asJSON bool, msgs *metrics.Messages) runner.Sink {
	if msgs == nil {
		return output.NewConnectPrinter(w, asJSON)
	}
	return output.NewMessagePrinter(w, asJSON, msgs)
}

func newWorkload(cfg *config.Config, msgs *metrics.Messages) workload.Workload {
	switch cfg.Mode {
	case config.ModeEcho:
		return workload.NewEcho(cfg.Size, cfg.Warmup, msgs)
	case config.ModeRequest:
		return &workload.Request{
			Limit:  cfg.Limit,
			Warmup: cfg.Warmup,
			Stats:  msgs,
		}
	default:
		return workload.Idle{}
	}
}

func dashboardConfig(cfg *config.Config, target fmt.Stringer, interfaces int) dashboard.RunConfig {
	return dashboard.RunConfig{
		Target:     target.String(),
		Mode:       string(cfg.Mode),
		Count:      cfg.Count,
		Rate:       cfg.Rate,
		Keepalive:  cfg.KeepaliveDuration(),
		Arrival:    string(cfg.Arrival),
		Size:       cfg.Size,
		Limit:      cfg.Limit,
		Interfaces: interfaces,
		ConfigFile: cfg.ConfigFile,
	}
}

// serveMetrics exposes the exporter on addr until the returned stop func runs.
func serveMetrics(addr string, exporter prometheus.Collector, logger *slog.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(exporter); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
