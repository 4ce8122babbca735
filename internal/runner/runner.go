package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/relaybench/internal/metrics"
)

// Result captures the execution summary.
type Result struct {
	Duration    time.Duration
	Connections metrics.ConnectionStats
}

// Runner admits connection slots at a controlled rate and drives a workload
// on each one.
type Runner struct {
	opt     Options
	arrival arrivalController
	tracer  trace.Tracer
	log     *slog.Logger
}

// New creates a Runner. Missing options take their defaults.
func New(opt Options) *Runner {
	opt.normalize()
	tracer := opt.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("relaybench")
	}
	return &Runner{
		opt:     opt,
		arrival: newArrivalController(opt),
		tracer:  tracer,
		log:     opt.Logger,
	}
}

// Run admits every slot and reports progress until the run completes.
//
// The scheduler and the reporter run independently. Whichever finishes
// first ends the run and the other is stopped: the reporter may miss the
// last state changes, and the scheduler may still be waiting on slots when
// the reporter observes complete == total. Per-connection failures never
// surface here; they only move counters.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.log.Info("run started",
		slog.String("target", r.opt.Target.String()),
		slog.Int("count", r.opt.Count),
		slog.Int("rate", r.opt.Rate),
		slog.Duration("keepalive", r.opt.Keepalive),
		slog.String("arrival", string(r.opt.ArrivalModel)),
		slog.Int("interfaces", len(r.opt.Interfaces)),
	)

	var wg sync.WaitGroup
	scheduled := make(chan struct{})
	reported := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(scheduled)
		r.schedule(ctx, start)
	}()
	go func() {
		defer wg.Done()
		defer close(reported)
		r.report(ctx, start)
	}()

	select {
	case <-scheduled:
		r.log.Debug("scheduler finished first")
	case <-reported:
		r.log.Debug("reporter finished first")
	}
	cancel()
	wg.Wait()

	res := Result{
		Duration:    time.Since(start),
		Connections: r.opt.Connections.Snapshot(),
	}
	r.log.Info("run finished",
		slog.Duration("duration", res.Duration),
		slog.Int("complete", res.Connections.Complete),
		slog.Int("errored", res.Connections.Errored),
		slog.Int("lost", res.Connections.Lost),
		slog.Int("closed", res.Connections.Closed),
	)
	return res
}

// schedule admits Count slots through the arrival controller and waits for
// every launched slot to conclude. Cancellation stops admission; slots
// already launched observe the same cancellation.
func (r *Runner) schedule(ctx context.Context, start time.Time) {
	var slots sync.WaitGroup
	defer slots.Wait()

	for i := 0; i < r.opt.Count; i++ {
		if err := r.arrival.Admit(ctx, i); err != nil {
			r.log.Info("admission stopped", slog.Int("admitted", i), slog.Any("reason", err))
			return
		}
		slots.Add(1)
		go func(i int) {
			defer slots.Done()
			r.runSlot(ctx, i, start)
		}(i)
	}
}
