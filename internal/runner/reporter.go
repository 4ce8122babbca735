package runner

import (
	"context"
	"time"

	"github.com/torosent/relaybench/internal/metrics"
)

// Sink receives periodic connection snapshots. Report is called from the
// reporter goroutine only.
type Sink interface {
	Report(elapsed time.Duration, snap metrics.ConnectionStats)
}

// SinkFunc adapts an ordinary function to a Sink.
type SinkFunc func(elapsed time.Duration, snap metrics.ConnectionStats)

// Report implements Sink.
func (f SinkFunc) Report(elapsed time.Duration, snap metrics.ConnectionStats) {
	f(elapsed, snap)
}

// MultiSink fans one snapshot out to several sinks in order. Nil entries are
// skipped.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(elapsed time.Duration, snap metrics.ConnectionStats) {
		for _, s := range sinks {
			if s != nil {
				s.Report(elapsed, snap)
			}
		}
	})
}

// report emits a snapshot immediately and then every ReportInterval, and
// returns as soon as an emitted snapshot shows every slot complete.
func (r *Runner) report(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(r.opt.ReportInterval)
	defer ticker.Stop()

	for {
		snap := r.opt.Connections.Snapshot()
		if r.opt.Sink != nil {
			r.opt.Sink.Report(time.Since(start), snap)
		}
		if snap.Done() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
	}
}
