package runner

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/torosent/relaybench/internal/tracing"
	"github.com/torosent/relaybench/internal/websocket"
)

// localAddr returns the bind address for slot i, or nil when no interface
// list is configured.
func (r *Runner) localAddr(i int) *net.TCPAddr {
	if len(r.opt.Interfaces) == 0 {
		return nil
	}
	return r.opt.Interfaces[i%len(r.opt.Interfaces)]
}

// runSlot drives one admitted slot from connect to its terminal outcome.
// Every path bumps Complete exactly once.
func (r *Runner) runSlot(ctx context.Context, i int, start time.Time) {
	stats := r.opt.Connections
	defer stats.RecordComplete()

	local := r.localAddr(i)
	localStr := ""
	if local != nil {
		localStr = local.String()
	}

	ctx, span := tracing.StartSlotSpan(ctx, r.tracer, i, r.opt.Target.String(), localStr)

	header := r.opt.Header.Clone()
	if r.opt.Propagate {
		if header == nil {
			header = http.Header{}
		}
		tracing.InjectHTTPHeaders(ctx, header)
	}

	stats.RecordAttempt()
	dialStart := time.Now()
	conn, err := r.opt.Dialer.Dial(ctx, r.opt.Target, local, r.opt.Remote, header)
	if err != nil {
		kind := websocket.ErrorKind(err)
		stats.RecordFailed(kind, time.Since(start))
		r.log.Debug("connection failed",
			slog.Int("slot", i),
			slog.String("local", localStr),
			slog.String("kind", kind),
			slog.Any("error", err),
		)
		tracing.EndSpan(span, err, tracing.AttrOutcome.String("errored"), tracing.AttrKind.String(kind))
		return
	}
	stats.RecordConnected(time.Since(dialStart), time.Since(start))

	err = supervise(ctx, r.opt.Keepalive, abortCloser{conn}, func(ctx context.Context) error {
		return r.opt.Workload.Drive(ctx, conn)
	})
	_ = conn.Close()

	outcome := OutcomeOf(err)
	if outcome == OutcomeClosed {
		stats.RecordClosed()
		err = nil
	} else {
		stats.RecordLost()
	}

	r.log.Debug("connection ended",
		slog.Int("slot", i),
		slog.String("local", localStr),
		slog.String("outcome", outcome.String()),
		slog.Any("reason", err),
	)
	tracing.EndSpan(span, err, tracing.AttrOutcome.String(outcome.String()))
}

// abortCloser makes supervise drop the socket without a close handshake.
type abortCloser struct {
	conn *websocket.Conn
}

func (a abortCloser) Close() error {
	return a.conn.Abort()
}
