package runner

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/torosent/relaybench/internal/metrics"
	"github.com/torosent/relaybench/internal/websocket"
	"github.com/torosent/relaybench/internal/workload"
)

// ArrivalModel selects how connection slots are admitted over time.
type ArrivalModel string

const (
	// ArrivalModelBatch admits Rate slots at once, then pauses one second.
	ArrivalModelBatch ArrivalModel = "batch"
	// ArrivalModelUniform spaces admissions evenly at Rate per second.
	ArrivalModelUniform ArrivalModel = "uniform"
	// ArrivalModelPoisson draws exponential gaps with mean 1/Rate.
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// DefaultReportInterval is the Reporter's emission period.
const DefaultReportInterval = 2 * time.Second

// Dialer opens a protocol-upgraded stream for one slot.
type Dialer interface {
	Dial(ctx context.Context, target *url.URL, local, remote *net.TCPAddr, header http.Header) (*websocket.Conn, error)
}

// Options configure a Runner.
type Options struct {
	Target     *url.URL      // URL used for the Host header and TLS server name (required)
	Remote     *net.TCPAddr  // pre-resolved destination dialed by every slot (required)
	Count      int           // connection slots to admit
	Rate       int           // slots admitted per second
	Keepalive  time.Duration // per-connection lifetime ceiling (0 means unbounded)
	Interfaces []*net.TCPAddr
	Header     http.Header

	Dialer      Dialer
	Workload    workload.Workload
	Connections *metrics.Connections // created from Count when nil

	Sink           Sink
	ReportInterval time.Duration

	ArrivalModel   ArrivalModel
	PoissonSampler func() float64 // optional injection for tests
	RandomSeed     int64
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	Sleep          func(ctx context.Context, d time.Duration) error

	Tracer    trace.Tracer
	Propagate bool // inject W3C trace context into the handshake request
	Logger    *slog.Logger
}

func (o *Options) normalize() {
	if o.Count < 0 {
		o.Count = 0
	}
	if o.Rate <= 0 {
		o.Rate = 1
	}
	if o.Keepalive < 0 {
		o.Keepalive = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelBatch
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = DefaultReportInterval
	}
	if o.Workload == nil {
		o.Workload = workload.Idle{}
	}
	if o.Dialer == nil {
		o.Dialer = websocket.NewDialer(websocket.Config{})
	}
	if o.Connections == nil {
		o.Connections = metrics.NewConnections(o.Count)
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			// burst 1: no two admissions share a token
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
