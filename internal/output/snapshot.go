package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/relaybench/internal/metrics"
)

// ConnectSnapshot is the JSON line emitted by a connect-only run.
type ConnectSnapshot struct {
	Elapsed      int64                   `json:"elapsed"`
	ConnectStats metrics.ConnectionStats `json:"connect_stats"`
}

// MessageSnapshot is the JSON line emitted by echo and request-cycle runs.
// TPS and Size cover the window since the previous emission.
type MessageSnapshot struct {
	Elapsed      int64                   `json:"elapsed"`
	LastElapsed  int64                   `json:"last_elapsed"`
	TPS          uint64                  `json:"tps"`
	Size         float64                 `json:"size"`
	ConnectStats metrics.ConnectionStats `json:"connect_stats"`
	MessageStats metrics.MessageStats    `json:"message_stats"`
}

// ConnectPrinter renders connection snapshots as one line per emission.
type ConnectPrinter struct {
	w    io.Writer
	json bool
}

// NewConnectPrinter creates a printer writing to w, as JSON lines when asJSON is set.
func NewConnectPrinter(w io.Writer, asJSON bool) *ConnectPrinter {
	if w == nil {
		w = io.Discard
	}
	return &ConnectPrinter{w: w, json: asJSON}
}

func (p *ConnectPrinter) Report(elapsed time.Duration, stats metrics.ConnectionStats) {
	if p.json {
		writeJSONLine(p.w, ConnectSnapshot{
			Elapsed:      elapsed.Milliseconds(),
			ConnectStats: stats,
		})
		return
	}
	fmt.Fprintf(p.w, "elapsed: %dms connections: %d error: %d connect time: [%s]\n",
		elapsed.Milliseconds(), stats.Alive, stats.Errored, formatLatency(stats.ConnectTime))
}

// MessagePrinter renders connection snapshots together with the shared
// message counters. It keeps the previous emission to compute throughput
// and must be driven from a single goroutine.
type MessagePrinter struct {
	w        io.Writer
	json     bool
	messages *metrics.Messages
	now      func() time.Time

	lastTime     time.Time
	lastComplete int
	lastSize     int64
}

// NewMessagePrinter creates a printer that reads message counters from messages.
func NewMessagePrinter(w io.Writer, asJSON bool, messages *metrics.Messages) *MessagePrinter {
	if w == nil {
		w = io.Discard
	}
	p := &MessagePrinter{w: w, json: asJSON, messages: messages, now: time.Now}
	p.lastTime = p.now()
	return p
}

func (p *MessagePrinter) Report(elapsed time.Duration, stats metrics.ConnectionStats) {
	msg := p.messages.Snapshot()
	now := p.now()
	window := now.Sub(p.lastTime)
	tps, size := Throughput(window, msg.Complete-p.lastComplete, msg.Size-p.lastSize)

	if p.json {
		writeJSONLine(p.w, MessageSnapshot{
			Elapsed:      elapsed.Milliseconds(),
			LastElapsed:  window.Milliseconds(),
			TPS:          tps,
			Size:         size,
			ConnectStats: stats,
			MessageStats: msg,
		})
	} else {
		fmt.Fprintf(p.w, "elapsed: %dms connections: %d message tps: %d/s transfer: %gMB/s complete: %d event: %d error: %d time: [%s]\n",
			elapsed.Milliseconds(), stats.Alive, tps, size,
			msg.Complete, msg.Event, msg.Errored, formatLatency(msg.RoundTrip))
	}

	p.lastTime = now
	p.lastComplete = msg.Complete
	p.lastSize = msg.Size
}

// Throughput converts the round trips and bytes of one window into round
// trips per second and MB/s truncated to one decimal. Windows shorter than a
// second report zero for both.
func Throughput(window time.Duration, roundTrips int, bytes int64) (uint64, float64) {
	if window < time.Second {
		return 0, 0
	}
	secs := window.Seconds()
	tps := uint64(0)
	if roundTrips > 0 {
		tps = uint64(float64(roundTrips) / secs)
	}
	size := 0.0
	if bytes > 0 {
		size = float64(uint64(float64(bytes)/secs/100000)) / 10
	}
	return tps, size
}

func formatLatency(l metrics.LatencyStats) string {
	return fmt.Sprintf("avg: %dms max: %dms min: %dms", l.Avg.Milliseconds(), l.Max.Milliseconds(), l.Min.Milliseconds())
}

func writeJSONLine(w io.Writer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(w, "{\"error\":%q}\n", err.Error())
		return
	}
	data = append(data, '\n')
	_, _ = w.Write(data)
}
