package metrics

import (
	"sync"
	"time"
)

// ConnectionStats is a point-in-time copy of the connection aggregator.
//
// Every admitted slot ends in exactly one of Errored, Lost or Closed and bumps
// Complete exactly once, so at the end of a run
// Complete == Total == Errored + Lost + Closed and Alive == 0.
type ConnectionStats struct {
	Total     int `json:"total" yaml:"total"`
	Attempted int `json:"attempted" yaml:"attempted"`
	Alive     int `json:"alive" yaml:"alive"`
	Complete  int `json:"complete" yaml:"complete"`
	Errored   int `json:"errored" yaml:"errored"`
	Lost      int `json:"lost" yaml:"lost"`
	Closed    int `json:"closed" yaml:"closed"`

	Elapsed   time.Duration `json:"-" yaml:"-"`
	ElapsedMs int64         `json:"time" yaml:"elapsed_ms"`

	ConnectTime LatencyStats   `json:"connect_time" yaml:"connect_time"`
	Errors      map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Done reports whether every planned slot has concluded.
func (s ConnectionStats) Done() bool {
	return s.Complete == s.Total
}

// Connections aggregates connection-level counters for one run. Each Record
// method takes the lock once and applies its whole update as a group.
type Connections struct {
	mu      sync.Mutex
	stats   ConnectionStats
	connect latencyRecorder
	errors  map[string]int
}

// NewConnections creates an aggregator for a run that plans total slots.
func NewConnections(total int) *Connections {
	return &Connections{
		stats:   ConnectionStats{Total: total},
		connect: newLatencyRecorder(),
		errors:  make(map[string]int),
	}
}

// RecordAttempt marks the start of a connect call.
func (c *Connections) RecordAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Attempted++
}

// RecordConnected marks a slot alive. latency is the connect+handshake time,
// elapsed the wall-clock time since the run started.
func (c *Connections) RecordConnected(latency, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Alive++
	c.connect.record(latency)
	c.touch(elapsed)
}

// RecordFailed marks a slot that never became alive.
func (c *Connections) RecordFailed(kind string, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Errored++
	if kind == "" {
		kind = "unknown"
	}
	c.errors[kind]++
	c.touch(elapsed)
}

// RecordClosed marks an alive slot that was cut off at its lifetime ceiling.
func (c *Connections) RecordClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Alive--
	c.stats.Closed++
}

// RecordLost marks an alive slot that ended before its lifetime ceiling.
func (c *Connections) RecordLost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Alive--
	c.stats.Lost++
}

// RecordComplete marks a slot terminal. It must run exactly once per slot.
func (c *Connections) RecordComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Complete++
}

// Snapshot returns a copy of the current counters.
func (c *Connections) Snapshot() ConnectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.ElapsedMs = s.Elapsed.Milliseconds()
	s.ConnectTime = c.connect.snapshot()
	if len(c.errors) > 0 {
		s.Errors = make(map[string]int, len(c.errors))
		for k, v := range c.errors {
			s.Errors[k] = v
		}
	}
	return s
}

func (c *Connections) touch(elapsed time.Duration) {
	if elapsed > c.stats.Elapsed {
		c.stats.Elapsed = elapsed
	}
}
