package metrics

import (
	"sync"
	"time"
)

// MessageStats is a point-in-time copy of the message aggregator.
type MessageStats struct {
	Total     int          `json:"total" yaml:"total"`
	Complete  int          `json:"complete" yaml:"complete"`
	Errored   int          `json:"errored" yaml:"errored"`
	Size      int64        `json:"size" yaml:"size"`
	Event     int          `json:"event" yaml:"event"`
	RoundTrip LatencyStats `json:"round_trip" yaml:"round_trip"`
}

// Messages aggregates round-trip counters shared by every connection of an
// echo or request-cycle run.
type Messages struct {
	mu        sync.Mutex
	stats     MessageStats
	roundTrip latencyRecorder
}

// NewMessages creates an empty message aggregator.
func NewMessages() *Messages {
	return &Messages{roundTrip: newLatencyRecorder()}
}

// RecordStart counts a round trip whose request is about to be sent.
func (m *Messages) RecordStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Total++
}

// RecordSent adds outgoing bytes that are not part of a round-trip record.
func (m *Messages) RecordSent(bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Size += int64(bytes)
}

// RecordReceived adds an incoming message, optionally counting it as an event.
func (m *Messages) RecordReceived(bytes int, event bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Size += int64(bytes)
	if event {
		m.stats.Event++
	}
}

// RecordRoundTrip completes a round trip that took latency and moved bytes.
func (m *Messages) RecordRoundTrip(latency time.Duration, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Complete++
	m.stats.Size += int64(bytes)
	m.roundTrip.record(latency)
}

// RecordError counts a started round trip that failed.
func (m *Messages) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Errored++
}

// Snapshot returns a copy of the current counters.
func (m *Messages) Snapshot() MessageStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.RoundTrip = m.roundTrip.snapshot()
	return s
}
