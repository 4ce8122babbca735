package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyStats summarizes a series of duration samples.
//
// Count, Total, Avg, Min and Max are exact. The percentiles come from an
// HDR histogram with microsecond resolution and are clamped into [Min, Max].
type LatencyStats struct {
	Count int64         `json:"count" yaml:"count"`
	Total time.Duration `json:"-" yaml:"-"`
	Avg   time.Duration `json:"-" yaml:"-"`
	Min   time.Duration `json:"-" yaml:"-"`
	Max   time.Duration `json:"-" yaml:"-"`
	P50   time.Duration `json:"-" yaml:"-"`
	P90   time.Duration `json:"-" yaml:"-"`
	P99   time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	TotalMs int64   `json:"total" yaml:"total_ms"`
	AvgMs   int64   `json:"avg" yaml:"avg_ms"`
	MinMs   int64   `json:"min" yaml:"min_ms"`
	MaxMs   int64   `json:"max" yaml:"max_ms"`
	P50Ms   float64 `json:"p50" yaml:"p50_ms"`
	P90Ms   float64 `json:"p90" yaml:"p90_ms"`
	P99Ms   float64 `json:"p99" yaml:"p99_ms"`
}

const (
	lowestTrackableMicros  = 1
	highestTrackableMicros = int64(10 * time.Minute / time.Microsecond)
)

// latencyRecorder owns a LatencyStats plus the histogram backing its
// percentiles. It is not safe for concurrent use; the owning aggregator
// serializes access.
type latencyRecorder struct {
	stats LatencyStats
	hist  *hdrhistogram.Histogram
}

func newLatencyRecorder() latencyRecorder {
	return latencyRecorder{
		hist: hdrhistogram.New(lowestTrackableMicros, highestTrackableMicros, 3),
	}
}

// record adds one sample. The first sample initializes both Min and Max;
// Count doubles as the "has any sample" flag so a zero-length first sample
// is kept as the minimum.
func (r *latencyRecorder) record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s := &r.stats
	if s.Count == 0 {
		s.Min = d
		s.Max = d
	} else {
		if d < s.Min {
			s.Min = d
		}
		if d > s.Max {
			s.Max = d
		}
	}
	s.Count++
	s.Total += d
	s.Avg = s.Total / time.Duration(s.Count)

	if r.hist == nil {
		return
	}
	us := d.Microseconds()
	if us < r.hist.LowestTrackableValue() {
		us = r.hist.LowestTrackableValue()
	}
	if us > r.hist.HighestTrackableValue() {
		us = r.hist.HighestTrackableValue()
	}
	_ = r.hist.RecordValue(us)
}

func (r *latencyRecorder) snapshot() LatencyStats {
	s := r.stats
	if r.hist != nil && r.hist.TotalCount() > 0 {
		s.P50 = s.clamp(time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond)
		s.P90 = s.clamp(time.Duration(r.hist.ValueAtQuantile(90)) * time.Microsecond)
		s.P99 = s.clamp(time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond)
	}

	s.TotalMs = s.Total.Milliseconds()
	s.AvgMs = s.Avg.Milliseconds()
	s.MinMs = s.Min.Milliseconds()
	s.MaxMs = s.Max.Milliseconds()
	s.P50Ms = float64(s.P50) / float64(time.Millisecond)
	s.P90Ms = float64(s.P90) / float64(time.Millisecond)
	s.P99Ms = float64(s.P99) / float64(time.Millisecond)
	return s
}

func (s LatencyStats) clamp(d time.Duration) time.Duration {
	if d < s.Min {
		return s.Min
	}
	if d > s.Max {
		return s.Max
	}
	return d
}
