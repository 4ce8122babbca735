package metrics

import "time"

// Summary is the final picture of a run, read straight from the aggregators
// once the run has returned.
type Summary struct {
	Mode        string          `json:"mode" yaml:"mode"`
	Target      string          `json:"target" yaml:"target"`
	Duration    time.Duration   `json:"-" yaml:"-"`
	DurationMs  int64           `json:"duration_ms" yaml:"duration_ms"`
	Connections ConnectionStats `json:"connect_stats" yaml:"connect_stats"`
	Messages    *MessageStats   `json:"message_stats,omitempty" yaml:"message_stats,omitempty"`
}

// NewSummary builds a Summary from the aggregators. msgs may be nil.
func NewSummary(mode, target string, duration time.Duration, conns *Connections, msgs *Messages) Summary {
	s := Summary{
		Mode:        mode,
		Target:      target,
		Duration:    duration,
		DurationMs:  duration.Milliseconds(),
		Connections: conns.Snapshot(),
	}
	if msgs != nil {
		m := msgs.Snapshot()
		s.Messages = &m
	}
	return s
}

// RoundTripRate returns completed round trips per second over the run.
func (s Summary) RoundTripRate() float64 {
	if s.Messages == nil || s.Duration <= 0 {
		return 0
	}
	return float64(s.Messages.Complete) / s.Duration.Seconds()
}

// EventRate returns received events per second over the run.
func (s Summary) EventRate() float64 {
	if s.Messages == nil || s.Duration <= 0 {
		return 0
	}
	return float64(s.Messages.Event) / s.Duration.Seconds()
}
