package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relaybench"

// Exporter exposes the run aggregators to Prometheus. Values are read from
// fresh snapshots on every scrape.
type Exporter struct {
	conns *Connections
	msgs  *Messages

	connections   *prometheus.Desc
	planned       *prometheus.Desc
	connectTime   *prometheus.Desc
	connectErrors *prometheus.Desc
	roundTrips    *prometheus.Desc
	roundTripTime *prometheus.Desc
	bytes         *prometheus.Desc
	events        *prometheus.Desc
}

// NewExporter creates an exporter. msgs may be nil for connect-only runs.
func NewExporter(conns *Connections, msgs *Messages) *Exporter {
	return &Exporter{
		conns: conns,
		msgs:  msgs,
		connections: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "connections"),
			"Connection slots by lifecycle counter",
			[]string{"state"}, nil,
		),
		planned: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "connections_planned"),
			"Connection slots planned for the run",
			nil, nil,
		),
		connectTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "connect_time_seconds"),
			"Connect and handshake latency of established connections",
			[]string{"stat"}, nil,
		),
		connectErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "connect_errors_total"),
			"Failed connection attempts by error kind",
			[]string{"kind"}, nil,
		),
		roundTrips: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "round_trips_total"),
			"Round trips by state",
			[]string{"state"}, nil,
		),
		roundTripTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "round_trip_seconds"),
			"Round-trip latency",
			[]string{"stat"}, nil,
		),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "transferred_bytes_total"),
			"Bytes sent and received by message workloads",
			nil, nil,
		),
		events: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "events_total"),
			"Relay EVENT messages received",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.connections
	ch <- e.planned
	ch <- e.connectTime
	ch <- e.connectErrors
	if e.msgs != nil {
		ch <- e.roundTrips
		ch <- e.roundTripTime
		ch <- e.bytes
		ch <- e.events
	}
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	cs := e.conns.Snapshot()

	ch <- prometheus.MustNewConstMetric(e.planned, prometheus.GaugeValue, float64(cs.Total))
	for state, v := range map[string]int{
		"attempted": cs.Attempted,
		"alive":     cs.Alive,
		"complete":  cs.Complete,
		"errored":   cs.Errored,
		"lost":      cs.Lost,
		"closed":    cs.Closed,
	} {
		ch <- prometheus.MustNewConstMetric(e.connections, prometheus.GaugeValue, float64(v), state)
	}
	for kind, v := range cs.Errors {
		ch <- prometheus.MustNewConstMetric(e.connectErrors, prometheus.CounterValue, float64(v), kind)
	}
	collectLatency(ch, e.connectTime, cs.ConnectTime)

	if e.msgs == nil {
		return
	}
	ms := e.msgs.Snapshot()
	ch <- prometheus.MustNewConstMetric(e.roundTrips, prometheus.CounterValue, float64(ms.Total), "started")
	ch <- prometheus.MustNewConstMetric(e.roundTrips, prometheus.CounterValue, float64(ms.Complete), "complete")
	ch <- prometheus.MustNewConstMetric(e.roundTrips, prometheus.CounterValue, float64(ms.Errored), "errored")
	ch <- prometheus.MustNewConstMetric(e.bytes, prometheus.CounterValue, float64(ms.Size))
	ch <- prometheus.MustNewConstMetric(e.events, prometheus.CounterValue, float64(ms.Event))
	collectLatency(ch, e.roundTripTime, ms.RoundTrip)
}

func collectLatency(ch chan<- prometheus.Metric, desc *prometheus.Desc, s LatencyStats) {
	if s.Count == 0 {
		return
	}
	for stat, d := range map[string]float64{
		"avg": s.Avg.Seconds(),
		"min": s.Min.Seconds(),
		"max": s.Max.Seconds(),
		"p50": s.P50.Seconds(),
		"p90": s.P90.Seconds(),
		"p99": s.P99.Seconds(),
	} {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, d, stat)
	}
}
