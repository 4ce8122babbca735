// Package metrics aggregates connection and message statistics for a relaybench run.
//
// Two shared aggregators are mutated concurrently by every connection slot:
//
//   - [Connections] tracks slot lifecycle counters (attempted, alive, errored,
//     lost, closed, complete) and connect latency.
//   - [Messages] tracks round trips for the echo and request-cycle workloads,
//     including transferred bytes and relay events.
//
// Both guard their state with a single mutex. Every Record method takes the
// lock once and applies its update as a group, so a [Connections.Snapshot] or
// [Messages.Snapshot] never observes a half-applied event.
//
//	conns := metrics.NewConnections(100)
//	conns.RecordAttempt()
//	conns.RecordConnected(latency, time.Since(start))
//	conns.RecordLost()
//	conns.RecordComplete()
//	snap := conns.Snapshot()
//
// # Latency
//
// [LatencyStats] keeps an exact count, total, average, minimum and maximum, and
// approximate p50/p90/p99 values from an HDR histogram.
//
// # Prometheus
//
// [Exporter] is a prometheus.Collector that reads both aggregators at scrape time.
package metrics
