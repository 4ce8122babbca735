// Package runner provides the load generation engine for relaybench.
//
// A [Runner] admits a fixed number of connection slots at a controlled rate.
// Each slot runs concurrently and independently:
//   - dial the target through the configured [Dialer], optionally bound to a
//     local address picked round-robin from Options.Interfaces
//   - on failure, count the slot as errored
//   - on success, count it alive and run the [workload.Workload] under the
//     lifetime supervisor
//   - classify the end as closed (lifetime ceiling reached, or run
//     interrupted) or lost (the stream ended first, for any reason)
//
// Every slot bumps the complete counter exactly once, so a finished run
// satisfies complete == total == errored + lost + closed with alive == 0.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Target:    target,
//		Remote:    remote,
//		Count:     1000,
//		Rate:      50,
//		Keepalive: 30 * time.Second,
//		Workload:  workload.Idle{},
//		Sink:      sink,
//	})
//	result := r.Run(ctx)
//
// # Arrival Models
//
//   - [ArrivalModelBatch]: Rate slots at once, then a one second pause before
//     the next batch; no pause after the last one
//   - [ArrivalModelUniform]: token bucket at Rate per second, burst 1
//   - [ArrivalModelPoisson]: exponential gaps with mean 1/Rate
//
// # Reporting
//
// The reporter hands a [Sink] a snapshot of the connection counters right
// away and then every ReportInterval until a snapshot shows every slot
// complete. The reporter and the scheduler race: whichever finishes first
// stops the other, so the last emitted snapshot may trail the final state.
// Use [Result] for the terminal counters.
//
// # Errors
//
// Connection failures never abort a run. [ErrAliveTimeout] and [ErrLost]
// only carry lifetime classification; see [OutcomeOf].
package runner
