// Package worker provides the orchestration engine: it partitions the
// total connection count across workers, staggers worker startup, and
// bounds how many connections each worker may have in the establishing
// phase at once.
//
// # Coordinator
//
// The [Coordinator] owns a run end to end:
//
//	coord := worker.NewCoordinator(worker.Options{
//		Config:     cfg,
//		Aggregator: agg,
//	})
//	err := coord.Run(ctx)
//
// It marks the aggregator's start, launches one worker per configured
// slot with the ramp-up delay between successive starts, fires the
// aggregator's established event once every intended connection has
// reached open state or failed, waits for all workers, and marks the
// stop.
//
// # Admission Control
//
// Each worker holds a buffered-channel semaphore sized to the
// concurrency ceiling. A connection acquires a slot before dialing and
// releases it the moment it leaves the establishing window, so at most
// ceiling handshakes are in flight per worker at any instant.
//
// # Failure Isolation
//
// A failed connection releases its slot and is recorded in the
// aggregator; it never aborts its worker or the run. Only
// configuration errors, caught before Run, are fatal.
package worker
