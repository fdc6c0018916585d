// Package metrics aggregates connection lifecycle events from all
// drivers into a single shared run snapshot.
//
// The central [Aggregator] type is created once per run and handed to
// every worker and driver. Drivers report events as they happen:
//
//	agg := metrics.NewAggregator()
//	agg.Start()
//
//	agg.Handshaken(30 * time.Millisecond) // connection opened
//	agg.Message(20 * time.Millisecond)    // round-trip completed
//	agg.Close(1024, 2048)                 // connection closed cleanly
//	agg.Error(err)                        // connection failed
//
//	agg.Stop()
//	summary := agg.Snapshot()
//
// # Thread Safety
//
// All reporting methods are safe to call concurrently from any number
// of drivers. Scalar counters use atomic operations; the handshake and
// latency series each take an independent lock, so recording a
// handshake never contends with recording a round-trip.
//
// # Derived Statistics
//
// Counters are maintained eagerly but order statistics (median,
// percentiles, stddev) are only computed when [Aggregator.Snapshot] is
// called, so per-event cost stays constant regardless of report shape.
package metrics
