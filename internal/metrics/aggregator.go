package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wsdrill/wsdrill/internal/stats"
)

// reportPercentiles are the ranks included in every snapshot series.
var reportPercentiles = []float64{50, 66, 75, 80, 90, 95, 97, 98, 99, 100}

// maxErrorKeyLen bounds histogram keys so a pathological error message
// cannot bloat the report.
const maxErrorKeyLen = 120

// Aggregator is the shared, mutable metrics sink for a run. One
// instance is created per run and mutated concurrently by every
// connection driver across every worker.
type Aggregator struct {
	mu             sync.Mutex // guards timestamps and the error histogram
	startTime      time.Time
	established    time.Duration
	establishedSet bool
	duration       time.Duration
	stopped        bool
	errors         map[string]int64

	connections int64
	disconnects int64
	failures    int64
	bytesRead   int64
	bytesSent   int64

	handshakeMu sync.Mutex
	handshake   *stats.Accumulator
	latencyMu   sync.Mutex
	latency     *stats.Accumulator
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		errors:    make(map[string]int64),
		handshake: stats.NewAccumulator(),
		latency:   stats.NewAccumulator(),
	}
}

// Start records the run start time. Later calls are no-ops.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.startTime.IsZero() {
		a.startTime = time.Now()
	}
}

// Established records the elapsed time from start until every intended
// connection has reached open state or failed. First call wins.
func (a *Aggregator) Established() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.establishedSet {
		return
	}
	a.established = time.Since(a.startTime)
	a.establishedSet = true
}

// Stop records the run stop time and total duration. First call wins.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.duration = time.Since(a.startTime)
	a.stopped = true
}

// Error records one connection failure, bucketed by the error's
// message text.
func (a *Aggregator) Error(err error) {
	atomic.AddInt64(&a.failures, 1)

	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if len(msg) > maxErrorKeyLen {
		msg = msg[:maxErrorKeyLen]
	}

	a.mu.Lock()
	a.errors[msg]++
	a.mu.Unlock()
}

// Handshaken records one successfully opened connection and its
// handshake duration.
func (a *Aggregator) Handshaken(duration time.Duration) {
	atomic.AddInt64(&a.connections, 1)

	a.handshakeMu.Lock()
	a.handshake.Push(duration)
	a.handshakeMu.Unlock()
}

// Message records one completed request/response round-trip.
func (a *Aggregator) Message(latency time.Duration) {
	a.latencyMu.Lock()
	a.latency.Push(latency)
	a.latencyMu.Unlock()
}

// Close records one clean disconnect and the connection's byte totals.
func (a *Aggregator) Close(bytesRead, bytesSent int64) {
	atomic.AddInt64(&a.disconnects, 1)
	atomic.AddInt64(&a.bytesRead, bytesRead)
	atomic.AddInt64(&a.bytesSent, bytesSent)
}

// Connections returns the current open-connection counter.
func (a *Aggregator) Connections() int64 { return atomic.LoadInt64(&a.connections) }

// Disconnects returns the current disconnect counter.
func (a *Aggregator) Disconnects() int64 { return atomic.LoadInt64(&a.disconnects) }

// Failures returns the current failure counter.
func (a *Aggregator) Failures() int64 { return atomic.LoadInt64(&a.failures) }

// Snapshot computes the current summary from the accumulated samples.
// It is consistent with every event reported so far and may be called
// while the run is still in flight (progress reporting does).
func (a *Aggregator) Snapshot() Summary {
	a.mu.Lock()
	summary := Summary{
		Established: a.established,
		Duration:    a.duration,
	}
	if !a.stopped && !a.startTime.IsZero() {
		summary.Duration = time.Since(a.startTime)
	}
	failures := atomic.LoadInt64(&a.failures)
	if failures > 0 {
		summary.Errors = make(map[string]int64, len(a.errors))
		for msg, n := range a.errors {
			summary.Errors[msg] = n
		}
	}
	a.mu.Unlock()

	summary.Connections = atomic.LoadInt64(&a.connections)
	summary.Disconnects = atomic.LoadInt64(&a.disconnects)
	summary.Failures = failures
	summary.BytesRead = atomic.LoadInt64(&a.bytesRead)
	summary.BytesSent = atomic.LoadInt64(&a.bytesSent)

	a.handshakeMu.Lock()
	summary.Handshake = summarizeSeries(a.handshake)
	a.handshakeMu.Unlock()

	a.latencyMu.Lock()
	summary.Latency = summarizeSeries(a.latency)
	a.latencyMu.Unlock()

	summary.EstablishedMs = durationMs(summary.Established)
	summary.DurationMs = durationMs(summary.Duration)

	return summary
}

func summarizeSeries(acc *stats.Accumulator) SeriesSummary {
	s := SeriesSummary{Samples: acc.Count()}
	if s.Samples == 0 {
		return s
	}

	s.Min, s.Max = acc.Range()
	s.Mean = acc.Mean()
	s.StdDev = acc.StdDev()
	s.Median = acc.Median()

	s.MinMs = durationMs(s.Min)
	s.MaxMs = durationMs(s.Max)
	s.MeanMs = durationMs(s.Mean)
	s.StdDevMs = durationMs(s.StdDev)
	s.MedianMs = durationMs(s.Median)

	s.Percentiles = make([]Quantile, 0, len(reportPercentiles))
	for _, p := range reportPercentiles {
		s.Percentiles = append(s.Percentiles, Quantile{
			Percentile: p,
			Value:      acc.Percentile(p),
			ValueMs:    durationMs(acc.Percentile(p)),
		})
	}
	return s
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
