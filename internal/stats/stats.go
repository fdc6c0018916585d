// Package stats provides an append-only accumulator for duration
// samples with derived order statistics.
package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Accumulator records duration samples and answers range, mean, stddev
// and percentile queries over everything pushed so far.
//
// Percentiles come from an HDR histogram (1µs..60s, 3 significant
// figures); min, max and mean are tracked exactly alongside it so the
// extremes and the average never suffer bucket rounding.
//
// An Accumulator is not safe for concurrent use; callers synchronize
// access per series. All queries on an empty accumulator return zero —
// callers must treat zero samples as "no data".
type Accumulator struct {
	hist  *hdrhistogram.Histogram
	count int64
	min   time.Duration
	max   time.Duration
	sum   time.Duration
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		hist: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Push records one sample.
func (a *Accumulator) Push(d time.Duration) {
	us := d.Microseconds()
	if us < a.hist.LowestTrackableValue() {
		us = a.hist.LowestTrackableValue()
	}
	if us > a.hist.HighestTrackableValue() {
		us = a.hist.HighestTrackableValue()
	}
	_ = a.hist.RecordValue(us)

	if a.count == 0 || d < a.min {
		a.min = d
	}
	if d > a.max {
		a.max = d
	}
	a.sum += d
	a.count++
}

// Count returns the number of samples pushed.
func (a *Accumulator) Count() int64 {
	return a.count
}

// Range returns the exact (min, max) over all samples.
func (a *Accumulator) Range() (time.Duration, time.Duration) {
	return a.min, a.max
}

// Mean returns the exact arithmetic mean.
func (a *Accumulator) Mean() time.Duration {
	if a.count == 0 {
		return 0
	}
	return time.Duration(int64(a.sum) / a.count)
}

// StdDev returns the population standard deviation.
func (a *Accumulator) StdDev() time.Duration {
	if a.count == 0 {
		return 0
	}
	return time.Duration(a.hist.StdDev()) * time.Microsecond
}

// Median returns the 50th percentile.
func (a *Accumulator) Median() time.Duration {
	return a.Percentile(50)
}

// Percentile returns the value at rank p using nearest-rank semantics.
// The ends are pinned to the exact observed extremes: Percentile(0) is
// the true min and Percentile(100) the true max.
func (a *Accumulator) Percentile(p float64) time.Duration {
	if a.count == 0 {
		return 0
	}
	if p <= 0 {
		return a.min
	}
	if p >= 100 {
		return a.max
	}
	v := time.Duration(a.hist.ValueAtQuantile(p)) * time.Microsecond
	// Bucket rounding can nudge the estimate past the observed range.
	if v < a.min {
		v = a.min
	}
	if v > a.max {
		v = a.max
	}
	return v
}
