package metrics

import "time"

// Summary is a read-only view of a run's aggregated metrics.
type Summary struct {
	Connections int64 `json:"connections"`
	Disconnects int64 `json:"disconnects"`
	Failures    int64 `json:"failures"`
	BytesRead   int64 `json:"bytes_read"`
	BytesSent   int64 `json:"bytes_sent"`

	Established time.Duration `json:"-"`
	Duration    time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	EstablishedMs float64 `json:"established_ms"`
	DurationMs    float64 `json:"duration_ms"`

	Handshake SeriesSummary `json:"handshake"`
	Latency   SeriesSummary `json:"latency"`

	// Errors maps distinct error messages to occurrence counts. Only
	// present when at least one connection failed.
	Errors map[string]int64 `json:"errors,omitempty"`
}

// SeriesSummary carries the derived statistics for one timing series.
// All duration fields are zero when Samples is zero.
type SeriesSummary struct {
	Samples int64 `json:"samples"`

	Min    time.Duration `json:"-"`
	Mean   time.Duration `json:"-"`
	StdDev time.Duration `json:"-"`
	Median time.Duration `json:"-"`
	Max    time.Duration `json:"-"`

	MinMs    float64 `json:"min_ms"`
	MeanMs   float64 `json:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms"`
	MedianMs float64 `json:"median_ms"`
	MaxMs    float64 `json:"max_ms"`

	Percentiles []Quantile `json:"percentiles,omitempty"`
}

// Quantile is one percentile row of a series summary.
type Quantile struct {
	Percentile float64       `json:"percentile"`
	Value      time.Duration `json:"-"`
	ValueMs    float64       `json:"value_ms"`
}

// PercentileMs returns the millisecond value recorded for rank p, or
// false when the series does not carry that rank.
func (s SeriesSummary) PercentileMs(p float64) (float64, bool) {
	for _, q := range s.Percentiles {
		if q.Percentile == p {
			return q.ValueMs, true
		}
	}
	return 0, false
}
