// Package threshold evaluates performance assertions against a run's
// final snapshot, e.g. "latency:p95 < 500".
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wsdrill/wsdrill/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // "latency", "handshake", "failures" or "connections"
	Aggregate string  // e.g. "p95", "median", "avg", "max", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=" or "=="
	Value     float64 // the threshold value to compare against
	Raw       string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a metrics summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the provided summary.
func (e *Evaluator) Evaluate(summary metrics.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, summary))
	}
	return results
}

func (e *Evaluator) evaluateOne(t Threshold, summary metrics.Summary) Result {
	actual, err := extractMetricValue(t, summary)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "latency:p95 < 500"       (round-trip percentile in ms)
//   - "latency:median < 200"    (round-trip median in ms)
//   - "handshake:max < 1000"    (handshake max in ms)
//   - "failures:rate < 0.01"    (failure rate as decimal)
//   - "failures:count == 0"     (failure count)
//   - "connections:count >= 100"
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g. 'latency:p95 < 500')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[4], err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, handshake, failures, connections)", metric)
	}
	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50..p100, median, avg, min, max, stddev, rate, count)", aggregate)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}
	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "latency", "handshake", "failures", "connections":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	if strings.HasPrefix(aggregate, "p") {
		if _, err := strconv.ParseFloat(aggregate[1:], 64); err == nil {
			return true
		}
	}
	switch aggregate {
	case "median", "avg", "mean", "min", "max", "stddev", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, summary metrics.Summary) (float64, error) {
	switch t.Metric {
	case "latency":
		return extractSeriesMetric(t.Aggregate, summary.Latency)
	case "handshake":
		return extractSeriesMetric(t.Aggregate, summary.Handshake)
	case "failures":
		return extractFailureMetric(t.Aggregate, summary)
	case "connections":
		if t.Aggregate != "count" {
			return 0, fmt.Errorf("unsupported aggregate %q for connections (use 'count')", t.Aggregate)
		}
		return float64(summary.Connections), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractSeriesMetric(aggregate string, series metrics.SeriesSummary) (float64, error) {
	switch aggregate {
	case "avg", "mean":
		return series.MeanMs, nil
	case "median":
		return series.MedianMs, nil
	case "min":
		return series.MinMs, nil
	case "max":
		return series.MaxMs, nil
	case "stddev":
		return series.StdDevMs, nil
	}

	if strings.HasPrefix(aggregate, "p") {
		p, err := strconv.ParseFloat(aggregate[1:], 64)
		if err == nil {
			if v, ok := series.PercentileMs(p); ok {
				return v, nil
			}
			return 0, fmt.Errorf("percentile %s is not in the report (available: p50, p66, p75, p80, p90, p95, p97, p98, p99, p100)", aggregate)
		}
	}

	return 0, fmt.Errorf("unsupported aggregate %q for timing series", aggregate)
}

func extractFailureMetric(aggregate string, summary metrics.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(summary.Failures), nil
	case "rate":
		total := summary.Connections + summary.Failures
		if total == 0 {
			return 0, nil
		}
		return float64(summary.Failures) / float64(total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for failures (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Floating point comparison with a small epsilon.
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
