// Package output renders run summaries as console tables, JSON
// documents and live progress lines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"

	"github.com/wsdrill/wsdrill/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, summary metrics.Summary) {
	header := color.New(color.Bold)

	header.Fprintln(w, "\n--- WebSocket Benchmark Results ---")
	fmt.Fprintf(w, "Connections:       %d\n", summary.Connections)
	fmt.Fprintf(w, "Disconnects:       %d\n", summary.Disconnects)
	if summary.Failures > 0 {
		color.New(color.FgRed).Fprintf(w, "Failures:          %d\n", summary.Failures)
	} else {
		fmt.Fprintf(w, "Failures:          %d\n", summary.Failures)
	}
	fmt.Fprintf(w, "Bytes Read:        %d\n", summary.BytesRead)
	fmt.Fprintf(w, "Bytes Sent:        %d\n", summary.BytesSent)
	fmt.Fprintf(w, "Established After: %s\n", summary.Established)
	fmt.Fprintf(w, "Duration:          %s\n", summary.Duration)

	header.Fprintln(w, "\nDurations (ms):")
	fmt.Fprintf(w, "%-12s %9s %9s %9s %9s %9s\n", "", "min", "mean", "stddev", "median", "max")
	writeSeriesRow(w, "Handshake", summary.Handshake)
	writeSeriesRow(w, "Latency", summary.Latency)

	header.Fprintln(w, "\nPercentiles (ms):")
	writePercentileHeader(w, summary.Latency)
	writePercentileRow(w, "Handshake", summary.Handshake)
	writePercentileRow(w, "Latency", summary.Latency)

	if len(summary.Errors) > 0 {
		header.Fprintln(w, "\nErrors:")
		writeErrorHistogram(w, summary.Errors)
	}
}

func writeSeriesRow(w io.Writer, name string, series metrics.SeriesSummary) {
	if series.Samples == 0 {
		fmt.Fprintf(w, "%-12s %9s %9s %9s %9s %9s\n", name, "-", "-", "-", "-", "-")
		return
	}
	fmt.Fprintf(w, "%-12s %9.1f %9.1f %9.1f %9.1f %9.1f\n",
		name, series.MinMs, series.MeanMs, series.StdDevMs, series.MedianMs, series.MaxMs)
}

func writePercentileHeader(w io.Writer, series metrics.SeriesSummary) {
	fmt.Fprintf(w, "%-12s", "")
	for _, q := range series.Percentiles {
		fmt.Fprintf(w, " %8.0f%%", q.Percentile)
	}
	if len(series.Percentiles) == 0 {
		// Empty run: keep the canonical header so the table shape is stable.
		for _, p := range []float64{50, 66, 75, 80, 90, 95, 97, 98, 99, 100} {
			fmt.Fprintf(w, " %8.0f%%", p)
		}
	}
	fmt.Fprintln(w)
}

func writePercentileRow(w io.Writer, name string, series metrics.SeriesSummary) {
	fmt.Fprintf(w, "%-12s", name)
	if series.Samples == 0 {
		for range [10]int{} {
			fmt.Fprintf(w, " %9s", "-")
		}
		fmt.Fprintln(w)
		return
	}
	for _, q := range series.Percentiles {
		fmt.Fprintf(w, " %9.1f", q.ValueMs)
	}
	fmt.Fprintln(w)
}

func writeErrorHistogram(w io.Writer, errors map[string]int64) {
	messages := make([]string, 0, len(errors))
	for msg := range errors {
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		if errors[messages[i]] != errors[messages[j]] {
			return errors[messages[i]] > errors[messages[j]]
		}
		return messages[i] < messages[j]
	})
	for _, msg := range messages {
		fmt.Fprintf(w, "  %dx %s\n", errors[msg], msg)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, summary metrics.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// WriteJSONFile writes the JSON report artifact to the given path.
func WriteJSONFile(path string, summary metrics.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := PrintJSONReport(f, summary); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
