package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wsdrill",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("target", "", "WebSocket endpoint to benchmark (ws:// or wss://)")
	flags.StringSlice("header", nil, "Additional handshake header in key=value form")

	// Load shape flags
	flags.IntP("amount", "a", 100, "Total number of connections to open")
	flags.IntP("workers", "w", runtime.NumCPU(), "Number of workers to spread connections across")
	flags.IntP("messages", "m", 100, "Messages to exchange per connection")
	flags.IntP("size", "s", 1024, "Message payload size in bytes")
	flags.IntP("concurrency", "c", 0, "Max connections establishing at once per worker (0 means unbounded)")
	flags.Duration("keepalive", 0, "Ping interval per connection (0 disables keepalive)")
	flags.Duration("interval", 0, "Delay between messages on a connection (0 means send as fast as possible)")
	flags.Duration("ramp-up", 0, "Delay between successive worker starts")
	flags.Bool("masked", false, "Send binary frames instead of text frames")

	// Timeout flags
	flags.Duration("handshake-timeout", 30*time.Second, "WebSocket handshake timeout")
	flags.Duration("receive-timeout", 10*time.Second, "Per-read timeout while waiting for a response")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.StringP("output", "o", "", "Write the JSON report to the specified file path")
	flags.Bool("log-errors", false, "Log each failed connection to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g. 'latency:p95 < 500')")

	// Tracing flags
	flags.String("otlp-endpoint", "", "OTLP endpoint for span export (empty disables tracing)")
	flags.String("otlp-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.Float64("otlp-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")
	flags.Bool("otlp-insecure", false, "Skip TLS for the OTLP exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}
