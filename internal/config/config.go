package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the validated run configuration. It is built once before
// any worker starts and shared read-only across all workers.
type Config struct {
	Target  string            `mapstructure:"target"`
	Headers map[string]string `mapstructure:"headers"`

	Amount      int `mapstructure:"amount"`      // total connections across all workers
	Workers     int `mapstructure:"workers"`     // worker count
	Messages    int `mapstructure:"messages"`    // round-trips per connection
	PayloadSize int `mapstructure:"size"`        // message payload size in bytes
	Concurrency int `mapstructure:"concurrency"` // per-worker establishment ceiling (0 = unbounded)

	KeepAlive       time.Duration `mapstructure:"keepalive"` // 0 = disabled
	MessageInterval time.Duration `mapstructure:"interval"`  // 0 = send as fast as possible
	RampUp          time.Duration `mapstructure:"ramp_up"`   // delay between worker starts (0 = no stagger)
	Masked          bool          `mapstructure:"masked"`    // send binary frames

	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReceiveTimeout   time.Duration `mapstructure:"receive_timeout"`

	JSONOutput bool   `mapstructure:"json_output"`
	OutputFile string `mapstructure:"output"`
	LogErrors  bool   `mapstructure:"log_errors"`

	Thresholds []string      `mapstructure:"thresholds"`
	Tracing    TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// TracingConfig configures the optional OpenTelemetry span export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether span export was requested.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ValidationError collects every configuration issue found in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the configuration. Any issue is run-fatal: the run
// produces no report and no worker starts.
func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.Target)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil {
		issues = append(issues, fmt.Sprintf("target is not a valid URL: %v", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		issues = append(issues, fmt.Sprintf("target scheme must be ws or wss, got %q", u.Scheme))
	}

	if c.Amount < 1 {
		issues = append(issues, "amount must be >= 1")
	}
	if c.Workers < 1 {
		issues = append(issues, "workers must be >= 1")
	}
	if c.Messages < 0 {
		issues = append(issues, "messages must be >= 0")
	}
	if c.PayloadSize < 0 {
		issues = append(issues, "size must be >= 0")
	}
	if c.Concurrency < 0 {
		issues = append(issues, "concurrency must be >= 0")
	}
	if c.KeepAlive < 0 {
		issues = append(issues, "keepalive must be >= 0")
	}
	if c.MessageInterval < 0 {
		issues = append(issues, "interval must be >= 0")
	}
	if c.RampUp < 0 {
		issues = append(issues, "ramp-up must be >= 0")
	}
	if c.HandshakeTimeout < 0 {
		issues = append(issues, "handshake-timeout must be >= 0")
	}
	if c.ReceiveTimeout < 0 {
		issues = append(issues, "receive-timeout must be >= 0")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Share returns worker i's slice of the total connection count, with
// the remainder distributed to the first workers.
func (c Config) Share(worker int) int {
	share := c.Amount / c.Workers
	if worker < c.Amount%c.Workers {
		share++
	}
	return share
}
