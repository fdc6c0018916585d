package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional config file to
// produce a Config. Flags override file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Headers:          map[string]string{},
		Amount:           100,
		Workers:          runtime.NumCPU(),
		Messages:         100,
		PayloadSize:      1024,
		HandshakeTimeout: 30 * time.Second,
		ReceiveTimeout:   10 * time.Second,
		ConfigFile:       configPath,
		Tracing:          TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Target = strings.TrimSpace(cfg.Target)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// applyFlagOverrides copies every explicitly set flag over the file
// settings. Defaults for flags the user never touched only apply when
// the file did not set the field either, which the initial Config
// literal in Load already covers.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "target":
			cfg.Target, err = flags.GetString(f.Name)
		case "header":
			var pairs []string
			pairs, err = flags.GetStringSlice(f.Name)
			if err != nil {
				return
			}
			err = mergeHeaders(cfg, pairs)
		case "amount":
			cfg.Amount, err = flags.GetInt(f.Name)
		case "workers":
			cfg.Workers, err = flags.GetInt(f.Name)
		case "messages":
			cfg.Messages, err = flags.GetInt(f.Name)
		case "size":
			cfg.PayloadSize, err = flags.GetInt(f.Name)
		case "concurrency":
			cfg.Concurrency, err = flags.GetInt(f.Name)
		case "keepalive":
			cfg.KeepAlive, err = flags.GetDuration(f.Name)
		case "interval":
			cfg.MessageInterval, err = flags.GetDuration(f.Name)
		case "ramp-up":
			cfg.RampUp, err = flags.GetDuration(f.Name)
		case "masked":
			cfg.Masked, err = flags.GetBool(f.Name)
		case "handshake-timeout":
			cfg.HandshakeTimeout, err = flags.GetDuration(f.Name)
		case "receive-timeout":
			cfg.ReceiveTimeout, err = flags.GetDuration(f.Name)
		case "json-output":
			cfg.JSONOutput, err = flags.GetBool(f.Name)
		case "output":
			cfg.OutputFile, err = flags.GetString(f.Name)
		case "log-errors":
			cfg.LogErrors, err = flags.GetBool(f.Name)
		case "threshold":
			cfg.Thresholds, err = flags.GetStringSlice(f.Name)
		case "otlp-endpoint":
			cfg.Tracing.Endpoint, err = flags.GetString(f.Name)
		case "otlp-protocol":
			cfg.Tracing.Protocol, err = flags.GetString(f.Name)
		case "otlp-sample-rate":
			cfg.Tracing.SampleRate, err = flags.GetFloat64(f.Name)
		case "otlp-insecure":
			cfg.Tracing.Insecure, err = flags.GetBool(f.Name)
		}
	})
	return err
}

func mergeHeaders(cfg *Config, pairs []string) error {
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(key) == "" {
			return fmt.Errorf("header %q is not in key=value form", pair)
		}
		cfg.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return nil
}
