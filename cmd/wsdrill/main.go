package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/wsdrill/wsdrill/internal/config"
	"github.com/wsdrill/wsdrill/internal/metrics"
	"github.com/wsdrill/wsdrill/internal/output"
	"github.com/wsdrill/wsdrill/internal/threshold"
	"github.com/wsdrill/wsdrill/internal/tracing"
	"github.com/wsdrill/wsdrill/internal/worker"
)

const progressInterval = time.Second

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(id int, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[wsdrill] connection %d failed: %v\n", id, err)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	agg := metrics.NewAggregator()

	var onFailure func(id int, err error)
	if cfg.LogErrors {
		logger := &stderrFailureLogger{}
		onFailure = logger.LogFailure
	}

	coord := worker.NewCoordinator(worker.Options{
		Config:     cfg,
		Aggregator: agg,
		Tracer:     provider.Tracer(),
		OnFailure:  onFailure,
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(agg, progressInterval, os.Stdout)
		progress.Start()
	}

	runErr := coord.Run(ctx)

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}

	summary := agg.Snapshot()

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, summary); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, summary)
	}

	if cfg.OutputFile != "" {
		if err := output.WriteJSONFile(cfg.OutputFile, summary); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	if len(thresholds) > 0 {
		results := threshold.NewEvaluator(thresholds).Evaluate(summary)
		failed := 0
		fmt.Fprintln(os.Stdout, "\nThresholds:")
		for _, result := range results {
			if result.Pass {
				fmt.Fprintf(os.Stdout, "  %s\n", result.Message)
			} else {
				color.New(color.FgRed).Fprintf(os.Stdout, "  %s\n", result.Message)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d threshold(s) failed", failed)
		}
	}

	return nil
}
