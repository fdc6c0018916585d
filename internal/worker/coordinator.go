package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/wsdrill/wsdrill/internal/config"
	"github.com/wsdrill/wsdrill/internal/metrics"
)

// Options configure a Coordinator.
type Options struct {
	Config     *config.Config      // validated run configuration (required)
	Aggregator *metrics.Aggregator // shared metrics sink (required)
	Tracer     trace.Tracer        // optional connection span tracer
	OnFailure  func(id int, err error) // optional per-connection failure hook
}

// Coordinator partitions the run across workers, staggers their
// startup, and supervises completion.
type Coordinator struct {
	opt     Options
	settled int64
}

// NewCoordinator creates a coordinator for one run.
func NewCoordinator(opt Options) *Coordinator {
	return &Coordinator{opt: opt}
}

// Run executes the run to completion: it marks the aggregator start,
// launches every worker with the configured ramp-up delay between
// successive starts, waits for all of them, then marks the stop. The
// returned error is non-nil only when the run was cancelled; individual
// connection failures are recorded in the aggregator, not returned.
func (c *Coordinator) Run(ctx context.Context) error {
	cfg := c.opt.Config
	c.opt.Aggregator.Start()

	var wg sync.WaitGroup
	offset := 0
	for i := 0; i < cfg.Workers; i++ {
		share := cfg.Share(i)
		if share == 0 {
			continue
		}

		if i > 0 && cfg.RampUp > 0 {
			select {
			case <-time.After(cfg.RampUp):
			case <-ctx.Done():
				wg.Wait()
				c.opt.Aggregator.Stop()
				return ctx.Err()
			}
		}

		w := &Worker{
			id:        i,
			offset:    offset,
			share:     share,
			cfg:       cfg,
			agg:       c.opt.Aggregator,
			tracer:    c.opt.Tracer,
			onSettled: c.connectionSettled,
			onFailure: c.opt.OnFailure,
		}
		offset += share

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	wg.Wait()
	c.opt.Aggregator.Stop()
	return ctx.Err()
}

// connectionSettled fires the aggregator's established event once the
// last intended connection has reached open state or failed.
func (c *Coordinator) connectionSettled() {
	if atomic.AddInt64(&c.settled, 1) == int64(c.opt.Config.Amount) {
		c.opt.Aggregator.Established()
	}
}
