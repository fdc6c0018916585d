package worker

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/wsdrill/wsdrill/internal/config"
	"github.com/wsdrill/wsdrill/internal/driver"
	"github.com/wsdrill/wsdrill/internal/metrics"
)

// Worker drives its share of the run's connections, admitting them
// into the establishing phase through a bounded semaphore.
type Worker struct {
	id        int
	offset    int // first global connection index owned by this worker
	share     int
	cfg       *config.Config
	agg       *metrics.Aggregator
	tracer    trace.Tracer
	onSettled func()
	onFailure func(id int, err error)
}

// Run admits and executes the worker's connections. It returns once
// every one of them has reached a terminal state. Admission stops
// early when ctx is cancelled; connections already admitted still run
// to their terminal state.
func (w *Worker) Run(ctx context.Context) {
	ceiling := w.cfg.Concurrency
	if ceiling <= 0 || ceiling > w.share {
		ceiling = w.share
	}
	if ceiling == 0 {
		return
	}
	sem := make(chan struct{}, ceiling)

	var wg sync.WaitGroup
	for i := 0; i < w.share; i++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}

		id := w.offset + i
		release := func() {
			<-sem
			if w.onSettled != nil {
				w.onSettled()
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			d := driver.New(id, w.cfg, w.agg, w.tracer, release)
			if err := d.Run(ctx); err != nil && w.onFailure != nil {
				w.onFailure(id, err)
			}
		}()
	}
	wg.Wait()
}
