package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/wsdrill/wsdrill/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	agg      *metrics.Aggregator
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(agg *metrics.Aggregator, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		agg:      agg,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			line := fmt.Sprintf("\rConnections: %d | Disconnects: %d | Failures: %d",
				p.agg.Connections(), p.agg.Disconnects(), p.agg.Failures())
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
