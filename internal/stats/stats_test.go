package stats_test

import (
	"testing"
	"time"

	"github.com/wsdrill/wsdrill/internal/stats"
)

func TestEmptyAccumulator(t *testing.T) {
	acc := stats.NewAccumulator()

	if acc.Count() != 0 {
		t.Errorf("expected count 0, got %d", acc.Count())
	}
	min, max := acc.Range()
	if min != 0 || max != 0 {
		t.Errorf("expected zero range, got (%s, %s)", min, max)
	}
	if acc.Mean() != 0 {
		t.Errorf("expected zero mean, got %s", acc.Mean())
	}
	if acc.StdDev() != 0 {
		t.Errorf("expected zero stddev, got %s", acc.StdDev())
	}
	if acc.Percentile(50) != 0 {
		t.Errorf("expected zero median, got %s", acc.Percentile(50))
	}
}

func TestRangeIsExact(t *testing.T) {
	acc := stats.NewAccumulator()

	acc.Push(17 * time.Millisecond)
	acc.Push(3 * time.Millisecond)
	acc.Push(42 * time.Millisecond)
	acc.Push(25 * time.Millisecond)

	min, max := acc.Range()
	if min != 3*time.Millisecond {
		t.Errorf("expected min 3ms, got %s", min)
	}
	if max != 42*time.Millisecond {
		t.Errorf("expected max 42ms, got %s", max)
	}
}

func TestPercentileEndsArePinnedToExtremes(t *testing.T) {
	acc := stats.NewAccumulator()

	for i := 1; i <= 100; i++ {
		acc.Push(time.Duration(i) * time.Millisecond)
	}

	min, max := acc.Range()
	if acc.Percentile(0) != min {
		t.Errorf("expected percentile(0) == min %s, got %s", min, acc.Percentile(0))
	}
	if acc.Percentile(100) != max {
		t.Errorf("expected percentile(100) == max %s, got %s", max, acc.Percentile(100))
	}
}

func TestMeanIsExact(t *testing.T) {
	acc := stats.NewAccumulator()

	acc.Push(10 * time.Millisecond)
	acc.Push(20 * time.Millisecond)
	acc.Push(30 * time.Millisecond)

	if acc.Mean() != 20*time.Millisecond {
		t.Errorf("expected mean 20ms, got %s", acc.Mean())
	}
}

func TestMedianAndPercentiles(t *testing.T) {
	acc := stats.NewAccumulator()

	// 100 samples: 1ms, 2ms, ..., 100ms.
	for i := 1; i <= 100; i++ {
		acc.Push(time.Duration(i) * time.Millisecond)
	}

	if got := acc.Median(); got < 49*time.Millisecond || got > 51*time.Millisecond {
		t.Errorf("expected median ~50ms, got %s", got)
	}
	if got := acc.Percentile(90); got < 89*time.Millisecond || got > 91*time.Millisecond {
		t.Errorf("expected p90 ~90ms, got %s", got)
	}
	if got := acc.Percentile(99); got < 98*time.Millisecond || got > 100*time.Millisecond {
		t.Errorf("expected p99 ~99ms, got %s", got)
	}
}

func TestPercentileOfIdenticalSamples(t *testing.T) {
	acc := stats.NewAccumulator()

	for i := 0; i < 50; i++ {
		acc.Push(20 * time.Millisecond)
	}

	for _, p := range []float64{0, 50, 90, 99, 100} {
		if got := acc.Percentile(p); got != 20*time.Millisecond {
			t.Errorf("percentile(%g): expected 20ms, got %s", p, got)
		}
	}
}

func TestStdDev(t *testing.T) {
	acc := stats.NewAccumulator()

	// Constant series has zero deviation.
	for i := 0; i < 10; i++ {
		acc.Push(30 * time.Millisecond)
	}
	if got := acc.StdDev(); got > time.Millisecond {
		t.Errorf("expected ~0 stddev for constant series, got %s", got)
	}

	// 10ms and 30ms alternating: population stddev is 10ms.
	spread := stats.NewAccumulator()
	for i := 0; i < 10; i++ {
		spread.Push(10 * time.Millisecond)
		spread.Push(30 * time.Millisecond)
	}
	got := spread.StdDev()
	if got < 9*time.Millisecond || got > 11*time.Millisecond {
		t.Errorf("expected stddev ~10ms, got %s", got)
	}
}
