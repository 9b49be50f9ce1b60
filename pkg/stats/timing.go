package stats

import (
	"fmt"
	"time"
)

// Timing splits a pipeline's wall time into the part that ran on one
// goroutine and the part that ran inside parallel loops. The sequential
// engine only ever adds to Serial.
type Timing struct {
	Serial   time.Duration
	Parallel time.Duration
}

// Stopwatch times one stretch of work into bucket. Call the returned func
// when it ends.
//
//	done := stats.Stopwatch(&t.Serial)
//	...
//	done()
func Stopwatch(bucket *time.Duration) func() {
	start := time.Now()
	return func() {
		*bucket += time.Since(start)
	}
}

// Add accumulates another timing into t.
func (t *Timing) Add(o Timing) {
	t.Serial += o.Serial
	t.Parallel += o.Parallel
}

// Total is Serial + Parallel.
func (t Timing) Total() time.Duration {
	return t.Serial + t.Parallel
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func (t Timing) String() string {
	return fmt.Sprintf("serial %.3fms, parallel %.3fms", Millis(t.Serial), Millis(t.Parallel))
}
