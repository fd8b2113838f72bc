package builder

import (
	"math"
	"sync/atomic"

	"github.com/suffix-labs/pivx-shield/pkg/prover"
)

// ProgressSink receives proving progress. Report is called from the
// builder's forwarding goroutine, never concurrently with itself.
type ProgressSink interface {
	Report(p prover.Progress)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(p prover.Progress)

// Report implements ProgressSink.
func (f SinkFunc) Report(p prover.Progress) { f(p) }

// Tracker stores the latest progress as a fraction in [0, 1] for readers on
// other goroutines.
type Tracker struct {
	bits atomic.Uint64
}

// Report implements ProgressSink.
func (t *Tracker) Report(p prover.Progress) {
	t.bits.Store(math.Float64bits(p.Fraction()))
}

// Fraction returns the last reported fraction.
func (t *Tracker) Fraction() float64 {
	return math.Float64frombits(t.bits.Load())
}

// Reset sets the fraction back to 0.
func (t *Tracker) Reset() {
	t.bits.Store(0)
}
