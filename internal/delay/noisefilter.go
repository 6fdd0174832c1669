package delay

import "github.com/runZeroInc/ledbat/internal/historyring"

// NoiseFilter is the short history of recent OWD samples whose minimum is
// the current-delay estimate (spec.md §4.4).
type NoiseFilter struct {
	history *historyring.Ring
}

// NewNoiseFilter allocates a filter retaining up to n most-recent samples
// (capacity n+1, per spec.md's data model).
func NewNoiseFilter(n int) (*NoiseFilter, error) {
	r, err := historyring.New(n + 1)
	if err != nil {
		return nil, err
	}
	return &NoiseFilter{history: r}, nil
}

// Push records a new OWD sample.
func (f *NoiseFilter) Push(owd uint32) { f.history.Push(owd) }

// CurrentDelay is the filter's min_or_infinity().
func (f *NoiseFilter) CurrentDelay() uint32 { return f.history.Min() }
