package delay

import "github.com/runZeroInc/ledbat/internal/historyring"

// bucketSeconds is the fixed one-minute base-history bucket duration in
// seconds; in host ticks it is bucketSeconds * HZ.
const bucketSeconds = 60

// BaseTracker is the longer, time-bucketed history whose minimum across
// buckets is the base-delay estimate (spec.md §4.5).
type BaseTracker struct {
	history      *historyring.Ring
	lastRollover uint32
}

// NewBaseTracker allocates a tracker retaining up to b one-minute buckets
// (capacity b+1, per spec.md's data model).
func NewBaseTracker(b int) (*BaseTracker, error) {
	r, err := historyring.New(b + 1)
	if err != nil {
		return nil, err
	}
	return &BaseTracker{history: r}, nil
}

// SetLastRollover anchors the tracker's first bucket open time. The
// controller calls it on every sample with the current tick; only a call
// made while the anchor is still zero takes effect, so the anchor is the
// same first-sample tick the frequency estimator records.
func (b *BaseTracker) SetLastRollover(now uint32) {
	if b.lastRollover == 0 {
		b.lastRollover = now
	}
}

// Update folds a new OWD sample into the base history, per spec.md §4.5:
// the first sample opens a bucket; once a bucket has been open longer than
// one minute (60*hz host ticks) the next sample opens a new bucket,
// evicting the oldest if the ring is full; otherwise the sample only
// lowers the currently open bucket's minimum.
func (b *BaseTracker) Update(owd uint32, now uint32, hz uint32) {
	if b.history.Empty() {
		b.history.Push(owd)
		return
	}

	if now-b.lastRollover > bucketSeconds*hz {
		b.lastRollover = now
		b.history.Push(owd)
		return
	}

	if last, ok := b.history.Last(); ok && owd < last {
		b.history.ReplaceLast(owd)
	}
}

// BaseDelay is the tracker's min_or_infinity() across all resident buckets.
func (b *BaseTracker) BaseDelay() uint32 { return b.history.Min() }
