// Package freqclock estimates the peer's timestamp tick rate from paired
// (peer-timestamp, echoed-local-timestamp) observations, the way the
// kernel's tcp_ledbat_remote_hz_estimator does: a 63/64 + 1/64 exponential
// average carried in a 6-bit fixed-point domain.
package freqclock

// Estimator holds the reference timestamps and smoothed rate estimate
// needed to infer a peer's clock frequency across successive samples.
type Estimator struct {
	lastRollover  uint32
	remoteHz      uint32
	remoteRefTime uint32
	localRefTime  uint32
	validRHZ      bool
}

// RemoteHz returns the current smoothed estimate.
func (e *Estimator) RemoteHz() uint32 { return e.remoteHz }

// ValidRHZ reports whether the most recent Update produced a usable
// (non-zero) rate.
func (e *Estimator) ValidRHZ() bool { return e.validRHZ }

// Update folds one more (rtsval, rtsecr) observation into the estimate.
// hz is the local host tick rate, now the current host tick (used only to
// anchor lastRollover on the very first call). It mirrors
// tcp_ledbat_remote_hz_estimator: skipped updates still refresh the stored
// references.
func (e *Estimator) Update(rtsval, rtsecr uint32, hz uint32, now uint32) uint32 {
	rhz := int64(e.remoteHz) << 6
	var m int64

	if e.lastRollover == 0 {
		e.lastRollover = now
	}

	if e.remoteRefTime != 0 && e.localRefTime != 0 &&
		rtsval != e.remoteRefTime && rtsecr != e.localRefTime {

		denom := int64(int32(rtsecr - e.localRefTime))
		if denom != 0 {
			m = int64(hz) * int64(int32(rtsval-e.remoteRefTime)) / denom
			if m < 0 {
				m = -m
			}

			if rhz > 0 {
				m -= rhz >> 6
				rhz += m
			} else {
				rhz = m << 6
			}
		}
	}

	e.validRHZ = (rhz >> 6) > 0
	e.remoteRefTime = rtsval
	e.localRefTime = rtsecr
	e.remoteHz = uint32(rhz >> 6)

	return e.remoteHz
}

// LastRollover returns the host tick at which the estimator first saw a
// sample. The base-delay tracker anchors its first minute bucket on the
// same tick (spec.md §4.5 step 1) but keeps its own copy.
func (e *Estimator) LastRollover() uint32 { return e.lastRollover }
