// Package delay computes one-way-delay samples from timestamp pairs and
// tracks the current (noise-filtered) and base (long-horizon) delay
// estimates the window controller needs.
package delay

import "github.com/runZeroInc/ledbat/internal/freqclock"

// Resolution is LP_RESOL from the kernel source: OWD samples are expressed
// in units of Resolution/HZ ticks, millisecond-order when HZ is close to
// 1000.
const Resolution = 1000

// Calculator turns a (peer timestamp, echoed local timestamp) pair into a
// single OWD sample, normalizing the peer's clock via a freqclock.Estimator.
type Calculator struct {
	Freq freqclock.Estimator
}

// Compute implements spec.md §4.3: refresh the remote-frequency estimate,
// then, if it's valid, normalize both timestamps into the common
// resolution and take the absolute difference. hz is the local host tick
// rate, now the current host tick (forwarded to the frequency estimator
// for its first-call anchor).
func (c *Calculator) Compute(rtsval, rtsecr, hz, now uint32) (owd uint32, validOWD bool) {
	c.Freq.Update(rtsval, rtsecr, hz, now)

	if !c.Freq.ValidRHZ() {
		return 0, false
	}

	remoteHz := c.Freq.RemoteHz()
	scaled := int64(rtsval)*(Resolution/int64(remoteHz)) - int64(rtsecr)*(Resolution/int64(hz))
	if scaled < 0 {
		scaled = -scaled
	}

	return uint32(scaled), scaled > 0
}

// ValidRHZ reports whether the last Compute call had a valid frequency
// estimate (the caller needs this to decide whether to push the sample
// into the histories at all, per spec.md §4.7 step 1).
func (c *Calculator) ValidRHZ() bool { return c.Freq.ValidRHZ() }
