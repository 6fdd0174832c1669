// Package flowstate is the per-flow state container (spec.md §2.7,
// §3): it owns the two bounded histories, the frequency estimator's
// prior state, the window-controller accumulator, and the flags that
// record where the flow sits in the FRESH -> HAS_RHZ -> HAS_OWD
// progression (spec.md §4.8).
package flowstate

import (
	"github.com/runZeroInc/ledbat/internal/delay"
	"github.com/runZeroInc/ledbat/internal/window"
)

// Flags is the {VALID_RHZ, VALID_OWD} half of spec.md §3's bitset, kept
// as discrete booleans per spec.md §9's note that a port may prefer
// this over a packed bitset. CAN_SS lives on window.State instead,
// since it's owned and mutated exclusively by the window controller.
type Flags struct {
	ValidRHZ bool
	ValidOWD bool
}

// State is everything the controller needs for one connection, from
// init to release. It has no host reference of its own: AckSample takes
// the host's values as plain arguments, and CongAvoid takes a
// window.Host.
type State struct {
	NoiseFilter *delay.NoiseFilter
	BaseTracker *delay.BaseTracker
	OWD         delay.Calculator

	Window window.State
	Flags  Flags
	LastAck uint32
}

// New allocates a flow's two histories at the given lengths
// (base_histo_len, noise_filter_len from spec.md §6), returning
// ErrAllocFailed if either backing ring cannot be built. On error it
// returns a nil State, so there is nothing half-built for the caller to
// release.
func New(baseHistoLen, noiseFilterLen uint32, cwnd, cwndClamp uint32) (*State, error) {
	bt, err := delay.NewBaseTracker(int(baseHistoLen))
	if err != nil {
		return nil, err
	}
	nf, err := delay.NewNoiseFilter(int(noiseFilterLen))
	if err != nil {
		return nil, err
	}
	return &State{
		NoiseFilter: nf,
		BaseTracker: bt,
		Window: window.State{
			Cwnd:      cwnd,
			CwndClamp: cwndClamp,
		},
	}, nil
}

// CurrentDelay is the exported current-delay estimate (spec.md §4.4).
func (s *State) CurrentDelay() uint32 { return s.NoiseFilter.CurrentDelay() }

// BaseDelay is the exported base-delay estimate (spec.md §4.5).
func (s *State) BaseDelay() uint32 { return s.BaseTracker.BaseDelay() }

// CanSS reports the sticky CAN_SS flag (spec.md §3, owned by the
// window controller).
func (s *State) CanSS() bool { return s.Window.CanSS }

// AckSample runs the per-sample acknowledgement path (spec.md §4.7): it
// computes one OWD sample, folds it into both histories on success, and
// (only once VALID_RHZ and VALID_OWD are both set) runs the idle-ack
// watchdog. Step 1's validity gate is checked first and returns without
// touching the watchdog at all, exactly as spec.md §4.7 orders it: a
// degenerate-timestamp sample during an idle gap must leave cwnd alone,
// not reset it. hz and now anchor the frequency estimator and base
// tracker's first-call reference; srttTicks is the host's smoothed RTT
// already converted to host ticks (spec.md §9's resolution of the
// srtt_us>>3 unit-mismatch open question).
func (s *State) AckSample(rtsval, rtsecr, hz, now, srttTicks uint32) {
	s.BaseTracker.SetLastRollover(now)

	owd, validOWD := s.OWD.Compute(rtsval, rtsecr, hz, now)
	s.Flags.ValidRHZ = s.OWD.ValidRHZ()
	s.Flags.ValidOWD = validOWD

	if !s.Flags.ValidRHZ || !s.Flags.ValidOWD {
		return
	}

	s.NoiseFilter.Push(owd)
	s.BaseTracker.Update(owd, now, hz)

	s.idleWatchdog(now, srttTicks)
}

// idleWatchdog implements spec.md §4.7 step 3: a long application-idle
// gap forces cwnd back to 1 regardless of the delay signal, since a
// stale delay estimate after a long silence is not trustworthy.
func (s *State) idleWatchdog(now, srttTicks uint32) {
	if s.LastAck == 0 {
		s.LastAck = now
		return
	}
	if now-s.LastAck > srttTicks {
		s.Window.Cwnd = 1
		s.LastAck = now
	}
}

// CongAvoid runs the window-update controller for one cwnd-avoidance
// tick (spec.md §4.6), delegating the slow-start gate and the
// cwnd-limited check to h.
func (s *State) CongAvoid(p window.Params, h window.Host, ackedBytes uint32) {
	window.Update(&s.Window, p, h, s.Flags.ValidOWD, ackedBytes, s.CurrentDelay(), s.BaseDelay())
}
