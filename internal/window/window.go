// Package window implements the LEDBAT congestion-window controller:
// a proportional response to the signed queuing-delay offset, driven
// through a fractional accumulator, plus the slow-start gate.
package window

// SlowStartMode selects how the controller treats the host's slow-start
// phase (spec.md §6 do_ss). A typed enum generalizes the original's
// untyped LEDBAT_NO_SS/LEDBAT_SS/LEDBAT_SS_TP constants.
type SlowStartMode int

const (
	NoSlowStart SlowStartMode = iota
	SlowStart
	SlowStartThreshold
)

// Params are the hot-path scalars the controller reads on every tick
// (spec.md §6: target, gain_num/gain_den, do_ss, ssthresh).
type Params struct {
	Target   uint32
	GainNum  uint32
	GainDen  uint32
	DoSS     SlowStartMode
	SSThresh uint32
}

// Host is the subset of host behavior the window controller needs beyond
// the plain cwnd/cwnd_cnt state: whether the flow is cwnd-limited, and a
// delegate for the host's own slow-start helper. It's a narrow slice of
// the full hostapi.Host interface, kept separate so this package has no
// dependency on the rest of the module.
type Host interface {
	IsCwndLimited() bool
	// SlowStart runs the host's slow-start helper for ackedBytes and
	// returns the number of acked bytes still unconsumed afterward.
	SlowStart(ackedBytes uint32) (residual uint32)
	DefaultSSThresh() uint32
	// SndSSThresh is the host's current slow-start threshold, used as
	// the slow-start gate's comparison value outside SlowStartThreshold
	// mode (spec.md §4.6). It is distinct from DefaultSSThresh, which is
	// the host's post-loss recomputed value.
	SndSSThresh() uint32
}

// State is the mutable window state the controller reads and updates:
// cwnd, its clamp, the fractional accumulator, and the sticky CanSS flag.
type State struct {
	Cwnd      uint32
	CwndClamp uint32
	CwndCnt   uint32
	CanSS     bool
}

// Update runs one cwnd-avoidance tick (spec.md §4.6). validOWD gates the
// whole update: if the controller has no valid delay signal yet, cwnd is
// left untouched. ackedBytes is the bytes acked since the last tick;
// current and base are the noise-filter and base-tracker estimates.
func Update(s *State, p Params, h Host, validOWD bool, ackedBytes uint32, current, base uint32) {
	if !validOWD {
		return
	}
	if !h.IsCwndLimited() {
		return
	}

	if s.Cwnd <= 1 {
		s.CanSS = true
	}

	ssthresh := p.SSThresh
	if p.DoSS != SlowStartThreshold {
		ssthresh = h.SndSSThresh()
	}

	if p.DoSS != NoSlowStart && s.Cwnd <= ssthresh && s.CanSS {
		residual := h.SlowStart(ackedBytes)
		if residual == 0 {
			return
		}
		ackedBytes = residual
	}
	s.CanSS = false

	queue := int64(current) - int64(base)
	offset := int64(p.Target) - queue
	if p.GainDen != 0 {
		offset = offset * int64(p.GainNum) / int64(p.GainDen)
	}
	if offset > int64(p.Target) {
		offset = int64(p.Target)
	}

	newCnt := int64(s.CwndCnt) + offset
	maxCwnd := int64(s.Cwnd) * int64(p.Target)

	if newCnt >= 0 {
		s.CwndCnt = uint32(newCnt)
		if int64(s.CwndCnt) >= maxCwnd {
			if s.Cwnd < s.CwndClamp {
				s.Cwnd++
			}
			s.CwndCnt = 0
		}
		return
	}

	if s.Cwnd > 1 {
		s.Cwnd--
		s.CwndCnt = (s.Cwnd - 1) * p.Target
		return
	}
	s.CwndCnt = 0
}
