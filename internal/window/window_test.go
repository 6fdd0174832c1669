package window

import (
	"testing"

	"pgregory.net/rapid"
)

type fakeHost struct {
	cwndLimited bool
	ssResidual  uint32
	ssCalls     int
	sndSSThresh uint32
}

func (h *fakeHost) IsCwndLimited() bool { return h.cwndLimited }
func (h *fakeHost) SlowStart(acked uint32) uint32 {
	h.ssCalls++
	return h.ssResidual
}
func (h *fakeHost) DefaultSSThresh() uint32 { return 0xffff }

func (h *fakeHost) SndSSThresh() uint32 {
	if h.sndSSThresh != 0 {
		return h.sndSSThresh
	}
	return 0xffff
}

// TestScenario3SteadyBelowTarget replays spec scenario 3: OWD steady at
// base, queue=0, offset=target; cwnd grows by one every cwnd ticks.
func TestScenario3SteadyBelowTarget(t *testing.T) {
	h := &fakeHost{cwndLimited: true}
	p := Params{Target: 100, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
	s := &State{Cwnd: 10, CwndClamp: 1000}

	for i := 0; i < 9; i++ {
		Update(s, p, h, true, 0, 500, 500)
	}
	if s.Cwnd != 10 {
		t.Fatalf("after 9 ticks, cwnd = %d, want 10 (not yet overflowed)", s.Cwnd)
	}

	Update(s, p, h, true, 0, 500, 500)
	if s.Cwnd != 11 {
		t.Fatalf("after 10th tick, cwnd = %d, want 11", s.Cwnd)
	}
	if s.CwndCnt != 0 {
		t.Fatalf("CwndCnt after overflow = %d, want 0", s.CwndCnt)
	}
}

// TestScenario4QueueAboveTarget replays spec scenario 4: a single tick
// with queue=200 > target decrements cwnd and snaps the accumulator near
// the top of its new range.
func TestScenario4QueueAboveTarget(t *testing.T) {
	h := &fakeHost{cwndLimited: true}
	p := Params{Target: 100, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
	s := &State{Cwnd: 10, CwndClamp: 1000}

	Update(s, p, h, true, 0, 700, 500)

	if s.Cwnd != 9 {
		t.Fatalf("cwnd = %d, want 9", s.Cwnd)
	}
	if s.CwndCnt != 800 {
		t.Fatalf("CwndCnt = %d, want 800", s.CwndCnt)
	}
}

// TestC1GrowsOnceEveryCwndTicksAtUnitOffset is the C1 property: with
// queue pinned at 0 (offset == target, its clamped maximum), the
// accumulator threshold cwnd*target is crossed after exactly `cwnd`
// ticks, so cwnd grows by exactly one each time and the interval
// between growths lengthens as cwnd itself grows.
func TestC1GrowsOnceEveryCwndTicksAtUnitOffset(t *testing.T) {
	h := &fakeHost{cwndLimited: true}
	p := Params{Target: 50, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
	s := &State{Cwnd: 4, CwndClamp: 1000}

	for growth := 0; growth < 3; growth++ {
		before := s.Cwnd
		for i := uint32(1); i < before; i++ {
			Update(s, p, h, true, 0, 300, 300)
			if s.Cwnd != before {
				t.Fatalf("growth %d: cwnd grew early, after %d/%d ticks", growth, i, before)
			}
		}
		Update(s, p, h, true, 0, 300, 300)
		if s.Cwnd != before+1 {
			t.Fatalf("growth %d: cwnd = %d after %d ticks, want %d", growth, s.Cwnd, before, before+1)
		}
		if s.CwndCnt != 0 {
			t.Fatalf("growth %d: CwndCnt = %d, want 0 right after overflow", growth, s.CwndCnt)
		}
	}
}

// TestC2DecreasesToOneAndSticks is the C2 property: a steady overshoot of
// 2*target drives cwnd monotonically down to 1, where it then sticks.
func TestC2DecreasesToOneAndSticks(t *testing.T) {
	h := &fakeHost{cwndLimited: true}
	target := uint32(100)
	p := Params{Target: target, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
	s := &State{Cwnd: 6, CwndClamp: 1000}

	prev := s.Cwnd
	for i := 0; i < 20; i++ {
		Update(s, p, h, true, 0, 3*target, target)
		if s.Cwnd > prev {
			t.Fatalf("tick %d: cwnd grew from %d to %d under steady overshoot", i, prev, s.Cwnd)
		}
		prev = s.Cwnd
	}
	if s.Cwnd != 1 {
		t.Fatalf("final cwnd = %d, want 1", s.Cwnd)
	}

	Update(s, p, h, true, 0, 3*target, target)
	if s.Cwnd != 1 {
		t.Fatalf("cwnd at floor moved to %d, want to stay at 1", s.Cwnd)
	}
	if s.CwndCnt != 0 {
		t.Fatalf("CwndCnt at floor = %d, want 0", s.CwndCnt)
	}
}

// TestC3AccumulatorNeverOvershoots is the C3 property: cwnd_cnt stays
// below cwnd*target after every update, across varied offsets.
func TestC3AccumulatorNeverOvershoots(t *testing.T) {
	h := &fakeHost{cwndLimited: true}
	target := uint32(100)
	p := Params{Target: target, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
	s := &State{Cwnd: 20, CwndClamp: 1000}

	delays := []uint32{500, 500, 700, 300, 500, 900, 500, 500, 500, 400}
	base := uint32(500)
	for _, d := range delays {
		Update(s, p, h, true, 0, d, base)
		if limit := s.Cwnd * p.Target; s.CwndCnt >= limit {
			t.Fatalf("CwndCnt = %d, want < %d (cwnd=%d)", s.CwndCnt, limit, s.Cwnd)
		}
	}
}

// TestRapidC3AccumulatorNeverOvershoots is the property-test form of C3:
// across arbitrary sequences of (current, base) delay pairs and a
// randomized gain, cwnd_cnt never reaches cwnd*target.
func TestRapidC3AccumulatorNeverOvershoots(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := &fakeHost{cwndLimited: true}
		target := rapid.Uint32Range(1, 500).Draw(t, "target")
		gainNum := rapid.Uint32Range(1, 4).Draw(t, "gain_num")
		p := Params{Target: target, GainNum: gainNum, GainDen: 1, DoSS: NoSlowStart}
		s := &State{Cwnd: rapid.Uint32Range(1, 50).Draw(t, "cwnd"), CwndClamp: 1000}

		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			current := rapid.Uint32Range(0, 2000).Draw(t, "current")
			base := rapid.Uint32Range(0, 2000).Draw(t, "base")
			Update(s, p, h, true, 0, current, base)
			if limit := s.Cwnd * p.Target; s.CwndCnt >= limit {
				t.Fatalf("step %d: CwndCnt = %d, want < %d (cwnd=%d)", i, s.CwndCnt, limit, s.Cwnd)
			}
		}
	})
}

// TestRapidC2NeverDropsBelowOne is the property-test form of C2: no
// sequence of ticks, however adversarial the delay samples, drives cwnd
// below its floor of 1.
func TestRapidC2NeverDropsBelowOne(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := &fakeHost{cwndLimited: true}
		target := rapid.Uint32Range(1, 500).Draw(t, "target")
		p := Params{Target: target, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
		s := &State{Cwnd: rapid.Uint32Range(1, 50).Draw(t, "cwnd"), CwndClamp: 1000}

		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			current := rapid.Uint32Range(0, 5000).Draw(t, "current")
			base := rapid.Uint32Range(0, 5000).Draw(t, "base")
			Update(s, p, h, true, 0, current, base)
			if s.Cwnd < 1 {
				t.Fatalf("step %d: cwnd = %d, want >= 1", i, s.Cwnd)
			}
		}
	})
}

func TestUpdateIgnoredWithoutValidOWD(t *testing.T) {
	h := &fakeHost{cwndLimited: true}
	p := Params{Target: 100, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
	s := &State{Cwnd: 10, CwndClamp: 1000, CwndCnt: 42}

	Update(s, p, h, false, 0, 999, 1)
	if s.Cwnd != 10 || s.CwndCnt != 42 {
		t.Fatalf("state changed despite invalid OWD: %+v", s)
	}
}

func TestUpdateIgnoredWhenNotCwndLimited(t *testing.T) {
	h := &fakeHost{cwndLimited: false}
	p := Params{Target: 100, GainNum: 1, GainDen: 1, DoSS: NoSlowStart}
	s := &State{Cwnd: 10, CwndClamp: 1000}

	Update(s, p, h, true, 0, 500, 500)
	if s.Cwnd != 10 {
		t.Fatalf("cwnd changed despite application-limited flow: %d", s.Cwnd)
	}
}

// TestSlowStartFallsThroughOnResidual exercises the open-question
// resolution: the slow-start helper's residual acked bytes, when
// nonzero, fall through into the same tick's congestion-avoidance
// update rather than deferring it to the next tick.
func TestSlowStartFallsThroughOnResidual(t *testing.T) {
	h := &fakeHost{cwndLimited: true, ssResidual: 5}
	p := Params{Target: 100, GainNum: 1, GainDen: 1, DoSS: SlowStart, SSThresh: 1000}
	s := &State{Cwnd: 1, CwndClamp: 1000}

	Update(s, p, h, true, 10, 500, 500)

	if h.ssCalls != 1 {
		t.Fatalf("slow-start helper calls = %d, want 1", h.ssCalls)
	}
	if s.CwndCnt == 0 && s.Cwnd == 1 {
		t.Fatalf("expected congestion-avoidance to run on the residual, state unchanged: %+v", s)
	}
}

// TestSlowStartGateUsesHostCurrentSSThreshNotDefault pins down the fix for
// the DefaultSSThresh/SndSSThresh mix-up: outside SlowStartThreshold mode,
// the gate must compare cwnd against the host's current ssthresh, not its
// post-loss recomputed default. A host whose current ssthresh sits below
// cwnd must suppress slow-start even though DefaultSSThresh is huge.
func TestSlowStartGateUsesHostCurrentSSThreshNotDefault(t *testing.T) {
	h := &fakeHost{cwndLimited: true, sndSSThresh: 5}
	p := Params{Target: 100, GainNum: 1, GainDen: 1, DoSS: SlowStart, SSThresh: 1000}
	s := &State{Cwnd: 10, CwndClamp: 1000, CanSS: true}

	Update(s, p, h, true, 50, 500, 500)

	if h.ssCalls != 0 {
		t.Fatalf("slow-start helper calls = %d, want 0 (cwnd=10 > SndSSThresh=5)", h.ssCalls)
	}
}

func TestSlowStartReturnsEarlyWhenFullyConsumed(t *testing.T) {
	h := &fakeHost{cwndLimited: true, ssResidual: 0}
	p := Params{Target: 100, GainNum: 1, GainDen: 1, DoSS: SlowStart, SSThresh: 1000}
	s := &State{Cwnd: 1, CwndClamp: 1000, CwndCnt: 77}

	Update(s, p, h, true, 10, 700, 500)

	if h.ssCalls != 1 {
		t.Fatalf("slow-start helper calls = %d, want 1", h.ssCalls)
	}
	if s.CwndCnt != 77 {
		t.Fatalf("CwndCnt = %d, want unchanged at 77 (congestion-avoidance must not have run)", s.CwndCnt)
	}
}
