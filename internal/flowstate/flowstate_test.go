package flowstate

import "testing"

const hz = 1000

// TestScenario1ColdStart replays spec scenario 1: a single ack leaves
// both flags clear and both histories empty.
func TestScenario1ColdStart(t *testing.T) {
	s, err := New(10, 4, 1, 1000)
	if err != nil {
		t.Fatal(err)
	}

	s.AckSample(1000, 500, hz, 1, 3*hz)

	if s.Flags.ValidRHZ {
		t.Fatal("ValidRHZ set after the first sample, want clear")
	}
	if s.Flags.ValidOWD {
		t.Fatal("ValidOWD set after the first sample, want clear")
	}
	if got := s.CurrentDelay(); got != 0xffffffff {
		t.Fatalf("CurrentDelay = %d, want infinity sentinel", got)
	}
	if got := s.BaseDelay(); got != 0xffffffff {
		t.Fatalf("BaseDelay = %d, want infinity sentinel", got)
	}
}

// TestScenario2SecondAck replays spec scenario 2: the second ack makes
// the frequency estimate valid and produces an OWD of 500 in both
// histories.
func TestScenario2SecondAck(t *testing.T) {
	s, err := New(10, 4, 1, 1000)
	if err != nil {
		t.Fatal(err)
	}

	s.AckSample(1000, 500, hz, 1, 3*hz)
	s.AckSample(2000, 1500, hz, 2, 3*hz)

	if !s.Flags.ValidRHZ {
		t.Fatal("ValidRHZ clear after second sample, want set")
	}
	if !s.Flags.ValidOWD {
		t.Fatal("ValidOWD clear after second sample, want set")
	}
	if got := s.CurrentDelay(); got != 500 {
		t.Fatalf("CurrentDelay = %d, want 500", got)
	}
	if got := s.BaseDelay(); got != 500 {
		t.Fatalf("BaseDelay = %d, want 500", got)
	}
}

// TestScenario6IdleGapResetsCwnd replays spec scenario 6: a long
// application-idle gap forces cwnd back to 1 on the next ack,
// regardless of the delay signal.
func TestScenario6IdleGapResetsCwnd(t *testing.T) {
	s, err := New(10, 4, 20, 1000)
	if err != nil {
		t.Fatal(err)
	}

	srttTicks := uint32(100)
	s.AckSample(1000, 500, hz, 1, srttTicks)
	s.AckSample(2000, 1500, hz, 2, srttTicks)
	if s.Window.Cwnd != 20 {
		t.Fatalf("cwnd = %d before idle gap, want unchanged at 20", s.Window.Cwnd)
	}

	s.AckSample(3000, 2500, hz, 2+srttTicks+1, srttTicks)
	if s.Window.Cwnd != 1 {
		t.Fatalf("cwnd = %d after idle gap, want reset to 1", s.Window.Cwnd)
	}
}

func TestNewRejectsZeroLength(t *testing.T) {
	if _, err := New(0, 4, 1, 1000); err == nil {
		t.Fatal("New(0, ...) succeeded, want ErrAllocFailed")
	}
}
