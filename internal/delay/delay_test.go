package delay

import "testing"

const hz = 1000

// TestBucketRollover is spec scenario 5.
func TestBucketRollover(t *testing.T) {
	bt, err := NewBaseTracker(10)
	if err != nil {
		t.Fatal(err)
	}

	bt.Update(400, 0, hz) // t=0: first sample, opens a bucket
	bt.Update(300, 30*hz, hz) // t=30s: same bucket, replaces last slot
	if got, want := bt.BaseDelay(), uint32(300); got != want {
		t.Fatalf("BaseDelay after in-bucket replace = %d, want %d", got, want)
	}

	bt.Update(500, 61*hz, hz) // t=61s: past the minute, new bucket
	if got, want := bt.BaseDelay(), uint32(300); got != want {
		t.Fatalf("BaseDelay after rollover = %d, want %d (min across {300,500})", got, want)
	}
}

// TestR1RolloverExactlyAtBoundary is the R1 property: a new bucket opens
// exactly when now - last_rollover > 60*HZ, not at or before.
func TestR1RolloverExactlyAtBoundary(t *testing.T) {
	bt, err := NewBaseTracker(10)
	if err != nil {
		t.Fatal(err)
	}
	bt.Update(400, 0, hz)

	bt.Update(350, 60*hz, hz) // exactly at the boundary: no rollover yet
	if got, want := bt.BaseDelay(), uint32(350); got != want {
		t.Fatalf("at boundary: BaseDelay = %d, want %d (same bucket)", got, want)
	}

	bt.Update(900, 60*hz+1, hz) // one tick past: rollover
	if got, want := bt.BaseDelay(), uint32(350); got != want {
		t.Fatalf("past boundary: BaseDelay = %d, want %d (min across buckets)", got, want)
	}
}

func TestNoiseFilterCurrentDelayIsMinimum(t *testing.T) {
	nf, err := NewNoiseFilter(4)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []uint32{500, 500, 500, 500} {
		nf.Push(s)
	}
	if got, want := nf.CurrentDelay(), uint32(500); got != want {
		t.Fatalf("CurrentDelay = %d, want %d", got, want)
	}
	nf.Push(100)
	if got, want := nf.CurrentDelay(), uint32(100); got != want {
		t.Fatalf("CurrentDelay after lower sample = %d, want %d", got, want)
	}
}

// TestComputeScenario2 replays the worked cold-start/second-ack scenario
// through the OWD calculator end to end.
func TestComputeScenario2(t *testing.T) {
	var c Calculator
	if owd, valid := c.Compute(1000, 500, hz, 1); valid {
		t.Fatalf("first sample should not be valid yet, got owd=%d", owd)
	}
	owd, valid := c.Compute(2000, 1500, hz, 2)
	if !valid {
		t.Fatal("second sample should be valid")
	}
	if owd != 500 {
		t.Fatalf("owd = %d, want 500", owd)
	}
}
