package events

import (
	"math"
	"testing"
)

func TestMaterializeSinglePointIsConstant(t *testing.T) {
	tl := NewTimeline(0.75)
	out := make([]float64, 64)
	tl.Materialize(out)
	for i, v := range out {
		if v != 0.75 {
			t.Fatalf("out[%d] = %f, want 0.75", i, v)
		}
	}
}

func TestMaterializeLinearRamp(t *testing.T) {
	tl := NewTimeline(0)
	tl.Append(255, 1.0)
	out := make([]float64, 256)
	tl.Materialize(out)
	for i := range out {
		want := float64(i) / 255
		if math.Abs(out[i]-want) > 1e-9 {
			t.Fatalf("out[%d] = %f, want %f", i, out[i], want)
		}
	}
}

func TestMaterializeHoldsPastFinalPoint(t *testing.T) {
	tl := NewTimeline(0)
	tl.Append(128, 1.0)
	out := make([]float64, 256)
	tl.Materialize(out)
	for i := 0; i <= 128; i++ {
		want := float64(i) / 128
		if math.Abs(out[i]-want) > 1e-9 {
			t.Fatalf("out[%d] = %f, want %f", i, out[i], want)
		}
	}
	for i := 129; i < 256; i++ {
		if out[i] != 1.0 {
			t.Fatalf("out[%d] = %f, want 1.0 held", i, out[i])
		}
	}
}

func TestMaterializeInterpolatesFromCarryOver(t *testing.T) {
	tl := NewTimeline(0)
	tl.Append(64, 1.0)
	tl.Cycle(128) // carry-over anchor (-64, 1.0)
	tl.Append(64, 0.0)
	out := make([]float64, 64)
	tl.Materialize(out)
	// anchor (-64, 1.0) to (64, 0.0): out[0] = 1 - 64/128 = 0.5
	if math.Abs(out[0]-0.5) > 1e-9 {
		t.Fatalf("out[0] = %f, want 0.5", out[0])
	}
	if math.Abs(out[32]-0.25) > 1e-9 {
		t.Fatalf("out[32] = %f, want 0.25", out[32])
	}
}

func TestCycleKeepsOnlyShiftedLastPoint(t *testing.T) {
	tl := NewTimeline(0)
	tl.Append(10, 0.2)
	tl.Append(40, 0.9)
	tl.Cycle(64)
	if tl.Len() != 1 {
		t.Fatalf("len = %d, want 1", tl.Len())
	}
	last := tl.Last()
	if last.Frame != 40-64 || last.Value != 0.9 {
		t.Fatalf("last = %+v, want frame -24 value 0.9", last)
	}
}

func TestTiedFramesResolveLastWriteWins(t *testing.T) {
	tl := NewTimeline(0)
	tl.Append(8, 0.3)
	tl.Append(8, 0.8)
	out := make([]float64, 16)
	tl.Materialize(out)
	if math.Abs(out[8]-0.8) > 1e-9 {
		t.Fatalf("out[8] = %f, want 0.8 (last write at tied frame)", out[8])
	}
	for i := 9; i < 16; i++ {
		if out[i] != 0.8 {
			t.Fatalf("out[%d] = %f, want 0.8", i, out[i])
		}
	}
	// Approach interpolates toward the first value written at the tie.
	if math.Abs(out[4]-0.15) > 1e-9 {
		t.Fatalf("out[4] = %f, want 0.15", out[4])
	}
}
