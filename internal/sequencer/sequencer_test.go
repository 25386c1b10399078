package sequencer

import (
	"testing"

	"github.com/cbegin/midisynth-go/internal/synth"
)

func newTestEngine(t *testing.T) *synth.Engine {
	t.Helper()
	e, err := synth.New(48000, 256, synth.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestProcessDispatchesAcrossBlocks(t *testing.T) {
	e := newTestEngine(t)
	seq := New(e, []TimedEvent{
		{Frame: 1000, Data: []byte{0x90, 60, 100}},
	})
	out := make([]float32, 4096)
	seq.Process(out)
	// Before the note-on frame everything is silent.
	for i := 0; i < 1000; i++ {
		if out[i] != 0 {
			t.Fatalf("out[%d] = %f, want silence before the scheduled note", i, out[i])
		}
	}
	var nonzero bool
	for _, s := range out[1000:] {
		if s != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		t.Error("no audio after the scheduled note-on")
	}
	if e.ActiveVoiceCount() != 1 {
		t.Errorf("active voices = %d, want 1", e.ActiveVoiceCount())
	}
}

func TestEventsSortedAndStable(t *testing.T) {
	e := newTestEngine(t)
	// Out-of-order schedule: the sequencer sorts by frame. The note-off
	// lands after the master envelope's 10ms pre-delay, so there is a
	// release tail.
	seq := New(e, []TimedEvent{
		{Frame: 1000, Data: []byte{0x80, 60, 0}},
		{Frame: 0, Data: []byte{0x90, 60, 100}},
	})
	out := make([]float32, 1024)
	seq.Process(out)
	if seq.Frame() != 1024 {
		t.Errorf("frame = %d, want 1024", seq.Frame())
	}
	if seq.Done() {
		t.Error("done immediately; release tail should still be sounding")
	}
}

func TestDoneAfterReleaseTail(t *testing.T) {
	e := newTestEngine(t)
	seq := New(e, []TimedEvent{
		{Frame: 0, Data: []byte{0x90, 60, 100}},
		{Frame: 4800, Data: []byte{0x80, 60, 0}},
	})
	chunk := make([]float32, 1024)
	// 4s is far beyond the 1.5s master release.
	for i := 0; i < 48000*4/1024 && !seq.Done(); i++ {
		seq.Process(chunk)
	}
	if !seq.Done() {
		t.Error("sequencer never finished after release tail")
	}
}

func TestPartialChunkSmallerThanBlock(t *testing.T) {
	e := newTestEngine(t)
	seq := New(e, []TimedEvent{{Frame: 0, Data: []byte{0x90, 60, 100}}})
	out := make([]float32, 100) // smaller than the 256-frame engine block
	seq.Process(out)
	if seq.Frame() != 100 {
		t.Errorf("frame = %d, want 100", seq.Frame())
	}
}
