package sequencer

import (
	"sort"

	"github.com/cbegin/midisynth-go/internal/synth"
)

// TimedEvent is a raw MIDI event scheduled at an absolute frame from the
// start of rendering.
type TimedEvent struct {
	Frame int
	Data  []byte
}

// Sequencer feeds a pre-built schedule of MIDI events into an engine one
// block at a time. It exists for offline rendering; live hosts deliver
// events per block themselves.
type Sequencer struct {
	engine *synth.Engine
	events []TimedEvent
	next   int
	frame  int
	block  []synth.Event
}

// New sorts the schedule by frame (stable, so same-frame events keep their
// arrival order) and prepares a sequencer over it.
func New(engine *synth.Engine, schedule []TimedEvent) *Sequencer {
	events := make([]TimedEvent, len(schedule))
	copy(events, schedule)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Frame < events[j].Frame
	})
	return &Sequencer{
		engine: engine,
		events: events,
		block:  make([]synth.Event, 0, 64),
	}
}

// Process renders len(dst) mono frames, stepping the engine in chunks of its
// configured buffer size and dispatching scheduled events into the chunk
// they fall in. Events already in the past fire at the chunk start.
func (s *Sequencer) Process(dst []float32) {
	blockSize := s.engine.BufferSize()
	for len(dst) > 0 {
		n := blockSize
		if n > len(dst) {
			n = len(dst)
		}
		s.block = s.block[:0]
		for s.next < len(s.events) && s.events[s.next].Frame < s.frame+n {
			ev := s.events[s.next]
			offset := ev.Frame - s.frame
			if offset < 0 {
				offset = 0
			}
			s.block = append(s.block, synth.Event{Frame: offset, Data: ev.Data})
			s.next++
		}
		s.engine.Process(n, s.block, dst[:n])
		s.frame += n
		dst = dst[n:]
	}
}

// Done reports whether the schedule is exhausted and every voice has gone
// silent, release tails included.
func (s *Sequencer) Done() bool {
	return s.next >= len(s.events) && s.engine.ActiveVoiceCount() == 0
}

// Frame returns the absolute frame position of the next block.
func (s *Sequencer) Frame() int {
	return s.frame
}
