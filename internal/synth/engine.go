package synth

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/midisynth-go/internal/events"
	"github.com/cbegin/midisynth-go/internal/sample"
	"github.com/cbegin/midisynth-go/internal/voice"
)

const (
	numVoices = 128
	halfPi    = math.Pi / 2
)

// Event is one decoded MIDI event, offset in frames from the start of the
// current block. Data holds the raw status and data bytes.
type Event struct {
	Frame int
	Data  []byte
}

// Params configures engine construction.
type Params struct {
	// SamplePath, when non-empty, names a WAV file layered into every
	// voice's patch. The file is decoded once and shared.
	SamplePath string
	// MasterGain scales the mixed signal before the final soft-clip.
	MasterGain float64
}

func DefaultParams() Params {
	return Params{MasterGain: 1.0}
}

// Engine is the block processor: it owns the 128 note voices and the five
// controller timelines, interprets MIDI, and renders one block at a time.
// Process, SetSampleRate and SetBufferSize must not be called concurrently;
// the audio host guarantees that.
type Engine struct {
	sampleRate  int
	bufferSize  int
	globalFrame int
	masterGain  uint64

	voices [numVoices]*voice.Voice

	bendEvents       *events.Timeline
	modWheelEvents   *events.Timeline
	expressionEvents *events.Timeline
	aftertouchEvents *events.Timeline
	sustainEvents    *events.Timeline

	bend       []float64
	bendFreq   []float64
	modWheel   []float64
	expression []float64
	aftertouch []float64
	sustain    []float64
}

// New builds an engine with every voice pre-allocated. Sample loading
// happens here, never on the audio path.
func New(sampleRate, bufferSize int, params Params) (*Engine, error) {
	var smp *sample.Sample
	if params.SamplePath != "" {
		var err error
		smp, err = sample.Get(params.SamplePath)
		if err != nil {
			return nil, err
		}
	}
	gain := params.MasterGain
	if gain <= 0 {
		gain = 1.0
	}
	e := &Engine{
		sampleRate:       sampleRate,
		masterGain:       math.Float64bits(gain),
		bendEvents:       events.NewTimeline(0),
		modWheelEvents:   events.NewTimeline(0),
		expressionEvents: events.NewTimeline(1),
		aftertouchEvents: events.NewTimeline(0),
		sustainEvents:    events.NewTimeline(0),
	}
	for i := range e.voices {
		e.voices[i] = voice.New(i, smp, sampleRate, bufferSize)
	}
	e.SetBufferSize(bufferSize)
	return e, nil
}

// SetSampleRate propagates a host rate change to every voice.
func (e *Engine) SetSampleRate(rate int) {
	e.sampleRate = rate
	for _, v := range e.voices {
		v.SetSampleRate(rate)
	}
}

// SetBufferSize re-sizes the controller value vectors and every voice's
// scratch buffer. Called outside the audio callback.
func (e *Engine) SetBufferSize(size int) {
	e.bufferSize = size
	e.bend = make([]float64, size)
	e.bendFreq = make([]float64, size)
	e.modWheel = make([]float64, size)
	e.expression = make([]float64, size)
	e.aftertouch = make([]float64, size)
	e.sustain = make([]float64, size)
	for _, v := range e.voices {
		v.SetBufferSize(size)
	}
}

func (e *Engine) SampleRate() int { return e.sampleRate }
func (e *Engine) BufferSize() int { return e.bufferSize }

// SetMasterGain sets the pre-clip gain. Lock-free; callable while the audio
// thread is inside Process.
func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// ActiveVoiceCount returns the number of voices still sounding, release
// tails included.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for _, v := range e.voices {
		if v.Sounding() {
			n++
		}
	}
	return n
}

// Process renders one block: cycles the controller timelines, dispatches the
// block's MIDI events, materializes the per-sample controller trajectories,
// renders every sounding voice additively into out, and soft-clips. out must
// hold at least length frames; length must not exceed the configured buffer
// size. No allocation, no blocking.
func (e *Engine) Process(length int, midiEvents []Event, out []float32) {
	if length > e.bufferSize {
		length = e.bufferSize
	}
	e.bendEvents.Cycle(length)
	e.modWheelEvents.Cycle(length)
	e.expressionEvents.Cycle(length)
	e.aftertouchEvents.Cycle(length)
	e.sustainEvents.Cycle(length)

	for _, ev := range midiEvents {
		e.dispatch(ev)
	}

	bend := e.bend[:length]
	bendFreq := e.bendFreq[:length]
	modWheel := e.modWheel[:length]
	expression := e.expression[:length]
	aftertouch := e.aftertouch[:length]
	sustain := e.sustain[:length]

	e.bendEvents.Materialize(bend)
	e.modWheelEvents.Materialize(modWheel)
	e.expressionEvents.Materialize(expression)
	e.aftertouchEvents.Materialize(aftertouch)
	e.sustainEvents.Materialize(sustain)
	for i := range bend {
		bendFreq[i] = math.Exp2(bend[i])
	}

	for i := 0; i < length; i++ {
		out[i] = 0
	}
	for _, v := range e.voices {
		v.Update(bend, bendFreq, modWheel, expression, aftertouch, sustain)
		if v.Sounding() {
			v.Render(out, e.globalFrame, length)
		}
	}
	gain := e.masterGainValue()
	for i := 0; i < length; i++ {
		out[i] = float32(math.Tanh(gain*float64(out[i])) / halfPi)
	}
	e.globalFrame += length
}

// dispatch interprets one MIDI event. Malformed events are ignored; unknown
// statuses and controllers fall through silently.
func (e *Engine) dispatch(ev Event) {
	if len(ev.Data) == 0 {
		return
	}
	status := ev.Data[0] >> 4
	switch status {
	case 9: // note on
		if len(ev.Data) < 3 {
			return
		}
		note, velocity := ev.Data[1]&0x7F, ev.Data[2]&0x7F
		if velocity == 0 {
			e.voices[note].Release()
			return
		}
		e.voices[note].Trigger(float64(velocity)/127, e.globalFrame+ev.Frame)
	case 8: // note off
		if len(ev.Data) < 2 {
			return
		}
		e.voices[ev.Data[1]&0x7F].Release()
	case 11: // control change
		if len(ev.Data) < 3 {
			return
		}
		value := float64(ev.Data[2]&0x7F) / 127
		switch ev.Data[1] & 0x7F {
		case 1:
			e.modWheelEvents.Append(ev.Frame, value)
		case 11:
			e.expressionEvents.Append(ev.Frame, value)
		case 64:
			// Threshold semantic: the pedal is either down or up.
			if ev.Data[2]&0x7F >= 64 {
				e.sustainEvents.Append(ev.Frame, 1)
			} else {
				e.sustainEvents.Append(ev.Frame, 0)
			}
		}
	case 13: // channel aftertouch
		if len(ev.Data) < 2 {
			return
		}
		e.aftertouchEvents.Append(ev.Frame, float64(ev.Data[1]&0x7F)/127)
	case 14: // pitch bend
		if len(ev.Data) < 3 {
			return
		}
		raw := int(ev.Data[2]&0x7F)<<7 | int(ev.Data[1]&0x7F)
		bend := float64(raw)/8192 - 1
		if bend < -1 {
			bend = -1
		} else if bend > 1 {
			bend = 1
		}
		e.bendEvents.Append(ev.Frame, bend)
	}
}
