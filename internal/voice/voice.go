package voice

import (
	"math"

	"github.com/cbegin/midisynth-go/internal/envelopes"
	"github.com/cbegin/midisynth-go/internal/filters"
	"github.com/cbegin/midisynth-go/internal/oscillators"
	"github.com/cbegin/midisynth-go/internal/sample"
)

// OscEnvMix is one additive layer: an oscillator, the envelope that shapes
// it, and its mix gain into the voice.
type OscEnvMix struct {
	Osc oscillators.Oscillator
	Env envelopes.Envelope
	Mix float64
}

// Voice holds the synthesis state for one MIDI note number: a master
// envelope, the additive oscillator layers, and a filter chain. It renders
// into its own scratch buffer and accumulates into the block output.
type Voice struct {
	pitch        float64
	velocity     float64
	triggerFrame int
	sampleRate   int
	bufferSize   int

	bend       []float64
	bendFreq   []float64
	modWheel   []float64
	expression []float64
	aftertouch []float64
	sustain    []float64

	master  envelopes.Envelope
	mixes   []OscEnvMix
	filters []filters.Filter
	scratch []float64
}

// Freq converts a MIDI note number to Hz, equal temperament around A4=440.
func Freq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// New builds the voice for a MIDI note with the built-in patch: an optional
// sample layer, a stack of detuned waveform layers each with its own LADSR,
// a resonant low-pass, and a feedback delay. smp may be nil.
func New(note int, smp *sample.Sample, sampleRate, bufferSize int) *Voice {
	v := &Voice{
		pitch:      Freq(note),
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		scratch:    make([]float64, bufferSize),
	}
	v.master = envelopes.NewLADSR(0.06, 0.25, 0.9, 1.5, 0.01)
	if smp != nil {
		v.mixes = append(v.mixes, OscEnvMix{oscillators.NewAudio(smp), envelopes.NewLADSR(0.1, 0.5, 0.9, 3.0, 0), 0.8})
	}
	v.mixes = append(v.mixes,
		OscEnvMix{oscillators.NewSine(-2.0), envelopes.NewLADSR(0.06, 0.15, 0.8, 1.0, 0.015), 0.2},     // sub octave
		OscEnvMix{oscillators.NewTriangle(-1.0), envelopes.NewLADSR(0.06, 0.2, 0.65, 0.9, 0.015), 0.1}, // sub fifth
		OscEnvMix{oscillators.NewSine(0.0), envelopes.NewLADSR(0.05, 0.25, 0.5, 0.8, 0.02), 0.7},       // main
		OscEnvMix{oscillators.NewSine(7.0 / 12.0), envelopes.NewLADSR(0.04, 0.2, 0.7, 0.7, 0.02), 0.3}, // fifth
		OscEnvMix{oscillators.NewSine(1.0), envelopes.NewLADSR(0.03, 0.15, 0.4, 0.6, 0.02), 0.4},       // octave
		OscEnvMix{oscillators.NewPulse(2.0), envelopes.NewLADSR(0.02, 0.1, 0.3, 0.5, 0.02), 0.05},      // octave 2
	)
	v.filters = append(v.filters,
		filters.NewPass(filters.LowPass, 2),
		filters.NewDelay(0.1, 0.7, sampleRate),
	)
	return v
}

// Sounding reports whether the master envelope or any layer envelope is
// still producing signal.
func (v *Voice) Sounding() bool {
	if v.master.Sounding() {
		return true
	}
	for _, mix := range v.mixes {
		if mix.Env.Sounding() {
			return true
		}
	}
	return false
}

// Trigger starts the note: velocity in [0,1], firstFrame the global frame of
// the note-on. Oscillator phases restart so layering is deterministic.
func (v *Voice) Trigger(velocity float64, firstFrame int) {
	v.velocity = velocity
	v.triggerFrame = firstFrame
	v.master.PushDown()
	for _, mix := range v.mixes {
		mix.Env.PushDown()
		mix.Osc.Reset()
	}
}

// Release lifts the key; envelopes run out on their own.
func (v *Voice) Release() {
	v.master.LiftUp()
	for _, mix := range v.mixes {
		mix.Env.LiftUp()
	}
}

// Update binds this block's controller trajectories (all length N) and
// applies the block-level parameter snapshots: pedal from mid-block sustain,
// pulse width from the mod wheel, filter cutoff and resonance from
// aftertouch.
func (v *Voice) Update(bend, bendFreq, modWheel, expression, aftertouch, sustain []float64) {
	v.bend = bend
	v.bendFreq = bendFreq
	v.modWheel = modWheel
	v.expression = expression
	v.aftertouch = aftertouch
	v.sustain = sustain

	mid := len(sustain) / 2
	pedal := sustain[mid] > 0.5
	v.master.SetPedal(pedal)
	for _, mix := range v.mixes {
		mix.Env.SetPedal(pedal)
	}
	centre := 0.5 + 0.5*modWheel[len(modWheel)/2]
	for _, mix := range v.mixes {
		if pw, ok := mix.Osc.(oscillators.PulseWidther); ok {
			pw.SetPulseCentre(centre)
		}
	}
	at := aftertouch[len(aftertouch)/2]
	for _, f := range v.filters {
		if pass, ok := f.(*filters.Pass); ok {
			pass.SetCutoff(1 - at)
			pass.SetResonance(at)
		}
	}
}

// Render synthesizes length frames into the scratch buffer, runs the filter
// chain in place, soft-clips, and accumulates into out.
func (v *Voice) Render(out []float32, globalFrame, length int) {
	if length > len(v.scratch) {
		length = len(v.scratch)
	}
	scratch := v.scratch[:length]
	for i := range scratch {
		scratch[i] = 0
	}
	rawFreq := v.pitch / float64(v.sampleRate)
	for _, mix := range v.mixes {
		for frame := 0; frame < length; frame++ {
			freq := v.bendFreq[frame] * rawFreq
			t := float64(frame+globalFrame-v.triggerFrame) / float64(v.sampleRate)
			voiceWeight := v.expression[frame] * v.velocity * v.master.Weight(t)
			scratch[frame] += voiceWeight * (mix.Mix * (1 + v.aftertouch[frame])) *
				mix.Env.Weight(t) * mix.Osc.Amplitude(freq)
		}
	}
	for _, f := range v.filters {
		for frame := 0; frame < length; frame++ {
			scratch[frame] = f.Process(scratch[frame])
		}
	}
	for frame := 0; frame < length; frame++ {
		out[frame] += float32(math.Tanh(scratch[frame]))
	}
}

// SetSampleRate propagates a rate change; the delay line re-sizes its ring.
func (v *Voice) SetSampleRate(rate int) {
	v.sampleRate = rate
	for _, f := range v.filters {
		if d, ok := f.(*filters.Delay); ok {
			d.SetSampleRate(rate)
		}
	}
}

// SetBufferSize re-sizes the scratch buffer. Called from the host's
// buffer-size callback, never concurrently with Render.
func (v *Voice) SetBufferSize(size int) {
	v.bufferSize = size
	if cap(v.scratch) < size {
		v.scratch = make([]float64, size)
	} else {
		v.scratch = v.scratch[:size]
	}
}
