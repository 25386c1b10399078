package oscillators

import (
	"math"
	"math/rand"

	"github.com/cbegin/midisynth-go/internal/sample"
)

const twoPi = math.Pi * 2

// Oscillator produces one sample in [-1, 1] per call. phaseStep is the
// fractional phase advance per output sample, frequency_hz / sample_rate.
type Oscillator interface {
	Amplitude(phaseStep float64) float64
	Reset()
}

// PulseWidther is implemented by oscillators whose phase can be warped by a
// pulse-width centre in (0, 1).
type PulseWidther interface {
	SetPulseCentre(centre float64)
}

// pitched accumulates phase for waveform oscillators. tuning is 2^tune where
// tune is in octaves (7.0/12 for a fifth). pulseCentre warps the phase before
// waveshaping; 0.5 leaves it untouched.
type pitched struct {
	offset      float64
	tuning      float64
	pulseCentre float64
}

func newPitched(tune float64) pitched {
	return pitched{tuning: math.Pow(2, tune), pulseCentre: 0.5}
}

func (p *pitched) advance(phaseStep float64) float64 {
	p.offset += phaseStep * p.tuning
	p.offset = math.Mod(p.offset, 1)
	return p.warp(p.offset)
}

func (p *pitched) warp(offset float64) float64 {
	if offset < p.pulseCentre {
		return 0.5 * offset / p.pulseCentre
	}
	return 0.5 + 0.5*(offset-p.pulseCentre)/(1-p.pulseCentre)
}

func (p *pitched) SetPulseCentre(centre float64) {
	p.pulseCentre = clamp(centre, 0.01, 0.99)
}

func (p *pitched) Reset() {
	p.offset = 0
}

type Sine struct{ pitched }

func NewSine(tune float64) *Sine {
	return &Sine{newPitched(tune)}
}

func (s *Sine) Amplitude(phaseStep float64) float64 {
	return math.Sin(s.advance(phaseStep) * twoPi)
}

type Pulse struct{ pitched }

func NewPulse(tune float64) *Pulse {
	return &Pulse{newPitched(tune)}
}

func (p *Pulse) Amplitude(phaseStep float64) float64 {
	if p.advance(phaseStep) < 0.5 {
		return -1
	}
	return 1
}

type Triangle struct{ pitched }

func NewTriangle(tune float64) *Triangle {
	return &Triangle{newPitched(tune)}
}

func (t *Triangle) Amplitude(phaseStep float64) float64 {
	offset := t.advance(phaseStep)
	if offset < 0.5 {
		return 4*offset - 1
	}
	return 3 - 4*offset
}

type Saw struct{ pitched }

func NewSaw(tune float64) *Saw {
	return &Saw{newPitched(tune)}
}

func (s *Saw) Amplitude(phaseStep float64) float64 {
	return 2*s.advance(phaseStep) - 1
}

type ReverseSaw struct{ pitched }

func NewReverseSaw(tune float64) *ReverseSaw {
	return &ReverseSaw{newPitched(tune)}
}

func (s *ReverseSaw) Amplitude(phaseStep float64) float64 {
	return 1 - 2*s.advance(phaseStep)
}

// Noise produces uniform samples in [-1, 1], independent per call. The
// generator is seeded explicitly so renders are reproducible.
type Noise struct {
	rng *rand.Rand
}

func NewNoise(seed int64) *Noise {
	return &Noise{rng: rand.New(rand.NewSource(seed))}
}

func (n *Noise) Amplitude(phaseStep float64) float64 {
	return n.rng.Float64()*2 - 1
}

func (n *Noise) Reset() {}

// Audio plays a loaded sample at its native rate, looping. The PCM data is
// shared; only the read cursor is per-oscillator.
type Audio struct {
	sample *sample.Sample
	cursor int
}

func NewAudio(s *sample.Sample) *Audio {
	return &Audio{sample: s}
}

func (a *Audio) Amplitude(phaseStep float64) float64 {
	if a.sample == nil || len(a.sample.Audio) == 0 {
		return 0
	}
	a.cursor %= len(a.sample.Audio)
	v := a.sample.Audio[a.cursor]
	a.cursor++
	return v
}

func (a *Audio) Reset() {
	a.cursor = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
