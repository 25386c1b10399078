package oscillators

import (
	"math"
	"testing"

	"github.com/cbegin/midisynth-go/internal/sample"
)

func TestAmplitudesStayBounded(t *testing.T) {
	oscs := map[string]Oscillator{
		"sine":       NewSine(0),
		"pulse":      NewPulse(0),
		"triangle":   NewTriangle(0),
		"saw":        NewSaw(0),
		"reversesaw": NewReverseSaw(0),
		"noise":      NewNoise(1),
	}
	for name, osc := range oscs {
		for i := 0; i < 10000; i++ {
			v := osc.Amplitude(0.013)
			if v < -1 || v > 1 {
				t.Fatalf("%s amplitude %f out of [-1, 1] at call %d", name, v, i)
			}
		}
	}
}

func TestSineFrequency(t *testing.T) {
	const sampleRate = 48000.0
	const freq = 880.0
	osc := NewSine(0)
	step := freq / sampleRate
	// Count rising zero crossings over one second of samples.
	crossings := 0
	prev := osc.Amplitude(step)
	for i := 1; i < int(sampleRate); i++ {
		v := osc.Amplitude(step)
		if prev < 0 && v >= 0 {
			crossings++
		}
		prev = v
	}
	if math.Abs(float64(crossings)-freq) > freq*0.01 {
		t.Errorf("measured %d cycles, want %.0f +-1%%", crossings, freq)
	}
}

func TestTuningDoublesPerOctave(t *testing.T) {
	base := NewSine(0)
	up := NewSine(1)
	step := 440.0 / 48000.0
	count := func(o *Sine) int {
		o.Reset()
		crossings := 0
		prev := o.Amplitude(step)
		for i := 1; i < 48000; i++ {
			v := o.Amplitude(step)
			if prev < 0 && v >= 0 {
				crossings++
			}
			prev = v
		}
		return crossings
	}
	b, u := count(base), count(up)
	if math.Abs(float64(u)-2*float64(b)) > float64(b)*0.02 {
		t.Errorf("octave-up produced %d cycles vs base %d, want ~2x", u, b)
	}
}

func TestPulseSymmetryAtDefaultCentre(t *testing.T) {
	osc := NewPulse(0)
	step := 1.0 / 1000 // exactly 1000 samples per period
	low := 0
	for i := 0; i < 1000; i++ {
		if osc.Amplitude(step) < 0 {
			low++
		}
	}
	if low < 495 || low > 505 {
		t.Errorf("low half = %d of 1000 samples, want ~500", low)
	}
}

func TestPulseWidthFollowsCentre(t *testing.T) {
	osc := NewPulse(0)
	osc.SetPulseCentre(0.9)
	step := 1.0 / 1000
	low := 0
	for i := 0; i < 1000; i++ {
		if osc.Amplitude(step) < 0 {
			low++
		}
	}
	// Centre 0.9 stretches the low half across 90% of the period.
	if low < 880 || low > 920 {
		t.Errorf("low half = %d of 1000 samples, want ~900", low)
	}
}

func TestPulseCentreClamped(t *testing.T) {
	osc := NewPulse(0)
	osc.SetPulseCentre(1.5)
	if osc.pulseCentre != 0.99 {
		t.Errorf("pulse centre = %f, want clamped 0.99", osc.pulseCentre)
	}
	osc.SetPulseCentre(-3)
	if osc.pulseCentre != 0.01 {
		t.Errorf("pulse centre = %f, want clamped 0.01", osc.pulseCentre)
	}
}

func TestTriangleShape(t *testing.T) {
	osc := NewTriangle(0)
	step := 1.0 / 8
	want := []float64{-0.5, 0.0, 0.5, 1.0, 0.5, 0.0, -0.5, -1.0}
	for i, w := range want {
		v := osc.Amplitude(step)
		if math.Abs(v-w) > 1e-9 {
			t.Errorf("sample %d = %f, want %f", i, v, w)
		}
	}
}

func TestSawRampsUpReverseSawRampsDown(t *testing.T) {
	saw := NewSaw(0)
	rev := NewReverseSaw(0)
	step := 1.0 / 100
	prevSaw := saw.Amplitude(step)
	prevRev := rev.Amplitude(step)
	for i := 1; i < 99; i++ {
		s := saw.Amplitude(step)
		r := rev.Amplitude(step)
		if s <= prevSaw {
			t.Fatalf("saw not rising at sample %d: %f -> %f", i, prevSaw, s)
		}
		if r >= prevRev {
			t.Fatalf("reverse saw not falling at sample %d: %f -> %f", i, prevRev, r)
		}
		prevSaw, prevRev = s, r
	}
}

func TestNoiseIsSeedDeterministic(t *testing.T) {
	a := NewNoise(42)
	b := NewNoise(42)
	for i := 0; i < 1000; i++ {
		if a.Amplitude(0) != b.Amplitude(0) {
			t.Fatal("same seed produced different noise")
		}
	}
}

func TestAudioLoopsAndResets(t *testing.T) {
	smp := &sample.Sample{Audio: []float64{0.1, 0.2, 0.3}}
	osc := NewAudio(smp)
	got := []float64{
		osc.Amplitude(0), osc.Amplitude(0), osc.Amplitude(0), osc.Amplitude(0),
	}
	want := []float64{0.1, 0.2, 0.3, 0.1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
	osc.Reset()
	if v := osc.Amplitude(0); v != 0.1 {
		t.Errorf("after reset = %f, want 0.1", v)
	}
}

func TestAudioEmptySampleIsSilent(t *testing.T) {
	osc := NewAudio(nil)
	if v := osc.Amplitude(0); v != 0 {
		t.Errorf("nil sample amplitude = %f, want 0", v)
	}
}
