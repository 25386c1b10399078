package midisynth

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestRenderSamplesProducesAudio(t *testing.T) {
	schedule := []Event{
		{Frame: 0, Data: []byte{0x90, 60, 100}},
		{Frame: 24000, Data: []byte{0x80, 60, 0}},
	}
	samples, err := RenderSamples(schedule, 48000, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 48000 {
		t.Fatalf("got %d samples, want 48000", len(samples))
	}
	var sumsq float64
	for _, s := range samples {
		if s < -1 || s > 1 {
			t.Fatalf("sample %f out of [-1, 1]", s)
		}
		sumsq += float64(s) * float64(s)
	}
	if rms := math.Sqrt(sumsq / float64(len(samples))); rms < 0.005 {
		t.Errorf("rms = %f, want audible render", rms)
	}
}

func TestRenderUntilSilentStopsAfterTail(t *testing.T) {
	schedule := []Event{
		{Frame: 0, Data: []byte{0x90, 69, 100}},
		{Frame: 4800, Data: []byte{0x80, 69, 0}},
	}
	samples, err := RenderUntilSilent(schedule, 48000, 10)
	if err != nil {
		t.Fatal(err)
	}
	// Note-off at 0.1s plus the 1.5s master release: the render should end
	// well before the 10s cap but after the tail.
	if secs := float64(len(samples)) / 48000; secs < 1.5 || secs > 5 {
		t.Errorf("rendered %.2fs, want release tail between 1.5s and 5s", secs)
	}
}

func TestRenderSamplesEmptyScheduleIsSilent(t *testing.T) {
	samples, err := RenderSamples(nil, 48000, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("samples[%d] = %f, want 0", i, s)
		}
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	buf := EncodeWAVFloat32LE(samples, 48000, 1)
	if len(buf) != 44+len(samples)*4 {
		t.Fatalf("length = %d, want %d", len(buf), 44+len(samples)*4)
	}
	if string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if format := binary.LittleEndian.Uint16(buf[20:]); format != 3 {
		t.Errorf("audio format = %d, want 3 (IEEE float)", format)
	}
	if channels := binary.LittleEndian.Uint16(buf[22:]); channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
	if rate := binary.LittleEndian.Uint32(buf[24:]); rate != 48000 {
		t.Errorf("sample rate = %d, want 48000", rate)
	}
	if bits := binary.LittleEndian.Uint16(buf[34:]); bits != 32 {
		t.Errorf("bits = %d, want 32", bits)
	}
	got := math.Float32frombits(binary.LittleEndian.Uint32(buf[44+4:]))
	if got != 0.5 {
		t.Errorf("sample 1 = %f, want 0.5", got)
	}
}
