package midisynth

import (
	"encoding/binary"
	"math"

	intseq "github.com/cbegin/midisynth-go/internal/sequencer"
	intsynth "github.com/cbegin/midisynth-go/internal/synth"
)

// Event schedules one raw MIDI event at an absolute frame for offline
// rendering.
type Event struct {
	Frame int
	Data  []byte
}

func newOfflineSequencer(schedule []Event, sampleRate int, cfg config) (*intseq.Sequencer, error) {
	engine, err := intsynth.New(sampleRate, cfg.blockSize, intsynth.Params{
		SamplePath: cfg.samplePath,
		MasterGain: cfg.masterGain,
	})
	if err != nil {
		return nil, err
	}
	timed := make([]intseq.TimedEvent, len(schedule))
	for i, ev := range schedule {
		timed[i] = intseq.TimedEvent{Frame: ev.Frame, Data: ev.Data}
	}
	return intseq.New(engine, timed), nil
}

// RenderSamples renders the schedule into seconds worth of mono float32
// audio.
func RenderSamples(schedule []Event, sampleRate int, seconds float64, opts ...Option) ([]float32, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	seq, err := newOfflineSequencer(schedule, sampleRate, cfg)
	if err != nil {
		return nil, err
	}
	out := make([]float32, int(float64(sampleRate)*seconds))
	seq.Process(out)
	return out, nil
}

// RenderUntilSilent renders until every scheduled event has fired and all
// release tails have died out, or maxSeconds is reached.
func RenderUntilSilent(schedule []Event, sampleRate int, maxSeconds float64, opts ...Option) ([]float32, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	seq, err := newOfflineSequencer(schedule, sampleRate, cfg)
	if err != nil {
		return nil, err
	}
	var out []float32
	chunk := make([]float32, cfg.blockSize)
	maxFrames := int(float64(sampleRate) * maxSeconds)
	for seq.Frame() < maxFrames && !seq.Done() {
		seq.Process(chunk)
		out = append(out, chunk...)
	}
	return out, nil
}

// EncodeWAVFloat32LE wraps samples in a 32-bit float WAV container.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
