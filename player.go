package midisynth

import (
	"errors"
	"sync"

	"github.com/GeoffreyPlitt/debuggo"

	intaudio "github.com/cbegin/midisynth-go/internal/audio"
	intsynth "github.com/cbegin/midisynth-go/internal/synth"
)

var playerDebug = debuggo.Debug("midisynth:player")

const defaultBlockSize = 256

// Option configures a Player or an offline render.
type Option func(*config)

type config struct {
	samplePath string
	blockSize  int
	masterGain float64
}

func defaultConfig() config {
	return config{blockSize: defaultBlockSize, masterGain: 1.0}
}

// WithSamplePath layers the WAV file at path into every voice's patch.
func WithSamplePath(path string) Option {
	return func(cfg *config) {
		cfg.samplePath = path
	}
}

// WithBlockSize sets the internal render block size in frames.
func WithBlockSize(frames int) Option {
	return func(cfg *config) {
		if frames > 0 {
			cfg.blockSize = frames
		}
	}
}

// WithMasterGain sets the pre-clip master gain.
func WithMasterGain(gain float64) Option {
	return func(cfg *config) {
		cfg.masterGain = gain
	}
}

// Player runs the engine against the OS mixer for hosts without a JACK
// server. MIDI arrives through Send and the note/controller helpers; queued
// events are consumed at the start of the next rendered block.
type Player struct {
	mu         sync.Mutex
	engine     *intsynth.Engine
	audio      *intaudio.Player
	sampleRate int
	pending    []intsynth.Event
	block      []intsynth.Event
}

func NewPlayer(sampleRate int, opts ...Option) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	engine, err := intsynth.New(sampleRate, cfg.blockSize, intsynth.Params{
		SamplePath: cfg.samplePath,
		MasterGain: cfg.masterGain,
	})
	if err != nil {
		return nil, err
	}
	playerDebug("player ready: %d Hz, block %d", sampleRate, cfg.blockSize)
	return &Player{
		engine:     engine,
		sampleRate: sampleRate,
		block:      make([]intsynth.Event, 0, 64),
	}, nil
}

// Process implements audio.SampleSource; it runs on the audio thread.
// Queued MIDI events land at the start of the first chunk.
func (p *Player) Process(dst []float32) {
	p.mu.Lock()
	p.block = p.block[:0]
	p.block = append(p.block, p.pending...)
	p.pending = p.pending[:0]
	p.mu.Unlock()

	blockSize := p.engine.BufferSize()
	events := p.block
	for len(dst) > 0 {
		n := blockSize
		if n > len(dst) {
			n = len(dst)
		}
		p.engine.Process(n, events, dst[:n])
		events = nil
		dst = dst[n:]
	}
}

// Send queues one raw MIDI event for the next block.
func (p *Player) Send(data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	p.mu.Lock()
	p.pending = append(p.pending, intsynth.Event{Data: buf})
	p.mu.Unlock()
}

// NoteOn queues a note-on for the given MIDI note and velocity (0-127).
func (p *Player) NoteOn(note, velocity int) {
	p.Send([]byte{0x90, byte(note & 0x7F), byte(velocity & 0x7F)})
}

// NoteOff queues a note-off.
func (p *Player) NoteOff(note int) {
	p.Send([]byte{0x80, byte(note & 0x7F), 0})
}

// ControlChange queues a controller change (mod wheel 1, expression 11,
// sustain 64).
func (p *Player) ControlChange(controller, value int) {
	p.Send([]byte{0xB0, byte(controller & 0x7F), byte(value & 0x7F)})
}

// PitchBend queues a bend in [-1, 1]; +1 is one octave up.
func (p *Player) PitchBend(bend float64) {
	if bend < -1 {
		bend = -1
	} else if bend > 1 {
		bend = 1
	}
	raw := int((bend + 1) * 8192)
	if raw > 16383 {
		raw = 16383
	}
	p.Send([]byte{0xE0, byte(raw & 0x7F), byte(raw >> 7)})
}

// Aftertouch queues channel pressure (0-127).
func (p *Player) Aftertouch(pressure int) {
	p.Send([]byte{0xD0, byte(pressure & 0x7F)})
}

// SetMasterGain adjusts the pre-clip gain while playing.
func (p *Player) SetMasterGain(gain float64) {
	p.engine.SetMasterGain(gain)
}

// ActiveVoiceCount returns the number of voices still sounding.
func (p *Player) ActiveVoiceCount() int {
	return p.engine.ActiveVoiceCount()
}

// Start opens the output stream on first use and begins playback.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		backend, err := intaudio.NewPlayer(p.sampleRate, p)
		if err != nil {
			return err
		}
		p.audio = backend
	}
	p.audio.Play()
	return nil
}

// Pause suspends streaming without dropping voice state.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

// Stop tears the stream down.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}
