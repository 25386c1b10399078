package sample

import (
	"fmt"
	"io"
	"os"
	"sync"

	wav "github.com/youpy/go-wav"
)

// Sample is a mono float PCM vector decoded from a WAV file. Multi-channel
// files are averaged down to one channel.
type Sample struct {
	Path       string
	SampleRate int
	Audio      []float64
}

// Load decodes the WAV file at path into a mono Sample.
func Load(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()

	reader := wav.NewReader(f)
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("read sample format %s: %w", path, err)
	}
	channels := uint(format.NumChannels)
	if channels == 0 {
		return nil, fmt.Errorf("sample %s has no channels", path)
	}

	s := &Sample{Path: path, SampleRate: int(format.SampleRate)}
	for {
		samples, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sample data %s: %w", path, err)
		}
		for _, frame := range samples {
			var sum float64
			for ch := uint(0); ch < channels; ch++ {
				sum += reader.FloatValue(frame, ch)
			}
			s.Audio = append(s.Audio, sum/float64(channels))
		}
	}
	return s, nil
}

// Manager caches decoded samples by path so every voice referencing the same
// file shares one PCM vector. Loads happen at startup; reads afterwards are
// lock-free for callers holding the returned pointer.
type Manager struct {
	mu      sync.Mutex
	samples map[string]*Sample
}

func NewManager() *Manager {
	return &Manager{samples: make(map[string]*Sample)}
}

func (m *Manager) Get(path string) (*Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.samples[path]; ok {
		return s, nil
	}
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	m.samples[path] = s
	return s, nil
}

var shared = NewManager()

// Get loads path through the process-wide cache.
func Get(path string) (*Sample, error) {
	return shared.Get(path)
}
