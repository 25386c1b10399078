package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/midisynth-go"
)

func main() {
	var (
		inPath     = flag.String("in", "", "standard MIDI file to render")
		outPath    = flag.String("out", "out.wav", "output WAV path")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		blockSize  = flag.Int("block", 256, "render block size in frames")
		samplePath = flag.String("sample", "", "WAV file layered into each voice's patch")
		gain       = flag.Float64("gain", 1.0, "master gain before the soft clip")
		maxSeconds = flag.Float64("max-seconds", 600, "hard cap on rendered length")
	)
	flag.Parse()
	if *inPath == "" {
		log.Fatal("no input file; use -in song.mid")
	}

	schedule, err := flattenSMF(*inPath, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	samples, err := midisynth.RenderUntilSilent(schedule, *sampleRate, *maxSeconds,
		midisynth.WithBlockSize(*blockSize),
		midisynth.WithSamplePath(*samplePath),
		midisynth.WithMasterGain(*gain),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(*outPath, midisynth.EncodeWAVFloat32LE(samples, *sampleRate, 1), 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s: %d events, %.2fs at %d Hz\n",
		*outPath, len(schedule), float64(len(samples))/float64(*sampleRate), *sampleRate)
}

type tempoChange struct {
	tick int
	bpm  float64
}

// flattenSMF merges every track of the file into one schedule of raw channel
// messages at absolute frame offsets, walking the tempo map to convert ticks
// to seconds.
func flattenSMF(path string, sampleRate int) ([]midisynth.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	ppq := 480
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ppq = int(mt)
	}

	type timedMsg struct {
		tick int
		data []byte
	}
	var messages []timedMsg
	tempos := []tempoChange{{tick: 0, bpm: 120}}
	for _, track := range s.Tracks {
		abs := 0
		for _, event := range track {
			abs += int(event.Delta)
			msg := event.Message
			var bpm float64
			if msg.GetMetaTempo(&bpm) {
				tempos = append(tempos, tempoChange{tick: abs, bpm: bpm})
				continue
			}
			if msg.IsMeta() {
				continue
			}
			raw := msg.Bytes()
			if len(raw) == 0 || raw[0] < 0x80 || raw[0] >= 0xF0 {
				continue
			}
			messages = append(messages, timedMsg{tick: abs, data: raw})
		}
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].tick < messages[j].tick })
	sort.SliceStable(tempos, func(i, j int) bool { return tempos[i].tick < tempos[j].tick })

	schedule := make([]midisynth.Event, 0, len(messages))
	secPerTick := 60.0 / (tempos[0].bpm * float64(ppq))
	elapsed := 0.0
	lastTick := 0
	ti := 1
	for _, m := range messages {
		for ti < len(tempos) && tempos[ti].tick <= m.tick {
			elapsed += float64(tempos[ti].tick-lastTick) * secPerTick
			lastTick = tempos[ti].tick
			secPerTick = 60.0 / (tempos[ti].bpm * float64(ppq))
			ti++
		}
		seconds := elapsed + float64(m.tick-lastTick)*secPerTick
		schedule = append(schedule, midisynth.Event{
			Frame: int(seconds * float64(sampleRate)),
			Data:  m.data,
		})
	}
	return schedule, nil
}
