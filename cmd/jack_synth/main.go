package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GeoffreyPlitt/debuggo"
	"github.com/xthexder/go-jack"

	"github.com/cbegin/midisynth-go/internal/synth"
)

var jackDebug = debuggo.Debug("midisynth:jack")

type app struct {
	client   *jack.Client
	midiIn   *jack.Port
	audioOut *jack.Port
	engine   *synth.Engine
	events   []synth.Event
	out      []float32
}

func main() {
	var (
		clientName  = flag.String("name", "Midi Synth", "JACK client name")
		samplePath  = flag.String("sample", "", "WAV file layered into each voice's patch")
		gain        = flag.Float64("gain", 1.0, "master gain before the soft clip")
		autoconnect = flag.Bool("autoconnect", true, "connect audio output to all physical playback ports")
	)
	flag.Parse()

	a, err := newApp(*clientName, *samplePath, *gain)
	if err != nil {
		log.Fatal(err)
	}
	defer a.client.Close()

	if err := a.activate(*autoconnect); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: midi_input -> audio_output at %d Hz\n", *clientName, a.engine.SampleRate())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func newApp(clientName, samplePath string, gain float64) (*app, error) {
	jack.SetErrorFunction(func(msg string) {
		jackDebug("JACK error: %s", msg)
	})
	client, err := jack.ClientOpen(clientName, jack.NoStartServer)
	if err != nil {
		return nil, fmt.Errorf("failed to open JACK client: %w", err)
	}
	a := &app{client: client}

	a.midiIn, err = client.PortRegister("midi_input", jack.DEFAULT_MIDI_TYPE, jack.PortIsInput, 0)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to register MIDI input port: %w", err)
	}
	a.audioOut, err = client.PortRegister("audio_output", jack.DEFAULT_AUDIO_TYPE, jack.PortIsOutput, 0)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to register audio output port: %w", err)
	}

	sampleRate := int(client.GetSampleRate())
	bufferSize := int(client.GetBufferSize())
	a.engine, err = synth.New(sampleRate, bufferSize, synth.Params{
		SamplePath: samplePath,
		MasterGain: gain,
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	a.out = make([]float32, bufferSize)
	a.events = make([]synth.Event, 0, 64)

	client.SetProcessCallback(a.process)
	client.SetSampleRateCallback(func(nframes uint32) int {
		a.engine.SetSampleRate(int(nframes))
		return 0
	})
	client.SetBufferSizeCallback(func(nframes uint32) int {
		a.engine.SetBufferSize(int(nframes))
		a.out = make([]float32, nframes)
		return 0
	})
	client.OnShutdown(func() {
		log.Println("JACK server shut down")
		os.Exit(1)
	})
	jackDebug("client ready: %d Hz, buffer %d", sampleRate, bufferSize)
	return a, nil
}

func (a *app) activate(autoconnect bool) error {
	if err := a.client.Activate(); err != nil {
		return fmt.Errorf("failed to activate JACK client: %w", err)
	}
	if !autoconnect {
		return nil
	}
	playback := a.client.GetPorts("", jack.DEFAULT_AUDIO_TYPE,
		jack.PortIsPhysical|jack.PortIsTerminal|jack.PortIsInput)
	if len(playback) == 0 {
		log.Println("cannot find any physical playback ports")
		return nil
	}
	for _, name := range playback {
		if err := a.client.Connect(a.audioOut.GetName(), name); err != nil {
			log.Printf("cannot connect output to %s: %v", name, err)
		}
	}
	return nil
}

// process runs on the JACK audio thread: collect the block's MIDI events,
// render, copy out. No allocation, no blocking.
func (a *app) process(nframes uint32) int {
	midiBuf := a.midiIn.GetBuffer(nframes)
	count := jack.MidiGetEventCount(midiBuf)
	a.events = a.events[:0]
	for i := uint32(0); i < count; i++ {
		ev, err := jack.MidiEventGet(midiBuf, i)
		if err != nil {
			continue
		}
		a.events = append(a.events, synth.Event{Frame: int(ev.Time), Data: ev.Buffer})
	}

	samples := jack.GetAudioSamples(a.audioOut.GetBuffer(nframes), nframes)
	n := int(nframes)
	if n > len(a.out) {
		n = len(a.out)
	}
	a.engine.Process(n, a.events, a.out[:n])
	for i := 0; i < n && i < len(samples); i++ {
		samples[i] = jack.AudioSample(a.out[i])
	}
	return 0
}
