package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/xthexder/go-jack"
)

// jack_echo passes audio and MIDI straight through: one capture port echoed
// to playback, one MIDI input copied to one MIDI output.
type app struct {
	client   *jack.Client
	audioIn  *jack.Port
	audioOut *jack.Port
	midiIn   *jack.Port
	midiOut  *jack.Port
}

func main() {
	clientName := flag.String("name", "Echo", "JACK client name")
	flag.Parse()

	a, err := newApp(*clientName)
	if err != nil {
		log.Fatal(err)
	}
	defer a.client.Close()

	if err := a.activate(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: input -> output\n", *clientName)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func newApp(clientName string) (*app, error) {
	client, err := jack.ClientOpen(clientName, jack.NoStartServer)
	if err != nil {
		return nil, fmt.Errorf("failed to open JACK client: %w", err)
	}
	a := &app{client: client}

	register := func(name, portType string, flags uint64) *jack.Port {
		if err != nil {
			return nil
		}
		var port *jack.Port
		port, err = client.PortRegister(name, portType, flags, 0)
		return port
	}
	a.audioIn = register("input", jack.DEFAULT_AUDIO_TYPE, jack.PortIsInput)
	a.audioOut = register("output", jack.DEFAULT_AUDIO_TYPE, jack.PortIsOutput)
	a.midiIn = register("midi_input", jack.DEFAULT_MIDI_TYPE, jack.PortIsInput)
	a.midiOut = register("midi_output", jack.DEFAULT_MIDI_TYPE, jack.PortIsOutput)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to register port: %w", err)
	}

	client.SetProcessCallback(a.process)
	client.OnShutdown(func() {
		os.Exit(1)
	})
	return a, nil
}

func (a *app) activate() error {
	if err := a.client.Activate(); err != nil {
		return fmt.Errorf("failed to activate JACK client: %w", err)
	}
	capture := a.client.GetPorts("", jack.DEFAULT_AUDIO_TYPE,
		jack.PortIsPhysical|jack.PortIsOutput)
	if len(capture) == 0 {
		log.Println("cannot find any physical capture ports")
	} else if err := a.client.Connect(capture[0], a.audioIn.GetName()); err != nil {
		log.Printf("cannot connect input port: %v", err)
	}
	playback := a.client.GetPorts("", jack.DEFAULT_AUDIO_TYPE,
		jack.PortIsPhysical|jack.PortIsTerminal|jack.PortIsInput)
	if len(playback) == 0 {
		log.Println("cannot find any physical playback ports")
	}
	for _, name := range playback {
		if err := a.client.Connect(a.audioOut.GetName(), name); err != nil {
			log.Printf("cannot connect output to %s: %v", name, err)
		}
	}
	return nil
}

func (a *app) process(nframes uint32) int {
	in := jack.GetAudioSamples(a.audioIn.GetBuffer(nframes), nframes)
	out := jack.GetAudioSamples(a.audioOut.GetBuffer(nframes), nframes)
	copy(out, in)

	midiIn := a.midiIn.GetBuffer(nframes)
	midiOut := a.midiOut.GetBuffer(nframes)
	jack.MidiClearBuffer(midiOut)
	count := jack.MidiGetEventCount(midiIn)
	for i := uint32(0); i < count; i++ {
		ev, err := jack.MidiEventGet(midiIn, i)
		if err != nil {
			continue
		}
		jack.MidiEventWrite(midiOut, ev)
	}
	return 0
}
