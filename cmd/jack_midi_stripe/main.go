package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/xthexder/go-jack"
)

// jack_midi_stripe fans one MIDI input out across N MIDI output ports.
// Note-ons rotate round-robin; the matching note-off follows its note-on's
// port. Everything else is broadcast to every output.
type app struct {
	client      *jack.Client
	midiIn      *jack.Port
	midiOuts    []*jack.Port
	outBufs     []*jack.PortBuffer
	lastPort    int
	notePortMap map[byte]int
}

func main() {
	clientName := flag.String("name", "Midi Stripe", "JACK client name")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <number_of_outputs>\n", os.Args[0])
		os.Exit(1)
	}
	portCount, err := strconv.Atoi(flag.Arg(0))
	if err != nil || portCount < 1 {
		log.Fatalf("output count must be a positive integer, got %q", flag.Arg(0))
	}

	a, err := newApp(*clientName, portCount)
	if err != nil {
		log.Fatal(err)
	}
	defer a.client.Close()

	if err := a.client.Activate(); err != nil {
		log.Fatalf("failed to activate JACK client: %v", err)
	}
	fmt.Printf("%s: midi_input -> %d outputs\n", *clientName, portCount)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func newApp(clientName string, portCount int) (*app, error) {
	client, err := jack.ClientOpen(clientName, jack.NoStartServer)
	if err != nil {
		return nil, fmt.Errorf("failed to open JACK client: %w", err)
	}
	a := &app{client: client, notePortMap: make(map[byte]int)}

	a.midiIn, err = client.PortRegister("midi_input", jack.DEFAULT_MIDI_TYPE, jack.PortIsInput, 0)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to register MIDI input port: %w", err)
	}
	for i := 0; i < portCount; i++ {
		port, err := client.PortRegister(fmt.Sprintf("midi_output_%d", i), jack.DEFAULT_MIDI_TYPE, jack.PortIsOutput, 0)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to register MIDI output port %d: %w", i, err)
		}
		a.midiOuts = append(a.midiOuts, port)
	}
	a.outBufs = make([]*jack.PortBuffer, portCount)

	client.SetProcessCallback(a.process)
	client.OnShutdown(func() {
		os.Exit(1)
	})
	return a, nil
}

func (a *app) process(nframes uint32) int {
	outBufs := a.outBufs
	for i, port := range a.midiOuts {
		outBufs[i] = port.GetBuffer(nframes)
		jack.MidiClearBuffer(outBufs[i])
	}

	in := a.midiIn.GetBuffer(nframes)
	count := jack.MidiGetEventCount(in)
	for i := uint32(0); i < count; i++ {
		ev, err := jack.MidiEventGet(in, i)
		if err != nil || len(ev.Buffer) == 0 {
			continue
		}
		status := ev.Buffer[0] >> 4
		if (status == 8 || status == 9) && len(ev.Buffer) >= 2 {
			note := ev.Buffer[1]
			var target int
			if status == 9 {
				a.lastPort = (a.lastPort + 1) % len(a.midiOuts)
				target = a.lastPort
				a.notePortMap[note] = target
			} else {
				target = a.notePortMap[note]
				delete(a.notePortMap, note)
			}
			jack.MidiEventWrite(outBufs[target], ev)
			continue
		}
		for _, buf := range outBufs {
			jack.MidiEventWrite(buf, ev)
		}
	}
	return 0
}
