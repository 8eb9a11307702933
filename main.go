// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"hummer/cmd"
	"hummer/internal/audio"
	"hummer/internal/config"
	"hummer/internal/log"
	"hummer/internal/midiout"
	"hummer/internal/segment"
	"hummer/internal/session"
	"hummer/internal/transport"
	"hummer/internal/transport/udp"
	"hummer/internal/tui"
	"hummer/pkg/build"
)

// main is the entry point for the transcription engine.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//   - Open MIDI output, transports and the session vault
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture stream and the polling loop
//   - Start a take if requested
//   - Run the live monitor or wait for a signal
//
// 3. Shutdown Phase (Cold Path):
//   - Stop the polling loop
//   - Save the running take
//   - Release notes and clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v, using development build info", err)
	}

	// One thread for the capture callback, one for the loop, UI and I/O.
	runtime.GOMAXPROCS(2)

	cfg, opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if opts.Command == "" {
		return
	}
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Command != cmd.CommandRun {
		if err := executeCommand(ctx, cfg, opts); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := audio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer audio.Terminate()

	store, err := session.NewFileStore(cfg.Recording.SessionDir)
	if err != nil {
		log.Fatal(err)
	}

	var sinks segment.MultiSink

	var midiOut *midiout.Output
	if cfg.Midi.Enabled {
		midiOut, err = midiout.Open(cfg.Midi.OutPort, cfg.MidiOptions())
		if err != nil {
			log.Fatal(err)
		}
		sinks = append(sinks, midiOut)
	}

	var eventTransport transport.Transport
	var ws *transport.WebSocketTransport
	if cfg.Transport.WSEnabled {
		ws = transport.NewWebSocketTransport(cfg.Transport.WSAddress, nil)
		eventTransport = ws
	} else {
		eventTransport = transport.NewLoggingTransport()
	}
	sinks = append(sinks, transport.EventSink{Transport: eventTransport, Detune: cfg.Transport.WSEnabled})

	engine, err := audio.NewEngine(cfg, sinks)
	if err != nil {
		log.Fatal(err)
	}
	engine.SetSessionSaver(store)
	if ws != nil {
		ws.OnControl(func(msg transport.ControlMessage) {
			if err := engine.HandleControl(msg); err != nil {
				log.Warnf("Engine: Control message %q: %v", msg.Type, err)
			}
		})
	}

	var publisher *udp.UDPPublisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			log.Fatal(err)
		}
		defer sender.Close()
		publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, engine)
		if err != nil {
			log.Fatal(err)
		}
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// The first call to StartInputStream makes PortAudio begin calling the
	// capture callback.
	if err := engine.StartInputStream(); err != nil {
		log.Fatal(err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- engine.Run(runCtx) }()

	if publisher != nil {
		publisher.Start()
	}

	if opts.Record || engine.Control().Settings.Mode == segment.Record {
		if err := engine.StartRecording(""); err != nil {
			log.Errorf("Engine: %v", err)
		}
	}

	if opts.NoTUI {
		fmt.Printf("Listening. Press Ctrl+C to stop. '%s --help' for usage information.\n", build.Get().Name)
		<-ctx.Done()
	} else {
		logPath := filepath.Join(os.TempDir(), "hummer.log")
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			log.SetOutput(f)
			defer f.Close()
		}
		if err := tui.StartMonitorUI(engine); err != nil {
			log.Errorf("TUI: %v", err)
		}
		log.SetOutput(os.Stderr)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	cancelRun()
	if err := <-loopDone; err != nil {
		log.Errorf("Engine: %v", err)
	}

	if s, err := engine.StopRecording(); err != nil {
		log.Errorf("Error stopping recording: %v", err)
	} else if s != nil {
		fmt.Printf("\nSession %s saved to %s (%d notes)\n", s.ID, store.Dir(), len(s.Notes))
		if s.AudioFile != "" {
			fmt.Printf("Recording saved to: %s\n", s.AudioFile)
		}
	}

	if publisher != nil {
		publisher.Close()
	}
	if err := engine.Close(); err != nil {
		log.Errorf("Error closing audio engine: %v", err)
	}
	if err := eventTransport.Close(); err != nil {
		log.Errorf("Error closing transport: %v", err)
	}
	if midiOut != nil {
		midiOut.Panic()
		if err := midiOut.Close(); err != nil {
			log.Errorf("Error closing MIDI output: %v", err)
		}
	}
}

// executeCommand handles one-off commands that don't run the engine.
func executeCommand(ctx context.Context, cfg *config.Config, opts *cmd.Options) error {
	switch opts.Command {
	case cmd.CommandList, cmd.CommandDevices:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		if opts.Command == cmd.CommandDevices {
			return cmd.PickDevice(os.Stdout)
		}
		return cmd.ListHardware(os.Stdout)
	}

	store, err := session.NewFileStore(cfg.Recording.SessionDir)
	if err != nil {
		return err
	}
	if opts.Command == cmd.CommandSessions {
		return cmd.ListSessions(os.Stdout, store)
	}

	s, err := cmd.ResolveSession(store, opts.SessionID)
	if err != nil {
		return err
	}
	switch opts.Command {
	case cmd.CommandShow:
		return cmd.ShowSession(os.Stdout, s)
	case cmd.CommandDelete:
		if err := store.Delete(s.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", s.ID)
		return nil
	case cmd.CommandCompact:
		return cmd.CompactSession(os.Stdout, s, cfg.Recording.MaxGap)
	case cmd.CommandExport:
		path, err := cmd.ExportSession(s, opts.Output, cfg.ExportOptions())
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	case cmd.CommandPlay:
		return cmd.PlaySession(ctx, cfg, s)
	}
	return fmt.Errorf("unknown command %q", opts.Command)
}
