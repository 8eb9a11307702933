// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hummer/internal/config"
	"hummer/pkg/build"
)

// Commands selected on the command line.
const (
	CommandRun      = "run"
	CommandList     = "list"
	CommandDevices  = "devices"
	CommandSessions = "sessions"
	CommandShow     = "show"
	CommandDelete   = "delete"
	CommandCompact  = "compact"
	CommandExport   = "export"
	CommandPlay     = "play"
)

// Options carries what the command line asked for beyond the config.
type Options struct {
	// Command is empty when cobra handled the invocation itself (help,
	// version).
	Command    string
	ConfigPath string
	SessionID  string
	Output     string
	Record     bool
	NoTUI      bool
}

// flagValues receives the flags that override the config file.
type flagValues struct {
	debug           bool
	device          int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool
	sessionDir      string

	mode        string
	scale       string
	sensitivity float64
	boost       float64
	glide       float64
	noHarmony   bool
	noBend      bool
	midiPort    string
	wsAddr      string
	udpAddr     string

	skipSilences bool
	maxGap       float64
}

// ParseArgs runs the command line and returns the resulting configuration.
// Flags override the config file, which overrides the defaults.
func ParseArgs(args []string) (*config.Config, *Options, error) {
	info := build.Get()
	opts := &Options{}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Live pitch-to-note transcription for voice and monophonic instruments",
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRun
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "f", "",
		"Config file (default "+config.DefaultPath+" when present)")
	pf.BoolVarP(&fv.debug, "debug", "v", false, "Show debug output")
	pf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of input channels; the first one is analysed")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", false,
		"Use the device's low latency setting")
	pf.StringVar(&fv.sessionDir, "session-dir", config.DefaultSessionDir,
		"Directory of saved sessions")

	f := rootCmd.Flags()
	f.StringVarP(&fv.mode, "mode", "m", config.DefaultMode, "Start mode: IDLE, MIDI, VOICE or RECORD")
	f.StringVar(&fv.scale, "scale", config.DefaultScale, "Scale: MAJOR, MINOR, PENTATONIC, BLUES or CHROMATIC")
	f.Float64Var(&fv.sensitivity, "sensitivity", config.DefaultSensitivity, "Input level that opens the gate")
	f.Float64Var(&fv.boost, "boost", config.DefaultMicBoost, "Microphone boost applied before the gate")
	f.Float64Var(&fv.glide, "glide", 0.05, "Portamento in seconds; 0 releases before every note")
	f.BoolVar(&fv.noHarmony, "no-harmony", false, "Disable the harmonizer chord")
	f.BoolVar(&fv.noBend, "no-bend", false, "Disable pitch bend")
	f.BoolVarP(&opts.Record, "record", "r", false, "Start recording a take immediately")
	f.StringVar(&fv.midiPort, "midi-port", "", "Send notes to the MIDI output port matching this name")
	f.StringVar(&fv.wsAddr, "ws", "", "Serve the event WebSocket on this address (e.g. :8080)")
	f.StringVar(&fv.udpAddr, "udp", "", "Send status packets to this UDP address")
	f.BoolVar(&opts.NoTUI, "no-tui", false, "Run without the live monitor")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List audio devices and MIDI output ports",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = CommandList
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "Pick an input device interactively",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = CommandDevices
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = CommandSessions
		},
	})

	sessionCommand := func(name, short string) *cobra.Command {
		return &cobra.Command{
			Use:   name + " <session-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				opts.Command = name
				opts.SessionID = args[0]
			},
		}
	}

	showCmd := sessionCommand(CommandShow, "Print the notes of a session")
	rootCmd.AddCommand(showCmd)

	rootCmd.AddCommand(sessionCommand(CommandDelete, "Delete a session"))

	compactCmd := sessionCommand(CommandCompact, "Print a session with long silences shortened")
	compactCmd.Flags().Float64Var(&fv.maxGap, "max-gap", 0.3, "Longest silence kept, in seconds")
	rootCmd.AddCommand(compactCmd)

	exportCmd := sessionCommand(CommandExport, "Write a session as a Standard MIDI File")
	exportCmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file (default <session-id>.mid)")
	addPlaybackFlags(exportCmd, &fv)
	rootCmd.AddCommand(exportCmd)

	playCmd := sessionCommand(CommandPlay, "Play a session to the MIDI output")
	playCmd.Flags().StringVar(&fv.midiPort, "midi-port", "", "MIDI output port matching this name")
	addPlaybackFlags(playCmd, &fv)
	rootCmd.AddCommand(playCmd)

	rootCmd.SetArgs(args)
	executed, err := rootCmd.ExecuteC()
	if err != nil {
		return nil, nil, err
	}
	if opts.Command == "" {
		return nil, opts, nil
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	fv.apply(cfg, executed.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid command line: %w", err)
	}
	return cfg, opts, nil
}

func addPlaybackFlags(cmd *cobra.Command, fv *flagValues) {
	cmd.Flags().BoolVar(&fv.skipSilences, "skip-silences", true, "Shorten long silences")
	cmd.Flags().Float64Var(&fv.maxGap, "max-gap", 0.3, "Longest silence kept, in seconds")
	cmd.Flags().BoolVar(&fv.noHarmony, "no-harmony", false, "Leave out the harmonizer chords")
}

// apply copies every flag the user set onto cfg.
func (fv *flagValues) apply(cfg *config.Config, changed func(string) bool) {
	if changed("debug") {
		cfg.Debug = fv.debug
	}
	if changed("device") {
		cfg.Audio.InputDevice = fv.device
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.framesPerBuffer
	}
	if changed("channels") {
		cfg.Audio.InputChannels = fv.channels
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if changed("session-dir") {
		cfg.Recording.SessionDir = fv.sessionDir
	}
	if changed("mode") {
		cfg.Perform.Mode = fv.mode
	}
	if changed("scale") {
		cfg.Perform.Scale = fv.scale
	}
	if changed("sensitivity") {
		cfg.Perform.Sensitivity = fv.sensitivity
	}
	if changed("boost") {
		cfg.Perform.MicBoost = fv.boost
	}
	if changed("glide") {
		cfg.Perform.Glide = fv.glide
	}
	if changed("no-harmony") {
		cfg.Perform.Harmonize = !fv.noHarmony
	}
	if changed("no-bend") {
		cfg.Perform.Bend = !fv.noBend
	}
	if changed("midi-port") {
		cfg.Midi.Enabled = true
		cfg.Midi.OutPort = fv.midiPort
	}
	if changed("ws") {
		cfg.Transport.WSEnabled = true
		cfg.Transport.WSAddress = fv.wsAddr
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = fv.udpAddr
		if cfg.Transport.UDPSendInterval <= 0 {
			cfg.Transport.UDPSendInterval = 33 * time.Millisecond
		}
	}
	if changed("skip-silences") {
		cfg.Recording.SkipSilences = fv.skipSilences
	}
	if changed("max-gap") {
		cfg.Recording.MaxGap = fv.maxGap
	}
}
