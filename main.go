package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

type multiFlag []string

func (m *multiFlag) String() string         { return strings.Join(*m, ",") }
func (m *multiFlag) Set(value string) error { *m = append(*m, value); return nil }

func parseFlags(cfg *Config) {
	var keyMapArgs multiFlag
	configPath := flag.String("config", defaultConfigPath, "Config file path")
	wsURL := flag.String("ws-url", "", "rosbridge websocket URL")
	source := flag.String("source", "", "Active input source (topic|gamepad|keyboard|interactive)")
	mapping := flag.String("mapping", "", "Built-in key mapping name")
	gamepadIndex := flag.Int("gamepad", 0, "Gamepad index to poll")
	publish := flag.Bool("publish", false, "Publish frames to the output topic")
	publishTopic := flag.String("publish-topic", "", "Output topic name")
	subscribeTopic := flag.String("subscribe-topic", "", "Input topic name for replay mode")
	frameID := flag.String("frame-id", "", "frame_id stamped on outgoing frames")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Var(&keyMapArgs, "keymap", "Key mapping override (format <key>:<target>, e.g. --keymap w:+axis1 --keymap space:button0)")
	flag.Parse()

	_ = configPath // resolved before loadConfig, see main

	// Only flags the user actually passed override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ws-url":
			cfg.WSURL = *wsURL
		case "source":
			cfg.Source = Source(*source)
		case "mapping":
			cfg.Mapping = *mapping
		case "gamepad":
			cfg.GamepadIndex = *gamepadIndex
		case "publish":
			cfg.Publish = *publish
		case "publish-topic":
			cfg.PublishTopic = *publishTopic
		case "subscribe-topic":
			cfg.SubscribeTopic = *subscribeTopic
		case "frame-id":
			cfg.FrameID = *frameID
		case "debug":
			cfg.Debug = *debug
		case "keymap":
			cfg.MappingOverrides = keyMapArgs
		}
	})
}

// configPathFlag pre-scans the arguments for -config so the file can be
// loaded before the remaining flags are applied on top of it.
func configPathFlag(args []string) string {
	path := defaultConfigPath
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-config" || arg == "--config":
			if i+1 < len(args) {
				path = args[i+1]
			}
		case strings.HasPrefix(arg, "-config="):
			path = strings.TrimPrefix(arg, "-config=")
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		}
	}
	return path
}

func setupLogger(debug bool) {
	var lvl slog.Level
	if debug {
		lvl = slog.LevelDebug
	} else {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// readKeyEvents feeds raw keyboard transitions from r, one per line:
// "+<key>" for key-down, "-<key>" for key-up.
func readKeyEvents(ctx context.Context, r io.Reader, keys chan<- KeyEvent) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < 2 {
			continue
		}
		var ev KeyEvent
		switch line[0] {
		case '+':
			ev = KeyEvent{Key: line[1:], Pressed: true}
		case '-':
			ev = KeyEvent{Key: line[1:], Pressed: false}
		default:
			slog.Warn("Ignoring malformed key line", "line", line)
			continue
		}
		select {
		case keys <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	cfg, err := loadConfig(configPathFlag(os.Args[1:]))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	parseFlags(cfg)
	setupLogger(cfg.Debug)

	slog.Info("Starting joy-bridge", "source", cfg.Source, "mapping", cfg.Mapping, "ws-url", cfg.WSURL)

	tracker, err := NewKeyTracker(cfg.Mapping, cfg.MappingOverrides)
	if err != nil {
		slog.Error("Failed to build key mapping table", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	transport, err := NewRosbridge(ctx, cfg.WSURL, cfg.ConnectionRetries)
	if err != nil {
		slog.Error("Failed to connect to rosbridge", "url", cfg.WSURL, "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	bridge, err := NewBridge(cfg, tracker, transport)
	if err != nil {
		slog.Error("Failed to start bridge", "error", err)
		os.Exit(1)
	}
	bridge.AddSink(func(f Frame) {
		slog.Debug("Frame", "frame_id", f.Header.FrameID, "axes", f.Axes, "buttons", f.Buttons)
	})

	queue, err := NewQueue(ctx, cfg.QueueDir)
	if err != nil {
		slog.Error("Failed to open event journal", "dir", cfg.QueueDir, "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	poller := NewGamepadPoller(cfg.GamepadIndex, cfg.PollHz)
	go poller.Run(ctx)

	go readKeyEvents(ctx, os.Stdin, queue.InKeys)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sample := <-poller.Samples():
				queue.InGamepad <- sample
			case msg := <-transport.Messages():
				queue.InTopic <- msg
			}
		}
	}()

	events := make(chan PowerEvent, 8)
	if err := PowerEventListener(ctx, events); err != nil {
		slog.Warn("Power event listener unavailable", "error", err)
	}

	slog.Info("Listening for input events... (Ctrl+C to exit)")
	for {
		select {
		case ev := <-queue.OutKeys:
			bridge.HandleKey(ev)
		case sample := <-queue.OutGamepad:
			bridge.HandleGamepad(sample)
		case in := <-queue.OutInteractive:
			bridge.HandleInteractive(in)
		case msg := <-queue.OutTopic:
			bridge.HandleTopic(msg)
		case ev := <-events:
			switch ev.Type {
			case PowerSleep:
				slog.Info("System going to sleep, suspending frame emission")
				bridge.Suspend()
			case PowerResume:
				slog.Info("System resumed, re-enabling frame emission")
				bridge.Resume()
			case PowerShutdown:
				slog.Info("System shutting down")
				bridge.Close()
				return
			}
		case <-ctx.Done():
			slog.Info("Shutting down...")
			bridge.Close()
			return
		}
	}
}
