package main

import (
	"fmt"
	"log/slog"
)

// Source identifies the single input origin allowed to produce frames.
type Source string

const (
	SourceTopic       Source = "topic"
	SourceGamepad     Source = "gamepad"
	SourceKeyboard    Source = "keyboard"
	SourceInteractive Source = "interactive"
)

func validSource(s Source) bool {
	switch s {
	case SourceTopic, SourceGamepad, SourceKeyboard, SourceInteractive:
		return true
	}
	return false
}

// FrameSink receives every emitted frame.
type FrameSink func(Frame)

// Bridge routes raw input events into frames and drives the transport side
// effects tied to source and topic changes. Events from inactive sources are
// still observed (the key tracker keeps updating) but never reach a sink.
//
// Every method is expected to run on the single event-processing goroutine;
// only the tracker is touched from elsewhere.
type Bridge struct {
	cfg       *Config
	tracker   *KeyTracker
	transport Transport
	sinks     []FrameSink
	suspended bool
	closed    bool
}

// NewBridge wires the bridge and performs the initial transport side effects
// for the loaded configuration.
func NewBridge(cfg *Config, tracker *KeyTracker, transport Transport) (*Bridge, error) {
	if !validSource(cfg.Source) {
		return nil, fmt.Errorf("%w: unknown source %q", ErrConfiguration, cfg.Source)
	}

	b := &Bridge{cfg: cfg, tracker: tracker, transport: transport}
	if cfg.Publish {
		if err := transport.Advertise(cfg.PublishTopic, joyMessageType); err != nil {
			return nil, err
		}
	}
	if cfg.Source == SourceTopic {
		if err := transport.Subscribe(cfg.SubscribeTopic); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// AddSink registers a frame consumer.
func (b *Bridge) AddSink(sink FrameSink) {
	b.sinks = append(b.sinks, sink)
}

// HandleKey observes every key transition. Only the keyboard source emits a
// frame; while another source is active the tracker state still updates, so
// switching back to the keyboard restores held keys instantly.
func (b *Bridge) HandleKey(ev KeyEvent) {
	if ev.Pressed {
		b.tracker.KeyDown(ev.Key)
	} else {
		b.tracker.KeyUp(ev.Key)
	}
	if b.cfg.Source != SourceKeyboard {
		return
	}
	b.emit(buildFromTracker(b.tracker.Snapshot(), b.cfg.FrameID))
}

// HandleGamepad emits a frame for one poll tick. Samples from a pad other
// than the configured one, or from a disconnected pad, are dropped silently.
func (b *Bridge) HandleGamepad(sample GamepadSample) {
	if b.cfg.Source != SourceGamepad {
		return
	}
	if sample.Index != b.cfg.GamepadIndex || !sample.Connected {
		return
	}
	b.emit(buildFromGamepad(sample, b.cfg.FrameID, b.cfg.GamepadInvertAxes))
}

// HandleInteractive transcribes an interactive payload verbatim.
func (b *Bridge) HandleInteractive(in InteractiveFrame) {
	if b.cfg.Source != SourceInteractive {
		return
	}
	b.emit(buildFromInteractive(in, b.cfg.FrameID))
}

// HandleTopic replays an inbound message, re-stamped with the configured
// frame id. The frame builder is bypassed: axes and buttons are copied, not
// recomputed.
func (b *Bridge) HandleTopic(msg TopicMessage) {
	if b.cfg.Source != SourceTopic {
		return
	}
	b.emit(restampReplay(msg.Frame, b.cfg.FrameID))
}

// SetSource switches the authoritative source. Switching is a plain
// configuration write, always legal. Entering topic mode subscribes to the
// configured input topic; leaving it unsubscribes from everything. Switching
// to the keyboard emits one frame right away so held keys take effect
// without waiting for the next key event.
func (b *Bridge) SetSource(src Source) error {
	if !validSource(src) {
		return fmt.Errorf("%w: unknown source %q", ErrConfiguration, src)
	}
	if src == b.cfg.Source {
		return nil
	}
	b.cfg.Source = src
	b.saveConfig()

	if src == SourceTopic {
		return b.transport.Subscribe(b.cfg.SubscribeTopic)
	}
	if err := b.transport.UnsubscribeAll(); err != nil {
		return err
	}
	if src == SourceKeyboard {
		b.emit(buildFromTracker(b.tracker.Snapshot(), b.cfg.FrameID))
	}
	return nil
}

// SetSubscribeTopic changes the replay input topic. In topic mode the new
// subscription replaces the old one immediately.
func (b *Bridge) SetSubscribeTopic(topic string) error {
	if topic == b.cfg.SubscribeTopic {
		return nil
	}
	b.cfg.SubscribeTopic = topic
	b.saveConfig()
	if b.cfg.Source == SourceTopic {
		return b.transport.Subscribe(topic)
	}
	return nil
}

// SetPublishTopic renames the output topic. While publishing, the stale name
// is unadvertised before the new one is advertised so no duplicate
// advertisement lingers.
func (b *Bridge) SetPublishTopic(topic string) error {
	if topic == b.cfg.PublishTopic {
		return nil
	}
	prev := b.cfg.PublishTopic
	b.cfg.PublishTopic = topic
	b.saveConfig()
	if !b.cfg.Publish {
		return nil
	}
	if err := b.transport.Unadvertise(prev); err != nil {
		return err
	}
	return b.transport.Advertise(topic, joyMessageType)
}

// SetPublish toggles publishing, advertising or unadvertising the output
// topic accordingly.
func (b *Bridge) SetPublish(on bool) error {
	if on == b.cfg.Publish {
		return nil
	}
	b.cfg.Publish = on
	b.saveConfig()
	if on {
		return b.transport.Advertise(b.cfg.PublishTopic, joyMessageType)
	}
	return b.transport.Unadvertise(b.cfg.PublishTopic)
}

// SetFrameID changes the frame id label stamped on every outgoing frame.
func (b *Bridge) SetFrameID(id string) {
	if id == b.cfg.FrameID {
		return
	}
	b.cfg.FrameID = id
	b.saveConfig()
}

// SetDisplayMode records the hosting panel's display mode. The bridge only
// persists it; rendering is the panel's business.
func (b *Bridge) SetDisplayMode(mode string) {
	if mode == b.cfg.DisplayMode {
		return
	}
	b.cfg.DisplayMode = mode
	b.saveConfig()
}

// SetMapping replaces the key mapping table wholesale.
func (b *Bridge) SetMapping(name string, overrides []string) error {
	if err := b.tracker.Reload(name, overrides); err != nil {
		return err
	}
	b.cfg.Mapping = name
	b.cfg.MappingOverrides = overrides
	b.saveConfig()
	return nil
}

// Suspend stops frame emission and releases topic side effects, typically on
// system sleep. State is kept so Resume picks up where we left off.
func (b *Bridge) Suspend() {
	if b.suspended {
		return
	}
	b.suspended = true
	b.releaseTransport()
}

// Resume re-enables emission and re-establishes the transport side effects
// for the current configuration.
func (b *Bridge) Resume() {
	if !b.suspended {
		return
	}
	b.suspended = false
	if b.cfg.Publish {
		if err := b.transport.Advertise(b.cfg.PublishTopic, joyMessageType); err != nil {
			slog.Error("Failed to re-advertise after resume", "topic", b.cfg.PublishTopic, "error", err)
		}
	}
	if b.cfg.Source == SourceTopic {
		if err := b.transport.Subscribe(b.cfg.SubscribeTopic); err != nil {
			slog.Error("Failed to re-subscribe after resume", "topic", b.cfg.SubscribeTopic, "error", err)
		}
	}
}

// Close tears the bridge down: no frame is delivered after it returns, and
// subscription and advertisement side effects are released synchronously.
func (b *Bridge) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.releaseTransport()
}

func (b *Bridge) releaseTransport() {
	if err := b.transport.UnsubscribeAll(); err != nil {
		slog.Warn("Failed to unsubscribe", "error", err)
	}
	if b.cfg.Publish {
		if err := b.transport.Unadvertise(b.cfg.PublishTopic); err != nil {
			slog.Warn("Failed to unadvertise", "topic", b.cfg.PublishTopic, "error", err)
		}
	}
}

func (b *Bridge) emit(frame Frame) {
	if b.closed || b.suspended {
		return
	}
	for _, sink := range b.sinks {
		sink(frame)
	}
	if b.cfg.Publish {
		if err := b.transport.Publish(b.cfg.PublishTopic, frame); err != nil {
			slog.Error("Failed to publish frame", "topic", b.cfg.PublishTopic, "error", err)
		}
	}
}

func (b *Bridge) saveConfig() {
	if err := b.cfg.Save(); err != nil {
		slog.Warn("Failed to persist configuration", "error", err)
	}
}
