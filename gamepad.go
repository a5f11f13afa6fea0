package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/0xcafed00d/joystick"
)

// axisScale is the driver's full-scale axis magnitude.
const axisScale = 32767.0

// GamepadPoller samples one physical stick at a fixed cadence and turns each
// tick into a GamepadSample. Gamepad frames are rate-limited to this cadence
// by construction; key events, by contrast, produce a frame each.
type GamepadPoller struct {
	index   int
	hz      int
	opener  func(int) (joystick.Joystick, error)
	samples chan GamepadSample
}

// NewGamepadPoller polls pad `index` at `hz` ticks per second.
func NewGamepadPoller(index, hz int) *GamepadPoller {
	return NewGamepadPollerWithOpener(index, hz, joystick.Open)
}

// NewGamepadPollerWithOpener is NewGamepadPoller with an injectable driver
// opener.
func NewGamepadPollerWithOpener(index, hz int, opener func(int) (joystick.Joystick, error)) *GamepadPoller {
	if hz < 1 {
		slog.Warn("Poll rate must be at least 1Hz, setting to 1")
		hz = 1
	}
	return &GamepadPoller{
		index:   index,
		hz:      hz,
		opener:  opener,
		samples: make(chan GamepadSample, 10),
	}
}

// Samples delivers one sample per tick while a pad is connected, plus a
// single disconnected sample when the pad vanishes.
func (p *GamepadPoller) Samples() <-chan GamepadSample {
	return p.samples
}

// Run polls until ctx is cancelled. A missing or vanished pad is retried
// silently on later ticks; the poller never fails hard.
func (p *GamepadPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(p.hz))
	defer ticker.Stop()

	var js joystick.Joystick
	defer func() {
		if js != nil {
			js.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if js == nil {
				opened, err := p.opener(p.index)
				if err != nil {
					continue
				}
				js = opened
				slog.Info("Gamepad connected", "index", p.index, "name", js.Name())
			}

			state, err := js.Read()
			if err != nil {
				slog.Warn("Gamepad read failed, dropping device", "index", p.index, "error", err)
				js.Close()
				js = nil
				p.deliver(ctx, GamepadSample{Index: p.index})
				continue
			}

			p.deliver(ctx, sampleFromState(p.index, js.ButtonCount(), state))
		}
	}
}

func (p *GamepadPoller) deliver(ctx context.Context, sample GamepadSample) {
	select {
	case p.samples <- sample:
	case <-ctx.Done():
	}
}

// sampleFromState normalizes the driver's integer axis range to [-1, 1] and
// expands the button bitmask into pressed booleans.
func sampleFromState(index, buttonCount int, state joystick.State) GamepadSample {
	axes := make([]float64, len(state.AxisData))
	for i, v := range state.AxisData {
		axes[i] = float64(v) / axisScale
	}

	buttons := make([]bool, buttonCount)
	for i := range buttons {
		buttons[i] = state.Buttons&(1<<uint(i)) != 0
	}

	return GamepadSample{Index: index, Connected: true, Axes: axes, Buttons: buttons}
}
