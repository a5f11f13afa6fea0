package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0xcafed00d/joystick"
)

// fakeStick implements joystick.Joystick for tests.
type fakeStick struct {
	state   joystick.State
	readErr error
	closed  bool
}

func (f *fakeStick) AxisCount() int                { return len(f.state.AxisData) }
func (f *fakeStick) ButtonCount() int              { return 2 }
func (f *fakeStick) Name() string                  { return "fake pad" }
func (f *fakeStick) Read() (joystick.State, error) { return f.state, f.readErr }
func (f *fakeStick) Close()                        { f.closed = true }

func TestSampleFromState(t *testing.T) {
	state := joystick.State{
		AxisData: []int{32767, -32767, 0},
		Buttons:  0b101,
	}
	sample := sampleFromState(3, 3, state)

	if sample.Index != 3 || !sample.Connected {
		t.Errorf("Unexpected sample metadata: %+v", sample)
	}
	if sample.Axes[0] != 1 || sample.Axes[1] != -1 || sample.Axes[2] != 0 {
		t.Errorf("Axis normalization wrong: %v", sample.Axes)
	}
	if !sample.Buttons[0] || sample.Buttons[1] || !sample.Buttons[2] {
		t.Errorf("Button bitmask expansion wrong: %v", sample.Buttons)
	}
}

func TestGamepadPoller_DeliversSamples(t *testing.T) {
	stick := &fakeStick{state: joystick.State{AxisData: []int{16384}, Buttons: 1}}
	poller := NewGamepadPollerWithOpener(0, 1000, func(index int) (joystick.Joystick, error) {
		return stick, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	select {
	case sample := <-poller.Samples():
		if !sample.Connected {
			t.Error("Expected a connected sample")
		}
		if len(sample.Axes) != 1 || !sample.Buttons[0] {
			t.Errorf("Unexpected sample: %+v", sample)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a sample")
	}
}

func TestGamepadPoller_ReadFailureDropsDevice(t *testing.T) {
	stick := &fakeStick{readErr: errors.New("unplugged")}
	opens := 0
	poller := NewGamepadPollerWithOpener(0, 1000, func(index int) (joystick.Joystick, error) {
		opens++
		return stick, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	select {
	case sample := <-poller.Samples():
		if sample.Connected {
			t.Error("Read failure should produce a disconnected sample")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the disconnect sample")
	}
	if !stick.closed {
		t.Error("Failing stick should be closed")
	}
}

func TestGamepadPoller_MissingDeviceRetriesSilently(t *testing.T) {
	attempts := make(chan int, 64)
	n := 0
	poller := NewGamepadPollerWithOpener(0, 1000, func(index int) (joystick.Joystick, error) {
		n++
		select {
		case attempts <- n:
		default:
		}
		return nil, errors.New("no such device")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	// The poller keeps retrying the open on later ticks instead of failing.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-attempts:
			if got >= 2 {
				return
			}
		case <-deadline:
			t.Fatal("Poller stopped retrying the device open")
		}
	}
}
