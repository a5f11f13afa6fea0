package main

import "time"

// TimeStamp mirrors the ros wire representation of a capture instant.
type TimeStamp struct {
	Sec  int64 `json:"sec"`
	Nsec int64 `json:"nsec"`
}

// Header carries the capture instant and the frame id label.
type Header struct {
	Stamp   TimeStamp `json:"stamp"`
	FrameID string    `json:"frame_id"`
}

// Frame is one immutable snapshot of axes and buttons, the unit of output.
// Builders always allocate fresh slices, so a consumer can keep reading a
// stale frame while the next one is under construction.
type Frame struct {
	Header  Header    `json:"header"`
	Axes    []float64 `json:"axes"`
	Buttons []int32   `json:"buttons"`
}

func stampNow() TimeStamp {
	now := time.Now()
	return TimeStamp{Sec: now.Unix(), Nsec: int64(now.Nanosecond())}
}

// buildFromTracker folds a tracker snapshot into a dense frame. Axes are
// additive: two held keys on the same axis with opposite polarity cancel to
// zero, with the same polarity they sum to 2 (deliberately not clamped).
// When duplicate entries target one button index they OR-combine, so any
// held entry wins over a neutral one. Slots up to the highest mapped index
// are filled with zero whether or not anything is held.
func buildFromTracker(entries []MappingEntry, frameID string) Frame {
	maxAxis, maxButton := -1, -1
	for _, entry := range entries {
		switch entry.Target {
		case TargetAxis:
			if entry.Index > maxAxis {
				maxAxis = entry.Index
			}
		case TargetButton:
			if entry.Index > maxButton {
				maxButton = entry.Index
			}
		}
	}

	axes := make([]float64, maxAxis+1)
	buttons := make([]int32, maxButton+1)
	for _, entry := range entries {
		if entry.Value == 0 {
			continue
		}
		switch entry.Target {
		case TargetAxis:
			axes[entry.Index] += float64(entry.Polarity)
		case TargetButton:
			buttons[entry.Index] = 1
		}
	}

	return Frame{
		Header:  Header{Stamp: stampNow(), FrameID: frameID},
		Axes:    axes,
		Buttons: buttons,
	}
}

// buildFromGamepad transcribes a raw gamepad sample. Axis values are negated
// unless invertAxes is off, and pressed booleans become 1/0. No length
// validation happens here: whatever the platform reports is transcribed
// as-is, NaN included.
func buildFromGamepad(sample GamepadSample, frameID string, invertAxes bool) Frame {
	axes := make([]float64, len(sample.Axes))
	for i, v := range sample.Axes {
		if invertAxes {
			axes[i] = -v
		} else {
			axes[i] = v
		}
	}

	buttons := make([]int32, len(sample.Buttons))
	for i, pressed := range sample.Buttons {
		if pressed {
			buttons[i] = 1
		}
	}

	return Frame{
		Header:  Header{Stamp: stampNow(), FrameID: frameID},
		Axes:    axes,
		Buttons: buttons,
	}
}

// buildFromInteractive passes an interactive payload through unchanged,
// copying the slices so the caller cannot mutate an emitted frame.
func buildFromInteractive(in InteractiveFrame, frameID string) Frame {
	return Frame{
		Header:  Header{Stamp: stampNow(), FrameID: frameID},
		Axes:    append([]float64(nil), in.Axes...),
		Buttons: append([]int32(nil), in.Buttons...),
	}
}

// restampReplay copies an inbound frame verbatim, replacing only the frame
// id. The original capture stamp is preserved.
func restampReplay(in Frame, frameID string) Frame {
	return Frame{
		Header:  Header{Stamp: in.Header.Stamp, FrameID: frameID},
		Axes:    append([]float64(nil), in.Axes...),
		Buttons: append([]int32(nil), in.Buttons...),
	}
}
