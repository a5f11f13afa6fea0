package main

// Raw inputs arrive as one of four event kinds. The set is closed: every
// consumer switches over exactly these types.

// KeyEvent is a raw keyboard transition from the hosting environment.
type KeyEvent struct {
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

// GamepadSample is one poll tick worth of raw gamepad state. Axes are
// normalized to [-1, 1] by the poller; buttons are the driver's pressed
// booleans.
type GamepadSample struct {
	Index     int       `json:"index"`
	Connected bool      `json:"connected"`
	Axes      []float64 `json:"axes"`
	Buttons   []bool    `json:"buttons"`
}

// InteractiveFrame is the frame-shaped payload delivered by the on-screen
// interactive control.
type InteractiveFrame struct {
	Axes    []float64 `json:"axes"`
	Buttons []int32   `json:"buttons"`
}

// TopicMessage is an inbound message from the subscribed replay topic.
type TopicMessage struct {
	Topic string `json:"topic"`
	Frame Frame  `json:"frame"`
}
