package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const joyMessageType = "sensor_msgs/Joy"

// rosbridgeOp is the rosbridge v2.0 wire envelope.
type rosbridgeOp struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic,omitempty"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

type wsDialer func(ctx context.Context, url string) (*websocket.Conn, error)

// Rosbridge speaks the rosbridge JSON protocol over a websocket. At most one
// inbound topic is subscribed at a time; inbound messages for it are
// delivered on Messages. A lost connection is reopened with bounded retries
// and the subscription and advertisements are re-established.
type Rosbridge struct {
	url     string
	retries int

	connMu     sync.Mutex
	conn       *websocket.Conn
	dialer     wsDialer
	subscribed string
	advertised map[string]string // topic -> message type

	messages chan TopicMessage
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRosbridge dials the endpoint and starts the read pump.
func NewRosbridge(ctx context.Context, url string, connectionRetries int) (*Rosbridge, error) {
	return NewRosbridgeWithDialer(ctx, url, connectionRetries, func(ctx context.Context, url string) (*websocket.Conn, error) {
		conn, _, err := websocket.Dial(ctx, url, nil)
		return conn, err
	})
}

// NewRosbridgeWithDialer is NewRosbridge with an injectable dialer.
func NewRosbridgeWithDialer(ctx context.Context, url string, connectionRetries int, dialer wsDialer) (*Rosbridge, error) {
	if connectionRetries < 1 {
		slog.Warn("Connection retries must be at least 1, setting to 1")
		connectionRetries = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Rosbridge{
		url:        url,
		retries:    connectionRetries,
		dialer:     dialer,
		advertised: make(map[string]string),
		messages:   make(chan TopicMessage, 10),
		ctx:        ctx,
		cancel:     cancel,
	}

	conn, err := dialer(ctx, url)
	if err != nil {
		cancel()
		return nil, err
	}
	r.conn = conn

	go r.readPump()
	return r, nil
}

// Messages delivers inbound messages from the subscribed topic.
func (r *Rosbridge) Messages() <-chan TopicMessage {
	return r.messages
}

func (r *Rosbridge) readPump() {
	for {
		r.connMu.Lock()
		conn := r.conn
		r.connMu.Unlock()
		if conn == nil {
			return
		}

		var op rosbridgeOp
		if err := wsjson.Read(r.ctx, conn, &op); err != nil {
			if r.ctx.Err() != nil {
				return
			}
			if err := r.reopen(); err != nil {
				slog.Error("Rosbridge connection lost for good", "error", err)
				return
			}
			continue
		}

		if op.Op != "publish" {
			continue
		}

		r.connMu.Lock()
		wanted := op.Topic == r.subscribed && r.subscribed != ""
		r.connMu.Unlock()
		if !wanted {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(op.Msg, &frame); err != nil {
			slog.Warn("Dropping undecodable inbound message", "topic", op.Topic, "error", err)
			continue
		}

		select {
		case r.messages <- TopicMessage{Topic: op.Topic, Frame: frame}:
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Rosbridge) reopen() error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn != nil {
		slog.Warn("Rosbridge connection lost, reopening...")
		r.conn.Close(websocket.StatusGoingAway, "reconnecting")
		r.conn = nil
	}

	for i := 0; i < r.retries; i++ {
		conn, err := r.dialer(r.ctx, r.url)
		if err != nil {
			slog.Error("Failed to open rosbridge connection", "attempt", i+1, "error", err)
			continue
		}
		r.conn = conn

		// Re-establish whatever was active before the drop.
		if r.subscribed != "" {
			if err := r.writeLocked(rosbridgeOp{Op: "subscribe", Topic: r.subscribed, Type: joyMessageType}); err != nil {
				slog.Error("Failed to re-subscribe after reopen", "topic", r.subscribed, "error", err)
			}
		}
		for topic, msgType := range r.advertised {
			if err := r.writeLocked(rosbridgeOp{Op: "advertise", Topic: topic, Type: msgType}); err != nil {
				slog.Error("Failed to re-advertise after reopen", "topic", topic, "error", err)
			}
		}

		slog.Info("Rosbridge connection re-established")
		return nil
	}

	return fmt.Errorf("failed to open rosbridge connection after %d attempts", r.retries)
}

func (r *Rosbridge) writeLocked(op rosbridgeOp) error {
	if r.conn == nil {
		return fmt.Errorf("rosbridge connection closed")
	}
	return wsjson.Write(r.ctx, r.conn, op)
}

func (r *Rosbridge) write(op rosbridgeOp) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.writeLocked(op)
}

// Subscribe subscribes to the given topic, replacing any previous
// subscription so exactly one inbound topic is active.
func (r *Rosbridge) Subscribe(topic string) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.subscribed != "" && r.subscribed != topic {
		if err := r.writeLocked(rosbridgeOp{Op: "unsubscribe", Topic: r.subscribed}); err != nil {
			return err
		}
		r.subscribed = ""
	}
	if err := r.writeLocked(rosbridgeOp{Op: "subscribe", Topic: topic, Type: joyMessageType}); err != nil {
		return err
	}
	r.subscribed = topic
	return nil
}

// UnsubscribeAll drops the inbound subscription, if any.
func (r *Rosbridge) UnsubscribeAll() error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.subscribed == "" {
		return nil
	}
	if err := r.writeLocked(rosbridgeOp{Op: "unsubscribe", Topic: r.subscribed}); err != nil {
		return err
	}
	r.subscribed = ""
	return nil
}

// Advertise announces an outbound topic.
func (r *Rosbridge) Advertise(topic, msgType string) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if err := r.writeLocked(rosbridgeOp{Op: "advertise", Topic: topic, Type: msgType}); err != nil {
		return err
	}
	r.advertised[topic] = msgType
	return nil
}

// Unadvertise withdraws an outbound topic announcement.
func (r *Rosbridge) Unadvertise(topic string) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if err := r.writeLocked(rosbridgeOp{Op: "unadvertise", Topic: topic}); err != nil {
		return err
	}
	delete(r.advertised, topic)
	return nil
}

// Publish sends one frame on the given topic.
func (r *Rosbridge) Publish(topic string, frame Frame) error {
	msg, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return r.write(rosbridgeOp{Op: "publish", Topic: topic, Msg: msg})
}

// Close shuts the connection down and stops the read pump.
func (r *Rosbridge) Close() error {
	r.cancel()
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close(websocket.StatusNormalClosure, "")
	r.conn = nil
	return err
}
