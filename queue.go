package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/beeker1121/goque"
)

// Queue serializes every raw input onto one disk-backed FIFO so events are
// processed in strict arrival order and survive a process restart. Producers
// write to the In channels; the event loop drains the Out channels.
type Queue struct {
	InKeys        chan KeyEvent
	InGamepad     chan GamepadSample
	InInteractive chan InteractiveFrame
	InTopic       chan TopicMessage

	OutKeys        chan KeyEvent
	OutGamepad     chan GamepadSample
	OutInteractive chan InteractiveFrame
	OutTopic       chan TopicMessage

	fsQueue *goque.Queue
	dir     string
}

type queueItem struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewQueue opens the journal in dir and starts the pump goroutine.
func NewQueue(ctx context.Context, dir string) (*Queue, error) {
	fsQueue, err := goque.OpenQueue(dir)
	if err != nil {
		return nil, err
	}

	q := &Queue{
		InKeys:         make(chan KeyEvent, 10),
		InGamepad:      make(chan GamepadSample, 10),
		InInteractive:  make(chan InteractiveFrame, 10),
		InTopic:        make(chan TopicMessage, 10),
		OutKeys:        make(chan KeyEvent, 10),
		OutGamepad:     make(chan GamepadSample, 10),
		OutInteractive: make(chan InteractiveFrame, 10),
		OutTopic:       make(chan TopicMessage, 10),
		fsQueue:        fsQueue,
		dir:            dir,
	}

	go q.pump(ctx)
	return q, nil
}

func (q *Queue) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q.InKeys:
			q.enqueue("key", ev)
		case ev := <-q.InGamepad:
			q.enqueue("gamepad", ev)
		case ev := <-q.InInteractive:
			q.enqueue("interactive", ev)
		case ev := <-q.InTopic:
			q.enqueue("topic", ev)
		default:
			item, err := q.fsQueue.Dequeue()
			if errors.Is(err, goque.ErrEmpty) {
				time.Sleep(1 * time.Millisecond)
				continue
			}
			if err != nil {
				slog.Error("Error dequeuing item", "error", err)
				continue
			}
			q.dispatch(item.Value)
		}
	}
}

func (q *Queue) enqueue(kind string, ev any) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Error marshaling event", "type", kind, "error", err)
		return
	}
	if _, err := q.fsQueue.EnqueueObjectAsJSON(queueItem{Type: kind, Data: data}); err != nil {
		slog.Error("Error enqueuing event", "type", kind, "error", err)
	}
}

func (q *Queue) dispatch(value []byte) {
	var item queueItem
	if err := json.Unmarshal(value, &item); err != nil {
		slog.Error("Error parsing dequeued item", "error", err)
		return
	}

	var err error
	switch item.Type {
	case "key":
		var ev KeyEvent
		if err = json.Unmarshal(item.Data, &ev); err == nil {
			q.OutKeys <- ev
		}
	case "gamepad":
		var ev GamepadSample
		if err = json.Unmarshal(item.Data, &ev); err == nil {
			q.OutGamepad <- ev
		}
	case "interactive":
		var ev InteractiveFrame
		if err = json.Unmarshal(item.Data, &ev); err == nil {
			q.OutInteractive <- ev
		}
	case "topic":
		var ev TopicMessage
		if err = json.Unmarshal(item.Data, &ev); err == nil {
			q.OutTopic <- ev
		}
	default:
		slog.Warn("Unknown queue item type", "type", item.Type)
	}

	if err != nil {
		slog.Error("Error parsing dequeued item", "type", item.Type, "error", err)
	}
}

// Close closes the journal and removes its directory.
func (q *Queue) Close() {
	q.close(true)
}

func (q *Queue) close(remove bool) {
	q.fsQueue.Close()
	if remove {
		if err := os.RemoveAll(q.dir); err != nil {
			slog.Error("Failed to remove queue directory", "dir", q.dir, "error", err)
		}
	}
}
