package main

import (
	"sync"
	"testing"
)

func snapshotEntry(t *testing.T, tracker *KeyTracker, key string) MappingEntry {
	t.Helper()
	for _, entry := range tracker.Snapshot() {
		if entry.Key == key {
			return entry
		}
	}
	t.Fatalf("Key %q not in snapshot", key)
	return MappingEntry{}
}

func TestKeyTracker_DownUp(t *testing.T) {
	tracker, err := NewKeyTracker("wasd", nil)
	if err != nil {
		t.Fatalf("NewKeyTracker failed: %v", err)
	}

	tracker.KeyDown("w")
	if got := snapshotEntry(t, tracker, "w").Value; got != 1 {
		t.Errorf("Expected w value 1 after key-down, got %d", got)
	}

	tracker.KeyUp("w")
	if got := snapshotEntry(t, tracker, "w").Value; got != 0 {
		t.Errorf("Expected w value 0 after key-up, got %d", got)
	}
}

func TestKeyTracker_RepeatedDownIsIdempotent(t *testing.T) {
	tracker, err := NewKeyTracker("wasd", nil)
	if err != nil {
		t.Fatalf("NewKeyTracker failed: %v", err)
	}

	tracker.KeyDown("w")
	tracker.KeyDown("w")
	tracker.KeyDown("w")
	if got := snapshotEntry(t, tracker, "w").Value; got != 1 {
		t.Errorf("Expected value 1 after repeated key-down, got %d", got)
	}
}

func TestKeyTracker_UpWithoutDown(t *testing.T) {
	tracker, err := NewKeyTracker("wasd", nil)
	if err != nil {
		t.Fatalf("NewKeyTracker failed: %v", err)
	}

	// A key-up with no observed key-down still reads 0.
	tracker.KeyUp("s")
	if got := snapshotEntry(t, tracker, "s").Value; got != 0 {
		t.Errorf("Expected value 0, got %d", got)
	}
}

func TestKeyTracker_UnknownKeyIgnored(t *testing.T) {
	tracker, err := NewKeyTracker("wasd", nil)
	if err != nil {
		t.Fatalf("NewKeyTracker failed: %v", err)
	}

	before := len(tracker.Snapshot())
	tracker.KeyDown("f13")
	tracker.KeyUp("f13")
	after := tracker.Snapshot()
	if len(after) != before {
		t.Errorf("Unknown key changed table size: %d -> %d", before, len(after))
	}
	for _, entry := range after {
		if entry.Value != 0 {
			t.Errorf("Unknown key leaked into entry %q", entry.Key)
		}
	}
}

func TestKeyTracker_DisableGatesEffectNotObservation(t *testing.T) {
	tracker, err := NewKeyTracker("wasd", nil)
	if err != nil {
		t.Fatalf("NewKeyTracker failed: %v", err)
	}

	tracker.KeyDown("w")
	tracker.Disable()

	if got := snapshotEntry(t, tracker, "w").Value; got != 0 {
		t.Errorf("Disabled snapshot should read 0, got %d", got)
	}

	// State keeps updating while disabled.
	tracker.KeyDown("a")
	tracker.Enable()

	if got := snapshotEntry(t, tracker, "w").Value; got != 1 {
		t.Errorf("Re-enabling should restore held key w, got %d", got)
	}
	if got := snapshotEntry(t, tracker, "a").Value; got != 1 {
		t.Errorf("Key-down observed while disabled should survive, got %d", got)
	}
}

func TestKeyTracker_Reload(t *testing.T) {
	tracker, err := NewKeyTracker("wasd", nil)
	if err != nil {
		t.Fatalf("NewKeyTracker failed: %v", err)
	}
	tracker.KeyDown("w")

	if err := tracker.Reload("arrows", nil); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	for _, entry := range tracker.Snapshot() {
		if entry.Key == "w" {
			t.Error("Old mapping key survived reload")
		}
		if entry.Value != 0 {
			t.Errorf("Reloaded entry %q should start released", entry.Key)
		}
	}

	if err := tracker.Reload("nope", nil); err == nil {
		t.Error("Expected error reloading unknown mapping")
	}
}

func TestKeyTracker_ConcurrentUpdates(t *testing.T) {
	tracker, err := NewKeyTracker("wasd", nil)
	if err != nil {
		t.Fatalf("NewKeyTracker failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tracker.KeyDown("w")
				tracker.Snapshot()
				tracker.KeyUp("w")
			}
		}()
	}
	wg.Wait()

	for _, entry := range tracker.Snapshot() {
		if entry.Value != 0 && entry.Value != 1 {
			t.Errorf("Key %q value out of {0,1}: %d", entry.Key, entry.Value)
		}
	}
}
