package main

import "sync"

// KeyTracker owns the live press state for one mapping table. Key events and
// frame builds may come from different goroutines, so every state transition
// and read holds the mutex; a key value is only ever 0 or 1.
type KeyTracker struct {
	mu      sync.Mutex
	entries map[string]*MappingEntry
	enabled bool
}

// NewKeyTracker builds the tracker for a named mapping plus overrides, every
// key released.
func NewKeyTracker(mapping string, overrides []string) (*KeyTracker, error) {
	entries, err := NewMappingTable(mapping, overrides)
	if err != nil {
		return nil, err
	}
	return &KeyTracker{entries: entries, enabled: true}, nil
}

// KeyDown marks a key as held. Unknown keys are ignored, and repeated
// key-down while already held has no further effect.
func (t *KeyTracker) KeyDown(key string) { t.set(key, 1) }

// KeyUp marks a key as released, even if its key-down was never observed.
func (t *KeyTracker) KeyUp(key string) { t.set(key, 0) }

func (t *KeyTracker) set(key string, value int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[key]; ok {
		entry.Value = value
	}
}

// Enable restores the tracker's effect on built frames.
func (t *KeyTracker) Enable() { t.setEnabled(true) }

// Disable suspends the tracker's effect without losing state: key events keep
// updating the table, so re-enabling restores held keys instantly.
func (t *KeyTracker) Disable() { t.setEnabled(false) }

func (t *KeyTracker) setEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Enabled reports whether the tracker currently contributes to frames.
func (t *KeyTracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Reload replaces the mapping table wholesale. All press state is reset.
func (t *KeyTracker) Reload(mapping string, overrides []string) error {
	entries, err := NewMappingTable(mapping, overrides)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = entries
	return nil
}

// Snapshot copies every entry for a frame build. While disabled all values
// read as zero; the underlying state is untouched.
func (t *KeyTracker) Snapshot() []MappingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MappingEntry, 0, len(t.entries))
	for _, entry := range t.entries {
		copied := *entry
		if !t.enabled {
			copied.Value = 0
		}
		out = append(out, copied)
	}
	return out
}
