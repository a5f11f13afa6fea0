package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ErrConfiguration marks a mapping table defect. Loading must fail rather
// than proceed with a corrupt table.
var ErrConfiguration = errors.New("invalid key mapping")

// TargetKind selects which output slot a key feeds.
type TargetKind int

const (
	TargetAxis TargetKind = iota
	TargetButton
)

func (k TargetKind) String() string {
	if k == TargetButton {
		return "button"
	}
	return "axis"
}

// MappingEntry binds one key to an axis or button slot and carries its
// current press state.
type MappingEntry struct {
	Key      string     `json:"key"`
	Target   TargetKind `json:"target"`
	Index    int        `json:"index"`
	Polarity int        `json:"polarity"` // +1 or -1, meaningful for axes only
	Value    int        `json:"value"`    // 0 or 1
}

// Built-in mapping tables, selectable by name. Axes follow the ros Joy
// convention: axis 0 positive to the left, axis 1 positive forward.
var builtinMappings = map[string]map[string]string{
	"wasd": {
		"w":     "+axis1",
		"s":     "-axis1",
		"a":     "+axis0",
		"d":     "-axis0",
		"space": "button0",
		"shift": "button1",
	},
	"arrows": {
		"up":    "+axis1",
		"down":  "-axis1",
		"left":  "+axis0",
		"right": "-axis0",
		"enter": "button0",
	},
}

// parseTarget parses a target spec of the form "[+|-]axis<N>" or "button<N>".
func parseTarget(spec string) (TargetKind, int, int, error) {
	s := spec
	polarity := 1
	signed := false
	switch {
	case strings.HasPrefix(s, "+"):
		signed = true
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		signed = true
		polarity = -1
		s = s[1:]
	}

	var kind TargetKind
	var num string
	switch {
	case strings.HasPrefix(s, "axis"):
		kind = TargetAxis
		num = s[len("axis"):]
	case strings.HasPrefix(s, "button"):
		kind = TargetButton
		num = s[len("button"):]
	default:
		return 0, 0, 0, fmt.Errorf("%w: unknown target %q", ErrConfiguration, spec)
	}

	if kind == TargetButton && signed {
		return 0, 0, 0, fmt.Errorf("%w: polarity on button target %q", ErrConfiguration, spec)
	}

	index, err := strconv.Atoi(num)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: bad index in target %q", ErrConfiguration, spec)
	}
	if index < 0 {
		return 0, 0, 0, fmt.Errorf("%w: negative index in target %q", ErrConfiguration, spec)
	}

	return kind, index, polarity, nil
}

// NewMappingTable builds the key state table for a named built-in mapping
// plus override entries of the form "<key>:<target>". Every entry starts
// released. An override replaces the built-in binding for the same key, but
// a key bound to both an axis and a button across the override list itself
// is a configuration error.
func NewMappingTable(name string, overrides []string) (map[string]*MappingEntry, error) {
	base, ok := builtinMappings[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mapping %q", ErrConfiguration, name)
	}

	entries := make(map[string]*MappingEntry, len(base)+len(overrides))
	for key, spec := range base {
		kind, index, polarity, err := parseTarget(spec)
		if err != nil {
			return nil, err
		}
		entries[key] = &MappingEntry{Key: key, Target: kind, Index: index, Polarity: polarity}
	}

	seen := make(map[string]TargetKind, len(overrides))
	for _, entry := range overrides {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("%w: malformed override %q", ErrConfiguration, entry)
		}
		key := parts[0]
		kind, index, polarity, err := parseTarget(parts[1])
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[key]; dup && prev != kind {
			return nil, fmt.Errorf("%w: key %q bound to both %s and %s", ErrConfiguration, key, prev, kind)
		}
		seen[key] = kind
		entries[key] = &MappingEntry{Key: key, Target: kind, Index: index, Polarity: polarity}
	}

	slog.Debug("Mapping table initialized", "mapping", name, "keys", len(entries))
	return entries, nil
}
