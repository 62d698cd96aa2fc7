// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jxi

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// State is the best known snapshot of the heater, built from decoded packets.
// Keys are field names and expanded bitfield names. State is not safe for
// concurrent use.
type State struct {
	values map[string]int
}

// NewState creates an empty device state
func NewState() *State {
	return &State{values: make(map[string]int)}
}

// Get returns the last observed value of name
func (s *State) Get(name string) (int, bool) {
	v, ok := s.values[name]
	return v, ok
}

// set stores value and returns the previous one, if any
func (s *State) set(name string, value int) (old int, had bool) {
	old, had = s.values[name]
	s.values[name] = value
	return old, had
}

// Len returns the number of known fields
func (s *State) Len() int {
	return len(s.values)
}

// Names returns the known field names in sorted order
func (s *State) Names() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Snapshot returns a copy of the state
func (s *State) Snapshot() map[string]int {
	return maps.Clone(s.values)
}

// Format renders the state as one "name = value" line per field
func (s *State) Format() string {
	if len(s.values) == 0 {
		return "(no device state yet)\n"
	}

	var sb strings.Builder
	for _, name := range s.Names() {
		fmt.Fprintf(&sb, "%-24s = %d\n", name, s.values[name])
	}
	return sb.String()
}
