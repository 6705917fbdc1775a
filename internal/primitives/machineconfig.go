package primitives

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MachineConfig is a complete state machine topology: the states, the
// initial state, and the signal numbering the machine understands.
//
// States is a flat index of every state by ID, nested ones included; the
// hierarchy itself lives in StateConfig.Children. Topologies decoded from a
// file usually list only the top-level states, so call Index before
// Validate.
type MachineConfig struct {
	ID      string                  `json:"id" yaml:"id"`
	Initial string                  `json:"initial" yaml:"initial"`
	Signals map[string]Signal       `json:"signals" yaml:"signals"`
	States  map[string]*StateConfig `json:"states" yaml:"states"`
}

// Index adds every nested state to States. Two distinct states sharing an
// ID is an error.
func (m *MachineConfig) Index() error {
	if m.States == nil {
		return nil
	}
	all := make(map[string]*StateConfig, len(m.States))
	for key, s := range m.States {
		if s == nil {
			return fmt.Errorf("state %q is nil", key)
		}
		if s.ID == "" {
			s.ID = key
		}
		if s.ID != key {
			return fmt.Errorf("state keyed %q has ID %q", key, s.ID)
		}
		for id, nested := range s.Flatten() {
			if prev, ok := all[id]; ok && prev != nested {
				return fmt.Errorf("duplicate state ID %q", id)
			}
			all[id] = nested
		}
	}
	m.States = all
	return nil
}

// Validate checks the whole topology:
//   - ID and Initial present, Initial exists
//   - signals are named, non-zero and unique
//   - every state validates and every child is indexed under one parent
//   - every transition event is a declared signal and every target exists
//   - no state is unreachable from the top-level states
func (m *MachineConfig) Validate() error {
	if m.ID == "" {
		return errors.New("machine ID is required")
	}
	if m.Initial == "" {
		return errors.New("initial state ID is required")
	}
	if len(m.States) == 0 {
		return errors.New("states map is required and cannot be empty")
	}
	if _, err := m.FindState(m.Initial); err != nil {
		return fmt.Errorf("initial state %q not found in states: %w", m.Initial, err)
	}

	seen := make(map[Signal]string, len(m.Signals))
	for name, sig := range m.Signals {
		if strings.TrimSpace(name) == "" {
			return errors.New("signal with empty name")
		}
		if sig == SigNone {
			return fmt.Errorf("signal %q uses reserved value 0", name)
		}
		if other, dup := seen[sig]; dup {
			return fmt.Errorf("signals %q and %q share value %d", other, name, sig)
		}
		seen[sig] = name
	}

	parents := make(map[string]string)
	for sid, state := range m.States {
		if err := state.Validate(); err != nil {
			return fmt.Errorf("state %q validation failed: %w", sid, err)
		}
		for _, child := range state.Children {
			if m.States[child.ID] != child {
				return fmt.Errorf("child %q of %q is not indexed in states", child.ID, sid)
			}
			if p, ok := parents[child.ID]; ok && p != sid {
				return fmt.Errorf("state %q has two parents: %q and %q", child.ID, p, sid)
			}
			parents[child.ID] = sid
		}
	}

	for sid, state := range m.States {
		for event, transitions := range state.On {
			if _, ok := m.Signals[event]; !ok {
				return fmt.Errorf("state %q handles undeclared signal %q", sid, event)
			}
			for i, trans := range transitions {
				if trans.Internal() {
					continue
				}
				if _, err := m.FindState(trans.Target); err != nil {
					return fmt.Errorf("invalid transition target %q (state %q, event %q, transition %d)", trans.Target, sid, event, i)
				}
			}
		}
	}

	visited := make(map[string]bool, len(m.States))
	for _, root := range m.Roots() {
		m.markReachable(root, visited)
	}
	for sid := range m.States {
		if !visited[sid] {
			return fmt.Errorf("orphaned state %q (not reachable from a top-level state)", sid)
		}
	}
	return nil
}

func (m *MachineConfig) markReachable(state *StateConfig, visited map[string]bool) {
	if visited[state.ID] {
		return
	}
	visited[state.ID] = true
	for _, child := range state.Children {
		m.markReachable(child, visited)
	}
}

// Roots returns the top-level states sorted by ID.
func (m *MachineConfig) Roots() []*StateConfig {
	parents := m.Parents()
	var roots []*StateConfig
	for id, s := range m.States {
		if _, nested := parents[id]; !nested {
			roots = append(roots, s)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	return roots
}

// Parents maps each nested state ID to its parent's ID.
func (m *MachineConfig) Parents() map[string]string {
	parents := make(map[string]string)
	for id, s := range m.States {
		for _, child := range s.Children {
			parents[child.ID] = id
		}
	}
	return parents
}

// SignalNames is the reverse of Signals.
func (m *MachineConfig) SignalNames() map[Signal]string {
	names := make(map[Signal]string, len(m.Signals))
	for name, sig := range m.Signals {
		names[sig] = name
	}
	return names
}

// FindState resolves a state ID, or a dot-separated path of IDs such as
// "operational.blinking.on".
func (m *MachineConfig) FindState(path string) (*StateConfig, error) {
	if path == "" {
		return nil, errors.New("path cannot be empty")
	}
	segments := strings.Split(path, ".")
	current, ok := m.States[segments[0]]
	if !ok {
		return nil, fmt.Errorf("state %q not found", segments[0])
	}
	for i := 1; i < len(segments); i++ {
		var next *StateConfig
		for _, child := range current.Children {
			if child.ID == segments[i] {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("child %q not found in %q", segments[i], strings.Join(segments[:i], "."))
		}
		current = next
	}
	return current, nil
}
