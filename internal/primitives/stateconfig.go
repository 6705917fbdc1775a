package primitives

import (
	"errors"
	"fmt"
	"strings"
)

// StateType is the kind of a state.
type StateType string

const (
	Atomic   StateType = "atomic"
	Compound StateType = "compound"
)

// StateConfig is one state of a topology. Compound states nest children and
// name the child entered by default.
type StateConfig struct {
	ID       string                        `json:"id" yaml:"id"`
	Type     StateType                     `json:"type" yaml:"type"`
	Initial  string                        `json:"initial,omitempty" yaml:"initial,omitempty"`
	On       map[string][]TransitionConfig `json:"on,omitempty" yaml:"on,omitempty"`
	Entry    []ActionRef                   `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit     []ActionRef                   `json:"exit,omitempty" yaml:"exit,omitempty"`
	Children []*StateConfig                `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewStateConfig creates a StateConfig.
func NewStateConfig(id string, typ StateType) *StateConfig {
	return &StateConfig{ID: id, Type: typ}
}

// WithInitial sets the default child.
func (s *StateConfig) WithInitial(initial string) *StateConfig {
	s.Initial = initial
	return s
}

// AddTransition appends a transition for event.
func (s *StateConfig) AddTransition(event string, trans TransitionConfig) *StateConfig {
	if s.On == nil {
		s.On = make(map[string][]TransitionConfig)
	}
	if trans.Event == "" {
		trans.Event = event
	}
	s.On[event] = append(s.On[event], trans)
	return s
}

// AddEntry appends an entry action.
func (s *StateConfig) AddEntry(action ActionRef) *StateConfig {
	s.Entry = append(s.Entry, action)
	return s
}

// AddExit appends an exit action.
func (s *StateConfig) AddExit(action ActionRef) *StateConfig {
	s.Exit = append(s.Exit, action)
	return s
}

// WithChildren replaces the children.
func (s *StateConfig) WithChildren(children []*StateConfig) *StateConfig {
	s.Children = children
	return s
}

// AddChild appends a child.
func (s *StateConfig) AddChild(child *StateConfig) *StateConfig {
	s.Children = append(s.Children, child)
	return s
}

// Flatten indexes this state and all its descendants by ID.
func (s *StateConfig) Flatten() map[string]*StateConfig {
	m := make(map[string]*StateConfig)
	s.flatten(m)
	return m
}

func (s *StateConfig) flatten(m map[string]*StateConfig) {
	if _, ok := m[s.ID]; ok {
		return
	}
	m[s.ID] = s
	for _, child := range s.Children {
		child.flatten(m)
	}
}

// Validate checks the state and its subtree. A subtree that loops back on
// itself is checked once per state.
func (s *StateConfig) Validate() error {
	return s.validate(make(map[*StateConfig]bool))
}

func (s *StateConfig) validate(seen map[*StateConfig]bool) error {
	if seen[s] {
		return nil
	}
	seen[s] = true
	if s.ID == "" {
		return errors.New("state ID is required")
	}
	for _, r := range s.ID {
		if !validIDRune(r) {
			return fmt.Errorf("state ID %q: invalid character %q", s.ID, r)
		}
	}

	switch s.Type {
	case Atomic:
		if s.Initial != "" {
			return fmt.Errorf("atomic state %s cannot have Initial", s.ID)
		}
		if len(s.Children) > 0 {
			return fmt.Errorf("atomic state %s cannot have Children", s.ID)
		}
	case Compound:
		if len(s.Children) == 0 {
			return fmt.Errorf("compound state %s requires Children", s.ID)
		}
		if s.Initial == "" {
			return fmt.Errorf("compound state %s requires Initial child", s.ID)
		}
		found := false
		for _, child := range s.Children {
			if child == nil {
				return fmt.Errorf("compound state %s has a nil child", s.ID)
			}
			if child.ID == s.Initial {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("initial child %q not found in children of %s", s.Initial, s.ID)
		}
	default:
		return fmt.Errorf("invalid state type %q for state %s", s.Type, s.ID)
	}

	for event, transitions := range s.On {
		if strings.TrimSpace(event) == "" {
			return fmt.Errorf("empty event name in On map for state %s", s.ID)
		}
		for i := range transitions {
			if err := transitions[i].Validate(); err != nil {
				return fmt.Errorf("state %s, event %s, transition %d: %w", s.ID, event, i, err)
			}
		}
	}

	for i, child := range s.Children {
		if err := child.validate(seen); err != nil {
			return fmt.Errorf("child %d (%s) of %s failed validation: %w", i, child.ID, s.ID, err)
		}
	}
	return nil
}
