package primitives

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ActionFunc is a behaviour run on entry, exit or transition.
type ActionFunc func(ctx *Context, evt Event)

// GuardFunc decides whether a transition may fire.
type GuardFunc func(ctx *Context, evt Event) bool

// ActionRef references an action: an ActionFunc, a plain
// func(*Context, Event), or the name of an action registered with the
// machine's ActionRunner.
type ActionRef any

// GuardRef references a guard the same way ActionRef references an action.
type GuardRef any

// TransitionConfig is one transition triggered by an event.
// An empty Target makes it an internal transition: actions only, no
// exit or entry.
type TransitionConfig struct {
	Event    string      `json:"event,omitempty" yaml:"event,omitempty"`
	Guard    GuardRef    `json:"guard,omitempty" yaml:"guard,omitempty"`
	Target   string      `json:"target,omitempty" yaml:"target,omitempty"`
	Actions  []ActionRef `json:"actions,omitempty" yaml:"actions,omitempty"`
	Priority int         `json:"priority,omitempty" yaml:"priority,omitempty"` // higher is tried first
}

// Internal reports whether the transition stays in its source state.
func (t *TransitionConfig) Internal() bool {
	return t.Target == ""
}

// Validate checks priority and target syntax. Targets are state IDs, or a
// dot-separated path of IDs.
func (t *TransitionConfig) Validate() error {
	if t.Priority < 0 {
		return errors.New("priority must be non-negative")
	}
	if t.Internal() {
		return nil
	}
	for i, seg := range strings.Split(t.Target, ".") {
		if seg == "" {
			return fmt.Errorf("invalid target path %q: empty segment at index %d", t.Target, i)
		}
		for _, r := range seg {
			if !validIDRune(r) {
				return fmt.Errorf("invalid target path %q: invalid character %q", t.Target, r)
			}
		}
	}
	return nil
}

func validIDRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

// SortTransitions orders transitions by Priority, highest first. Equal
// priorities keep declaration order.
func SortTransitions(transitions []TransitionConfig) {
	sort.SliceStable(transitions, func(i, j int) bool {
		return transitions[i].Priority > transitions[j].Priority
	})
}
