package primitives

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// Fingerprint returns a short, deterministic digest of a topology's shape:
// states, hierarchy, initial states, signals and transition targets.
// Behaviour references are hashed by name when they are names and ignored
// when they are functions, so a snapshot taken from one build can be checked
// against the topology of another.
func Fingerprint(config *MachineConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "machine %s initial %s\n", config.ID, config.Initial)

	names := make([]string, 0, len(config.Signals))
	for name := range config.Signals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "signal %s=%d\n", name, config.Signals[name])
	}

	ids := make([]string, 0, len(config.States))
	for id := range config.States {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := config.States[id]
		fmt.Fprintf(h, "state %s %s %s\n", s.ID, s.Type, s.Initial)
		for _, child := range s.Children {
			fmt.Fprintf(h, " child %s\n", child.ID)
		}
		events := make([]string, 0, len(s.On))
		for event := range s.On {
			events = append(events, event)
		}
		sort.Strings(events)
		for _, event := range events {
			for _, t := range s.On[event] {
				fmt.Fprintf(h, " on %s -> %s p%d", event, t.Target, t.Priority)
				if g, ok := t.Guard.(string); ok {
					fmt.Fprintf(h, " [%s]", g)
				}
				for _, a := range t.Actions {
					if name, ok := a.(string); ok {
						fmt.Fprintf(h, " /%s", name)
					}
				}
				fmt.Fprintln(h)
			}
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}
