package core

import (
	"github.com/comalice/activechart/internal/primitives"
)

// precomputePaths walks the hierarchy below state and records, for every
// state, its full path and the path each bare ID resolves to.
func precomputePaths(state *primitives.StateConfig, prefix string, stateCache map[string]*primitives.StateConfig, pathIndex map[string]string) {
	fullpath := prefix
	if prefix != "" {
		fullpath += "."
	}
	fullpath += state.ID

	stateCache[fullpath] = state
	pathIndex[state.ID] = fullpath

	for _, child := range state.Children {
		precomputePaths(child, fullpath, stateCache, pathIndex)
	}
}

// precomputeTransitions copies every state's transitions and sorts them
// by priority so Dispatch never sorts.
func precomputeTransitions(stateCache map[string]*primitives.StateConfig) map[string]map[string][]primitives.TransitionConfig {
	table := make(map[string]map[string][]primitives.TransitionConfig, len(stateCache))
	for path, state := range stateCache {
		if len(state.On) == 0 {
			continue
		}
		byEvent := make(map[string][]primitives.TransitionConfig, len(state.On))
		for event, transitions := range state.On {
			sorted := append([]primitives.TransitionConfig(nil), transitions...)
			primitives.SortTransitions(sorted)
			byEvent[event] = sorted
		}
		table[path] = byEvent
	}
	return table
}
