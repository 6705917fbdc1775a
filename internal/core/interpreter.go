package core

import (
	"fmt"
	"strings"

	"github.com/comalice/activechart/internal/primitives"
)

// States are addressed by full dotted paths from a top-level state, e.g.
// "operational.blinking.on". The helpers below work on those paths.

// computeLCCA returns the longest common ancestor path of two paths.
func computeLCCA(sourcePath, targetPath string) string {
	source := strings.Split(sourcePath, ".")
	target := strings.Split(targetPath, ".")

	minLen := len(source)
	if len(target) < minLen {
		minLen = len(target)
	}

	lcaIndex := 0
	for lcaIndex < minLen && source[lcaIndex] == target[lcaIndex] {
		lcaIndex++
	}

	if lcaIndex == 0 {
		return "" // No common ancestor
	}

	return strings.Join(source[:lcaIndex], ".")
}

// parentPath returns the enclosing state's path, "" for a top-level state.
func parentPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return ""
}

// transitionDomain returns the state a transition from source to target
// stays inside. Everything below it is exited and re-entered. A transition
// to or from an ancestor leaves that ancestor too.
func transitionDomain(sourcePath, targetPath string) string {
	lcca := computeLCCA(sourcePath, targetPath)
	if lcca == sourcePath || lcca == targetPath {
		return parentPath(lcca)
	}
	return lcca
}

// getAncestors returns all ancestor paths of a leaf path (including self),
// outermost first.
func getAncestors(leafPath string) []string {
	segments := strings.Split(leafPath, ".")
	ancestors := make([]string, len(segments))

	current := ""
	for i, seg := range segments {
		if current != "" {
			current += "."
		}
		current += seg
		ancestors[i] = current
	}
	return ancestors
}

// below returns the paths on the way from domain (exclusive) down to path
// (inclusive), outer first. An empty domain is the implicit root.
func below(domain, path string) []string {
	if domain != "" && !strings.HasPrefix(path, domain+".") {
		return nil
	}
	all := getAncestors(path)
	skip := 0
	if domain != "" {
		skip = strings.Count(domain, ".") + 1
	}
	return all[skip:]
}

// getExitStates returns the states to exit leaving the active leaf for
// domain, innermost first.
func getExitStates(leafPath, domain string) []string {
	paths := below(domain, leafPath)
	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

// getEntryStates returns the states to enter from domain down to target,
// outer first.
func getEntryStates(domain, targetPath string) []string {
	return below(domain, targetPath)
}

// resolveInitialLeaf follows initial children down to an atomic state.
func resolveInitialLeaf(states map[string]*primitives.StateConfig, path string) string {
	for {
		state, ok := states[path]
		if !ok || state.Type != primitives.Compound || state.Initial == "" {
			return path
		}
		path += "." + state.Initial
	}
}

// defaultGuardEval handles nil and function guards. Anything else needs a
// GuardEvaluator and is treated as false.
func defaultGuardEval(ctx *primitives.Context, guard primitives.GuardRef, event primitives.Event) bool {
	switch g := guard.(type) {
	case nil:
		return true
	case primitives.GuardFunc:
		return g(ctx, event)
	case func(*primitives.Context, primitives.Event) bool:
		return g(ctx, event)
	}
	return false
}

// defaultActionRun handles nil and function actions.
func defaultActionRun(ctx *primitives.Context, action primitives.ActionRef, event primitives.Event) error {
	switch a := action.(type) {
	case nil:
		return nil
	case primitives.ActionFunc:
		a(ctx, event)
		return nil
	case func(*primitives.Context, primitives.Event):
		a(ctx, event)
		return nil
	}
	return fmt.Errorf("unregistered action: %v", action)
}
