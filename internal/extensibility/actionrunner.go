// Package extensibility resolves the behaviour a topology references by
// name, so topologies loaded from YAML can carry entry, exit and transition
// actions and guards.
package extensibility

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/comalice/activechart/internal/core"
	"github.com/comalice/activechart/internal/primitives"
)

// ErrUnknownAction is returned for action names nothing registered.
var ErrUnknownAction = errors.New("action not registered")

// DefaultActionRunner runs function actions and actions registered by
// name. Register everything before the machines using it start.
type DefaultActionRunner struct {
	mu      sync.RWMutex
	actions map[string]primitives.ActionFunc
}

// NewActionRunner returns an empty runner.
func NewActionRunner() *DefaultActionRunner {
	return &DefaultActionRunner{actions: make(map[string]primitives.ActionFunc)}
}

// Register binds name to fn, replacing any earlier binding.
func (r *DefaultActionRunner) Register(name string, fn primitives.ActionFunc) *DefaultActionRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actions == nil {
		r.actions = make(map[string]primitives.ActionFunc)
	}
	r.actions[name] = fn
	return r
}

// Has reports whether name is registered.
func (r *DefaultActionRunner) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[name]
	return ok
}

// Run executes the given action reference.
func (r *DefaultActionRunner) Run(ctx *primitives.Context, action primitives.ActionRef, event primitives.Event) error {
	switch a := action.(type) {
	case nil:
		return nil
	case primitives.ActionFunc:
		a(ctx, event)
		return nil
	case func(*primitives.Context, primitives.Event):
		a(ctx, event)
		return nil
	case string:
		r.mu.RLock()
		fn, ok := r.actions[a]
		r.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAction, a)
		}
		fn(ctx, event)
		return nil
	default:
		return fmt.Errorf("unsupported action reference %T", action)
	}
}

// LoggingActionRunner wraps an ActionRunner and logs every execution at
// debug level.
type LoggingActionRunner struct {
	inner  core.ActionRunner
	logger *slog.Logger
}

// NewLoggingActionRunner creates a new LoggingActionRunner wrapping the given inner runner.
func NewLoggingActionRunner(inner core.ActionRunner, logger *slog.Logger) *LoggingActionRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingActionRunner{inner: inner, logger: logger}
}

// Run logs after delegating to the inner runner.
func (r *LoggingActionRunner) Run(ctx *primitives.Context, action primitives.ActionRef, event primitives.Event) error {
	start := time.Now()
	err := r.inner.Run(ctx, action, event)
	if err != nil {
		r.logger.Warn("action failed", "action", actionName(action), "event", event.Type, "err", err)
		return err
	}
	r.logger.Debug("action", "action", actionName(action), "event", event.Type, "took", time.Since(start))
	return nil
}

func actionName(action primitives.ActionRef) string {
	if s, ok := action.(string); ok {
		return s
	}
	return fmt.Sprintf("%T", action)
}
