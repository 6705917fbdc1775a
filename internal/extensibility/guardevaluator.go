package extensibility

import (
	"strconv"
	"strings"
	"sync"

	"github.com/comalice/activechart/internal/core"
	"github.com/comalice/activechart/internal/primitives"
)

// DefaultGuardEvaluator evaluates function guards and guards registered by
// name. Names that are not registered go to Fallback, if any; otherwise
// they fail closed.
type DefaultGuardEvaluator struct {
	Fallback core.GuardEvaluator

	mu     sync.RWMutex
	guards map[string]primitives.GuardFunc
}

// NewGuardEvaluator returns an evaluator that falls back to expressions.
func NewGuardEvaluator() *DefaultGuardEvaluator {
	return &DefaultGuardEvaluator{
		Fallback: NewExpressionGuardEvaluator(),
		guards:   make(map[string]primitives.GuardFunc),
	}
}

// Register binds name to fn.
func (e *DefaultGuardEvaluator) Register(name string, fn primitives.GuardFunc) *DefaultGuardEvaluator {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.guards == nil {
		e.guards = make(map[string]primitives.GuardFunc)
	}
	e.guards[name] = fn
	return e
}

// Eval evaluates a guard condition.
func (e *DefaultGuardEvaluator) Eval(ctx *primitives.Context, guard primitives.GuardRef, event primitives.Event) bool {
	switch g := guard.(type) {
	case nil:
		return true
	case primitives.GuardFunc:
		return g(ctx, event)
	case func(*primitives.Context, primitives.Event) bool:
		return g(ctx, event)
	case string:
		e.mu.RLock()
		fn, ok := e.guards[g]
		e.mu.RUnlock()
		if ok {
			return fn(ctx, event)
		}
		if e.Fallback != nil {
			return e.Fallback.Eval(ctx, guard, event)
		}
		return false // unregistered guards fail closed
	default:
		return false
	}
}

// ExpressionGuardEvaluator evaluates simple string expressions against the
// context, such as "presses < 3" or "armed == true". Numbers compare
// numerically whatever numeric type the context holds.
type ExpressionGuardEvaluator struct{}

// NewExpressionGuardEvaluator creates a new ExpressionGuardEvaluator.
func NewExpressionGuardEvaluator() *ExpressionGuardEvaluator {
	return &ExpressionGuardEvaluator{}
}

// Eval parses "key op value" and evaluates it. Malformed expressions and
// missing keys are false.
func (e *ExpressionGuardEvaluator) Eval(ctx *primitives.Context, guard primitives.GuardRef, event primitives.Event) bool {
	if guard == nil {
		return true
	}
	str, ok := guard.(string)
	if !ok {
		return false
	}
	parts := strings.Fields(str)
	if len(parts) != 3 {
		return false
	}
	key, op, valStr := parts[0], parts[1], parts[2]

	v, hasKey := ctx.Get(key)
	if !hasKey {
		return false
	}

	switch op {
	case "==":
		return equal(v, valStr)
	case "!=":
		return !equal(v, valStr)
	case "<", "<=", ">", ">=":
		lhs, ok := toFloat(v)
		if !ok {
			return false
		}
		rhs, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return false
		}
		switch op {
		case "<":
			return lhs < rhs
		case "<=":
			return lhs <= rhs
		case ">":
			return lhs > rhs
		default:
			return lhs >= rhs
		}
	default:
		return false
	}
}

func equal(v any, valStr string) bool {
	switch valStr {
	case "true":
		return v == true
	case "false":
		return v == false
	case "nil":
		return v == nil
	}
	if f, ok := toFloat(v); ok {
		rhs, err := strconv.ParseFloat(valStr, 64)
		return err == nil && f == rhs
	}
	if s, ok := v.(string); ok {
		return s == valStr
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
