package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/comalice/activechart/internal/primitives"
)

const (
	opOn  = "operational.blinking.on"
	opOff = "operational.blinking.off"
)

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "operational.blinking", computeLCCA(opOn, opOff))
	assert.Equal(t, "operational", computeLCCA(opOn, "operational.paused"))
	assert.Equal(t, "", computeLCCA(opOn, "fault"))
	assert.Equal(t, opOn, computeLCCA(opOn, opOn))

	assert.Equal(t, "operational.blinking", parentPath(opOn))
	assert.Equal(t, "", parentPath("fault"))

	assert.Equal(t, []string{"operational", "operational.blinking", opOn}, getAncestors(opOn))
	assert.Equal(t, []string{"fault"}, getAncestors("fault"))
}

func TestTransitionDomainCases(t *testing.T) {
	for _, tc := range []struct {
		name, source, target, domain string
	}{
		{"siblings", opOn, opOff, "operational.blinking"},
		{"self", opOn, opOn, "operational.blinking"},
		{"top-level self", "fault", "fault", ""},
		{"into descendant", "operational", opOn, ""},
		{"out to ancestor", "operational.blinking", "operational", ""},
		{"across roots", "operational.paused", "fault", ""},
		{"cousins", opOn, "operational.paused", "operational"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.domain, transitionDomain(tc.source, tc.target))
		})
	}
}

func TestExitEntryOrder(t *testing.T) {
	assert.Equal(t, []string{opOn, "operational.blinking"}, getExitStates(opOn, "operational"))
	assert.Equal(t, []string{opOn, "operational.blinking", "operational"}, getExitStates(opOn, ""))
	assert.Empty(t, getExitStates(opOn, opOn))

	assert.Equal(t, []string{"operational.paused"}, getEntryStates("operational", "operational.paused"))
	assert.Equal(t, []string{"operational", "operational.blinking", opOff}, getEntryStates("", opOff))
	assert.Nil(t, getEntryStates("fault", opOff), "target outside the domain")
}

func TestInitialLeafAndPaths(t *testing.T) {
	blinking := primitives.NewStateConfig("blinking", primitives.Compound).
		WithInitial("off").
		AddChild(primitives.NewStateConfig("on", primitives.Atomic)).
		AddChild(primitives.NewStateConfig("off", primitives.Atomic))
	op := primitives.NewStateConfig("operational", primitives.Compound).
		WithInitial("blinking").
		AddChild(blinking).
		AddChild(primitives.NewStateConfig("paused", primitives.Atomic))

	states := make(map[string]*primitives.StateConfig)
	index := make(map[string]string)
	precomputePaths(op, "", states, index)

	assert.Len(t, states, 5)
	assert.Equal(t, opOn, index["on"])
	assert.Equal(t, "operational.paused", index["paused"])

	assert.Equal(t, opOff, resolveInitialLeaf(states, "operational"))
	assert.Equal(t, opOff, resolveInitialLeaf(states, "operational.blinking"))
	assert.Equal(t, "operational.paused", resolveInitialLeaf(states, "operational.paused"))
	assert.Equal(t, "nowhere", resolveInitialLeaf(states, "nowhere"))
}

func TestPrecomputedTransitionsByPriority(t *testing.T) {
	on := primitives.NewStateConfig("on", primitives.Atomic).
		AddTransition("TICK", primitives.TransitionConfig{Target: "off"}).
		AddTransition("TICK", primitives.TransitionConfig{Target: "fault", Priority: 9}).
		AddTransition("TICK", primitives.TransitionConfig{Target: "paused", Priority: 9})

	table := precomputeTransitions(map[string]*primitives.StateConfig{opOn: on})
	var order []string
	for _, tr := range table[opOn]["TICK"] {
		order = append(order, tr.Target)
	}
	assert.Equal(t, []string{"fault", "paused", "off"}, order)
	assert.Equal(t, "off", on.On["TICK"][0].Target, "topology left in declaration order")
}

func TestDefaultBehaviour(t *testing.T) {
	ctx := primitives.NewContext()
	ev := primitives.NewEvent("TICK", nil)

	assert.True(t, defaultGuardEval(ctx, nil, ev))
	assert.True(t, defaultGuardEval(ctx, func(*primitives.Context, primitives.Event) bool { return true }, ev))
	assert.False(t, defaultGuardEval(ctx, primitives.GuardFunc(func(*primitives.Context, primitives.Event) bool { return false }), ev))
	assert.False(t, defaultGuardEval(ctx, "armed", ev), "named guards need an evaluator")

	assert.NoError(t, defaultActionRun(ctx, nil, ev))
	assert.NoError(t, defaultActionRun(ctx, primitives.ActionFunc(func(c *primitives.Context, _ primitives.Event) { c.Incr("n", 1) }), ev))
	assert.Equal(t, 1, ctx.Int("n"))
	assert.ErrorContains(t, defaultActionRun(ctx, "lamp_on", ev), "unregistered action")
}
