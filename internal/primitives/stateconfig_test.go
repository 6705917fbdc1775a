package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lamp() *StateConfig {
	return NewStateConfig("lamp", Compound).
		WithInitial("off").
		AddChild(NewStateConfig("off", Atomic).AddTransition("TOGGLE", TransitionConfig{Target: "on"})).
		AddChild(NewStateConfig("on", Atomic).AddTransition("TOGGLE", TransitionConfig{Target: "off"}))
}

func TestStateConfigAcceptsLamp(t *testing.T) {
	require.NoError(t, lamp().Validate())
	require.NoError(t, NewStateConfig("idle-1_a", Atomic).Validate())
}

func TestStateConfigRejects(t *testing.T) {
	for _, tc := range []struct {
		name  string
		state *StateConfig
		msg   string
	}{
		{"no id", NewStateConfig("", Atomic), "state ID is required"},
		{"dotted id", NewStateConfig("lamp.on", Atomic), "invalid character"},
		{"spaced id", NewStateConfig("lamp on", Atomic), "invalid character"},
		{"unknown type", NewStateConfig("lamp", "parallel"), "invalid state type"},
		{"leaf with initial", NewStateConfig("on", Atomic).WithInitial("dim"), "cannot have Initial"},
		{"leaf with children", NewStateConfig("on", Atomic).AddChild(NewStateConfig("dim", Atomic)), "cannot have Children"},
		{"childless compound", NewStateConfig("lamp", Compound).WithInitial("off"), "requires Children"},
		{"compound without initial", NewStateConfig("lamp", Compound).AddChild(NewStateConfig("off", Atomic)), "requires Initial child"},
		{"initial not a child", lamp().WithInitial("dim"), `initial child "dim" not found`},
		{"blank event", NewStateConfig("on", Atomic).AddTransition(" ", TransitionConfig{}), "empty event name"},
		{"bad transition", NewStateConfig("on", Atomic).AddTransition("TOGGLE", TransitionConfig{Priority: -2}), "priority must be non-negative"},
		{"bad grandchild", NewStateConfig("lamp", Compound).WithInitial("off").
			AddChild(NewStateConfig("off", Atomic).WithInitial("x")), "cannot have Initial"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.state.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestStateConfigFlatten(t *testing.T) {
	top := NewStateConfig("operational", Compound).
		WithInitial("blinking").
		AddChild(NewStateConfig("blinking", Compound).
			WithInitial("on").
			AddChild(NewStateConfig("on", Atomic)).
			AddChild(NewStateConfig("off", Atomic))).
		AddChild(NewStateConfig("paused", Atomic))

	flat := top.Flatten()
	assert.Len(t, flat, 5)
	for _, id := range []string{"operational", "blinking", "on", "off", "paused"} {
		require.Contains(t, flat, id)
		assert.Equal(t, id, flat[id].ID)
	}
	assert.Same(t, top.Children[0].Children[1], flat["off"])
}

func TestStateConfigBuildersAppend(t *testing.T) {
	s := NewStateConfig("on", Atomic).
		AddTransition("TICK", TransitionConfig{Target: "off"}).
		AddTransition("TICK", TransitionConfig{Target: "on", Event: "ALIAS"}).
		AddEntry("lamp_on").
		AddEntry("count").
		AddExit("lamp_off")

	require.Len(t, s.On["TICK"], 2)
	assert.Equal(t, "TICK", s.On["TICK"][0].Event, "empty Event takes the map key")
	assert.Equal(t, "ALIAS", s.On["TICK"][1].Event, "explicit Event is kept")
	assert.Equal(t, []ActionRef{"lamp_on", "count"}, s.Entry)
	assert.Equal(t, []ActionRef{"lamp_off"}, s.Exit)

	kids := []*StateConfig{NewStateConfig("a", Atomic)}
	assert.Equal(t, kids, NewStateConfig("p", Compound).AddChild(NewStateConfig("z", Atomic)).WithChildren(kids).Children)
}
