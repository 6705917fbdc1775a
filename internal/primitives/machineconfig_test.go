package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blinkyTopology lists only its top-level states, as a decoded file would.
func blinkyTopology() *MachineConfig {
	return &MachineConfig{
		ID:      "blinky",
		Initial: "operational",
		Signals: map[string]Signal{"TICK": 16, "BUTTON": 17},
		States: map[string]*StateConfig{
			"operational": NewStateConfig("", Compound).
				WithInitial("off").
				AddTransition("BUTTON", TransitionConfig{Target: "fault"}).
				AddChild(NewStateConfig("off", Atomic).AddTransition("TICK", TransitionConfig{Target: "on"})).
				AddChild(NewStateConfig("on", Atomic).AddTransition("TICK", TransitionConfig{Target: "operational.off"})),
			"fault": NewStateConfig("fault", Atomic),
		},
	}
}

func TestMachineConfigIndexFlattens(t *testing.T) {
	m := blinkyTopology()
	require.NoError(t, m.Index())
	require.NoError(t, m.Validate())

	assert.Len(t, m.States, 4)
	assert.Equal(t, "operational", m.States["operational"].ID, "empty ID filled from key")
	assert.Same(t, m.States["operational"].Children[1], m.States["on"])

	assert.Equal(t, map[string]string{"off": "operational", "on": "operational"}, m.Parents())

	var roots []string
	for _, r := range m.Roots() {
		roots = append(roots, r.ID)
	}
	assert.Equal(t, []string{"fault", "operational"}, roots)

	assert.Equal(t, map[Signal]string{16: "TICK", 17: "BUTTON"}, m.SignalNames())

	require.NoError(t, m.Index(), "indexing twice is harmless")
	assert.Len(t, m.States, 4)
}

func TestMachineConfigIndexRejects(t *testing.T) {
	for _, tc := range []struct {
		name   string
		states map[string]*StateConfig
		msg    string
	}{
		{"nil state", map[string]*StateConfig{"fault": nil}, `state "fault" is nil`},
		{"key mismatch", map[string]*StateConfig{"fault": NewStateConfig("error", Atomic)}, `keyed "fault" has ID "error"`},
		{"id reused", map[string]*StateConfig{
			"red":   NewStateConfig("red", Compound).WithInitial("on").AddChild(NewStateConfig("on", Atomic)),
			"green": NewStateConfig("green", Compound).WithInitial("on").AddChild(NewStateConfig("on", Atomic)),
		}, `duplicate state ID "on"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := &MachineConfig{States: tc.states}
			err := m.Index()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	assert.NoError(t, (&MachineConfig{}).Index())
}

func TestMachineConfigValidateRejects(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(m *MachineConfig)
		msg    string
	}{
		{"no id", func(m *MachineConfig) { m.ID = "" }, "machine ID is required"},
		{"no initial", func(m *MachineConfig) { m.Initial = "" }, "initial state ID is required"},
		{"no states", func(m *MachineConfig) { m.States = nil }, "states map is required"},
		{"unknown initial", func(m *MachineConfig) { m.Initial = "standby" }, `initial state "standby" not found`},
		{"blank signal", func(m *MachineConfig) { m.Signals[" "] = 30 }, "signal with empty name"},
		{"reserved signal", func(m *MachineConfig) { m.Signals["NONE"] = SigNone }, "reserved value 0"},
		{"shared signal", func(m *MachineConfig) { m.Signals["TOCK"] = 16 }, "share value 16"},
		{"bad state", func(m *MachineConfig) { m.States["fault"].Initial = "x" }, `state "fault" validation failed`},
		{"undeclared signal", func(m *MachineConfig) {
			m.States["on"].AddTransition("HOLD", TransitionConfig{Target: "off"})
		}, `handles undeclared signal "HOLD"`},
		{"missing target", func(m *MachineConfig) {
			m.States["off"].AddTransition("BUTTON", TransitionConfig{Target: "standby"})
		}, `invalid transition target "standby"`},
		{"unindexed child", func(m *MachineConfig) { delete(m.States, "on") }, `child "on" of "operational" is not indexed`},
		{"two parents", func(m *MachineConfig) {
			m.States["fault"].Type = Compound
			m.States["fault"].WithInitial("off").AddChild(m.States["off"])
		}, "two parents"},
		{"loop below the roots", func(m *MachineConfig) {
			a := NewStateConfig("a", Compound).WithInitial("b")
			b := NewStateConfig("b", Compound).WithInitial("a").AddChild(a)
			a.AddChild(b)
			m.States["a"], m.States["b"] = a, b
		}, "orphaned state"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := blinkyTopology()
			require.NoError(t, m.Index())
			tc.mutate(m)
			err := m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestMachineConfigInternalTransition(t *testing.T) {
	m := blinkyTopology()
	require.NoError(t, m.Index())
	m.States["on"].AddTransition("BUTTON", TransitionConfig{Actions: []ActionRef{"count"}})
	assert.NoError(t, m.Validate())
}

func TestMachineConfigFindState(t *testing.T) {
	m := blinkyTopology()
	require.NoError(t, m.Index())

	for _, path := range []string{"on", "operational.on", "fault"} {
		s, err := m.FindState(path)
		require.NoError(t, err, path)
		assert.Contains(t, []string{"on", "fault"}, s.ID)
	}

	_, err := m.FindState("operational.fault")
	assert.ErrorContains(t, err, `child "fault" not found in "operational"`)
	_, err = m.FindState("standby.on")
	assert.ErrorContains(t, err, `state "standby" not found`)
	_, err = m.FindState("")
	assert.ErrorContains(t, err, "path cannot be empty")
}
