package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/activechart"
)

const lampYAML = `
id: lamp
initial: off
signals:
  TICK: 16
  BUTTON: 17
states:
  off:
    type: atomic
    on:
      BUTTON:
        - target: on
  on:
    type: compound
    initial: dim
    entry: [lamp_on]
    exit: [lamp_off]
    on:
      BUTTON:
        - target: off
      TICK:
        - guard: "ticks < 3"
          actions: [count]
    children:
      - id: dim
        type: atomic
        on:
          TICK:
            - target: bright
              priority: 1
      - id: bright
        type: atomic
`

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology([]byte(lampYAML))
	require.NoError(t, err)

	assert.Equal(t, "lamp", topo.ID)
	assert.Equal(t, activechart.Signal(17), topo.Signals["BUTTON"])
	require.Contains(t, topo.States, "dim", "nested states are indexed")
	assert.Contains(t, topo.States, "bright")

	on := topo.States["on"]
	assert.Equal(t, []activechart.ActionRef{"lamp_on"}, on.Entry)
	require.Len(t, on.On["TICK"], 1)
	assert.True(t, on.On["TICK"][0].Internal())
	assert.Equal(t, "ticks < 3", on.On["TICK"][0].Guard)
	assert.Equal(t, 1, topo.States["dim"].On["TICK"][0].Priority)
}

func TestParseTopologyErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"not yaml", "id: [", "decode yaml"},
		{"undeclared signal", "id: x\ninitial: a\nstates:\n  a:\n    type: atomic\n    on:\n      GO: [{target: a}]\n", "undeclared signal"},
		{"bad target", "id: x\ninitial: a\nsignals: {GO: 1}\nstates:\n  a:\n    type: atomic\n    on:\n      GO: [{target: b}]\n", "invalid transition target"},
		{"missing initial", "id: x\nstates:\n  a: {type: atomic}\n", "initial state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTopology([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadTopologyRunsOnEngine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lamp.yaml", lampYAML)
	topo, err := LoadTopology(path)
	require.NoError(t, err)

	_, err = activechart.New(topo, "lamp")
	assert.NoError(t, err)
}
