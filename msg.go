package activechart

import "github.com/comalice/activechart/internal/primitives"

// Msg is an opaque event payload whose first two bytes carry its Signal.
type Msg = primitives.Msg

// Signal identifies what a message means to a state machine.
type Signal = primitives.Signal

// SigNone is the signal of payloads too short to carry one.
const SigNone = primitives.SigNone

// NewMsg allocates an immutable payload carrying sig and a copy of data.
func NewMsg(sig Signal, data []byte) Msg {
	return primitives.NewMsg(sig, data)
}

// Topology describes a hierarchical state machine: states, transitions and
// the signal each event name is bound to.
type Topology = primitives.MachineConfig

// Types used to build topologies in code.
type (
	TopologyBuilder = primitives.MachineBuilder
	StateBuilder    = primitives.StateBuilder
	Transition      = primitives.TransitionConfig
	ActionRef       = primitives.ActionRef
	ActionFunc      = primitives.ActionFunc
	GuardFunc       = primitives.GuardFunc
	Event           = primitives.Event
	Context         = primitives.Context
)

// NewTopology starts building a topology with the given ID and initial
// state.
func NewTopology(id, initial string) *TopologyBuilder {
	return primitives.NewMachineBuilder(id, initial)
}
