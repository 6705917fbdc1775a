package primitives

import "fmt"

// MachineBuilder builds a MachineConfig fluently:
//
//	b := NewMachineBuilder("blinky", "off").
//		Signal("TICK", 16)
//	b.State("off").Transition("TICK", "on")
//	b.State("on").Transition("TICK", "off")
//	cfg, err := b.Build()
type MachineBuilder struct {
	config *MachineConfig
	err    error
}

// NewMachineBuilder starts a topology with the given ID and initial state.
func NewMachineBuilder(id, initial string) *MachineBuilder {
	return &MachineBuilder{
		config: &MachineConfig{
			ID:      id,
			Initial: initial,
			Signals: make(map[string]Signal),
			States:  make(map[string]*StateConfig),
		},
	}
}

// Signal declares an event name and its numeric signal.
func (b *MachineBuilder) Signal(name string, sig Signal) *MachineBuilder {
	b.config.Signals[name] = sig
	return b
}

func (b *MachineBuilder) add(s *StateConfig) {
	if _, dup := b.config.States[s.ID]; dup && b.err == nil {
		b.err = fmt.Errorf("duplicate state ID %q", s.ID)
	}
	b.config.States[s.ID] = s
}

// State adds a top-level atomic state.
func (b *MachineBuilder) State(id string) *StateBuilder {
	s := NewStateConfig(id, Atomic)
	b.add(s)
	return &StateBuilder{state: s, mb: b}
}

// Compound adds a top-level compound state whose default child is initial.
func (b *MachineBuilder) Compound(id, initial string) *StateBuilder {
	s := NewStateConfig(id, Compound).WithInitial(initial)
	b.add(s)
	return &StateBuilder{state: s, mb: b}
}

// Build validates and returns the topology.
func (b *MachineBuilder) Build() (MachineConfig, error) {
	if b.err != nil {
		return MachineConfig{}, b.err
	}
	if err := b.config.Validate(); err != nil {
		return MachineConfig{}, err
	}
	return *b.config, nil
}

// StateBuilder configures one state.
type StateBuilder struct {
	state  *StateConfig
	parent *StateBuilder
	mb     *MachineBuilder
}

// Config exposes the state being built.
func (sb *StateBuilder) Config() *StateConfig {
	return sb.state
}

// Transition adds a transition on event. An empty target makes it internal.
// An optional TransitionConfig supplies guard, actions and priority.
func (sb *StateBuilder) Transition(event, target string, opts ...TransitionConfig) *StateBuilder {
	var trans TransitionConfig
	if len(opts) > 0 {
		trans = opts[0]
	}
	trans.Event = event
	trans.Target = target
	sb.state.AddTransition(event, trans)
	return sb
}

// Entry appends entry actions.
func (sb *StateBuilder) Entry(actions ...ActionRef) *StateBuilder {
	for _, a := range actions {
		sb.state.AddEntry(a)
	}
	return sb
}

// Exit appends exit actions.
func (sb *StateBuilder) Exit(actions ...ActionRef) *StateBuilder {
	for _, a := range actions {
		sb.state.AddExit(a)
	}
	return sb
}

// State adds an atomic child to a compound state.
func (sb *StateBuilder) State(id string) *StateBuilder {
	child := NewStateConfig(id, Atomic)
	sb.state.AddChild(child)
	sb.mb.add(child)
	return &StateBuilder{state: child, parent: sb, mb: sb.mb}
}

// Compound adds a compound child to a compound state.
func (sb *StateBuilder) Compound(id, initial string) *StateBuilder {
	child := NewStateConfig(id, Compound).WithInitial(initial)
	sb.state.AddChild(child)
	sb.mb.add(child)
	return &StateBuilder{state: child, parent: sb, mb: sb.mb}
}

// Up returns the enclosing state's builder, or sb for a top-level state.
func (sb *StateBuilder) Up() *StateBuilder {
	if sb.parent == nil {
		return sb
	}
	return sb.parent
}
