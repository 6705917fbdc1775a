// Package core is a small hierarchical state machine engine. A Machine runs
// synchronously on its caller's goroutine: Start takes the initial
// transition, Dispatch runs one event to completion. It never blocks and
// never spawns goroutines, so it can be driven from a single dispatcher.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/comalice/activechart/internal/primitives"
)

var (
	ErrNotStarted      = errors.New("machine not started")
	ErrAlreadyStarted  = errors.New("machine already started")
	ErrVersionMismatch = errors.New("snapshot taken from a different topology")
	ErrUnknownState    = errors.New("unknown state")
)

// ActionRunner runs actions that are not plain functions, typically names
// resolved against a registry.
type ActionRunner interface {
	Run(ctx *primitives.Context, action primitives.ActionRef, event primitives.Event) error
}

// GuardEvaluator evaluates guards that are not plain functions.
type GuardEvaluator interface {
	Eval(ctx *primitives.Context, guard primitives.GuardRef, event primitives.Event) bool
}

// Persister stores snapshots by key.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, error)
}

// Snapshot is the serializable runtime state of a Machine.
type Snapshot struct {
	MachineID   string         `json:"machineID" yaml:"machineID"`
	Name        string         `json:"name" yaml:"name"`
	Version     string         `json:"version" yaml:"version"`
	Current     string         `json:"current" yaml:"current"`
	ContextData map[string]any `json:"context" yaml:"context"`
	Timestamp   time.Time      `json:"timestamp" yaml:"timestamp"`
}

// MachineMetadata describes a transition that was taken.
type MachineMetadata struct {
	MachineID string    `json:"machineID" yaml:"machineID"`
	Name      string    `json:"name" yaml:"name"`
	Source    string    `json:"source" yaml:"source"`
	Target    string    `json:"target" yaml:"target"`
	Internal  bool      `json:"internal,omitempty" yaml:"internal,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// EventPublisher observes transitions. Publish runs on the dispatcher and
// must not block. The event it receives carries no payload.
type EventPublisher interface {
	Publish(ctx context.Context, event primitives.Event, metadata MachineMetadata) error
	Close() error
}

// Visualizer renders a topology.
type Visualizer interface {
	ExportDOT(config primitives.MachineConfig, current string) string
}

// Option applies configuration to Machine via functional options pattern.
type Option func(*Machine)

// Machine is a hierarchical state machine instance.
//
// Start, Dispatch and Restore must be called from one goroutine at a time.
// Current, IsIn and Snapshot may be called from anywhere.
type Machine struct {
	config      primitives.MachineConfig
	name        string
	version     string
	ctx         *primitives.Context
	stateCache  map[string]*primitives.StateConfig
	pathIndex   map[string]string
	transitions map[string]map[string][]primitives.TransitionConfig
	signalNames map[primitives.Signal]string

	mu      sync.RWMutex
	current string // active leaf path
	started bool

	actionRunner ActionRunner
	guardEval    GuardEvaluator
	publisher    EventPublisher
	visualizer   Visualizer
	logger       *slog.Logger
}

// NewMachine indexes and validates config and prepares a machine named
// name. The machine is not started.
func NewMachine(config primitives.MachineConfig, name string, opts ...Option) (*Machine, error) {
	if err := config.Index(); err != nil {
		return nil, fmt.Errorf("index topology %q: %w", config.ID, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate topology %q: %w", config.ID, err)
	}

	m := &Machine{
		config:      config,
		name:        name,
		version:     primitives.Fingerprint(&config),
		ctx:         primitives.NewContext(),
		stateCache:  make(map[string]*primitives.StateConfig),
		pathIndex:   make(map[string]string),
		signalNames: config.SignalNames(),
		logger:      slog.Default(),
	}
	for _, root := range config.Roots() {
		precomputePaths(root, "", m.stateCache, m.pathIndex)
	}
	m.transitions = precomputeTransitions(m.stateCache)

	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("object", name, "machine", config.ID)
	return m, nil
}

// Config returns the machine's topology.
func (m *Machine) Config() primitives.MachineConfig {
	return m.config
}

// Name returns the instance name.
func (m *Machine) Name() string {
	return m.name
}

// Version returns the topology fingerprint snapshots are checked against.
func (m *Machine) Version() string {
	return m.version
}

// Ctx returns the machine's extended state.
func (m *Machine) Ctx() *primitives.Context {
	return m.ctx
}

// resolve turns a state ID or dotted path into a full path.
func (m *Machine) resolve(ref string) (string, error) {
	id := ref
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		id = ref[i+1:]
	}
	path, ok := m.pathIndex[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, ref)
	}
	return path, nil
}

// Start takes the initial transition: entry actions run outer first down
// to the initial leaf.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()
	if started {
		return ErrAlreadyStarted
	}

	initial, err := m.resolve(m.config.Initial)
	if err != nil {
		return err
	}
	leaf := resolveInitialLeaf(m.stateCache, initial)
	event := primitives.Event{Type: "init"}

	var errs []error
	for _, path := range getEntryStates("", leaf) {
		errs = append(errs, m.runActions(path, "entry", m.stateCache[path].Entry, event)...)
	}

	m.mu.Lock()
	m.current = leaf
	m.started = true
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "machine started", "path", leaf)
	m.publish(ctx, event, MachineMetadata{Target: leaf})
	return errors.Join(errs...)
}

// Dispatch runs one event to completion. The event's signal is looked up
// in the topology's signal table; unknown signals and events no active
// state handles are ignored. Action failures are collected and returned
// after the transition completes.
func (m *Machine) Dispatch(ctx context.Context, msg primitives.Msg) error {
	m.mu.RLock()
	started, leaf := m.started, m.current
	m.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	sig := msg.Signal()
	name, ok := m.signalNames[sig]
	if !ok {
		m.logger.DebugContext(ctx, "signal not in topology", "signal", sig)
		return nil
	}
	event := primitives.NewEvent(name, msg)

	ancestors := getAncestors(leaf)
	for i := len(ancestors) - 1; i >= 0; i-- {
		source := ancestors[i]
		for _, trans := range m.transitions[source][name] {
			if !m.evalGuard(trans.Guard, event) {
				continue
			}
			return m.fire(ctx, leaf, source, trans, event)
		}
	}
	m.logger.DebugContext(ctx, "event not handled", "signal", sig, "event", name, "path", leaf)
	return nil
}

func (m *Machine) fire(ctx context.Context, leaf, source string, trans primitives.TransitionConfig, event primitives.Event) error {
	if trans.Internal() {
		errs := m.runActions(source, "transition", trans.Actions, event)
		m.publish(ctx, event, MachineMetadata{Source: source, Target: source, Internal: true})
		return errors.Join(errs...)
	}

	target, err := m.resolve(trans.Target)
	if err != nil {
		return err
	}
	domain := transitionDomain(source, target)
	newLeaf := resolveInitialLeaf(m.stateCache, target)

	var errs []error
	for _, path := range getExitStates(leaf, domain) {
		errs = append(errs, m.runActions(path, "exit", m.stateCache[path].Exit, event)...)
	}
	errs = append(errs, m.runActions(source, "transition", trans.Actions, event)...)
	for _, path := range getEntryStates(domain, newLeaf) {
		errs = append(errs, m.runActions(path, "entry", m.stateCache[path].Entry, event)...)
	}

	m.mu.Lock()
	m.current = newLeaf
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "transition", "event", event.Type, "source", source, "path", newLeaf)
	m.publish(ctx, event, MachineMetadata{Source: source, Target: newLeaf})
	return errors.Join(errs...)
}

func (m *Machine) evalGuard(guard primitives.GuardRef, event primitives.Event) bool {
	if m.guardEval != nil {
		return m.guardEval.Eval(m.ctx, guard, event)
	}
	return defaultGuardEval(m.ctx, guard, event)
}

func (m *Machine) runActions(path, kind string, actions []primitives.ActionRef, event primitives.Event) []error {
	var errs []error
	for _, action := range actions {
		var err error
		if m.actionRunner != nil {
			err = m.actionRunner.Run(m.ctx, action, event)
		} else {
			err = defaultActionRun(m.ctx, action, event)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s action in %s: %w", kind, path, err))
		}
	}
	return errs
}

func (m *Machine) publish(ctx context.Context, event primitives.Event, md MachineMetadata) {
	if m.publisher == nil {
		return
	}
	md.MachineID = m.config.ID
	md.Name = m.name
	md.Timestamp = time.Now()
	event.Msg = nil
	if err := m.publisher.Publish(ctx, event, md); err != nil {
		m.logger.WarnContext(ctx, "publish transition", "err", err)
	}
}

// Current returns the active leaf path, "" before Start.
func (m *Machine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsIn reports whether state (an ID or path) is active, either as the leaf
// or as one of its ancestors.
func (m *Machine) IsIn(state string) bool {
	path, err := m.resolve(state)
	if err != nil {
		return false
	}
	current := m.Current()
	return current == path || strings.HasPrefix(current, path+".")
}

// Snapshot captures the active state and extended state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		MachineID:   m.config.ID,
		Name:        m.name,
		Version:     m.version,
		Current:     m.Current(),
		ContextData: m.ctx.Snapshot(),
		Timestamp:   time.Now(),
	}
}

// Restore resumes from a snapshot without running entry actions. The
// snapshot must come from the same topology.
func (m *Machine) Restore(snapshot Snapshot) error {
	if snapshot.MachineID != m.config.ID {
		return fmt.Errorf("machine ID mismatch: have %q, snapshot %q", m.config.ID, snapshot.MachineID)
	}
	if snapshot.Version != m.version {
		return fmt.Errorf("%w: have %s, snapshot %s", ErrVersionMismatch, m.version, snapshot.Version)
	}
	state, ok := m.stateCache[snapshot.Current]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownState, snapshot.Current)
	}
	if state.Type != primitives.Atomic {
		return fmt.Errorf("snapshot state %q is not a leaf", snapshot.Current)
	}

	m.ctx.Restore(snapshot.ContextData)
	m.mu.Lock()
	m.current = snapshot.Current
	m.started = true
	m.mu.Unlock()
	return nil
}

// Visualize returns the Graphviz DOT rendering of the machine with the
// active leaf highlighted.
func (m *Machine) Visualize() string {
	if m.visualizer == nil {
		return "ERROR: No visualizer configured. Use WithVisualizer(production.NewDOTVisualizer())"
	}
	return m.visualizer.ExportDOT(m.config, m.Current())
}
