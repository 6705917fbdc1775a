package activechart

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/comalice/activechart/internal/core"
)

// DefaultQueueCapacity is the queue capacity of objects built without
// WithQueueCapacity.
const DefaultQueueCapacity = 8

// StateMachine is the engine an active object runs. Start takes the
// initial transition; Dispatch runs one event to completion. Both are
// called only from the dispatcher. The Msg passed to Dispatch may alias a
// buffer that is released when Dispatch returns.
type StateMachine interface {
	Start(ctx context.Context) error
	Dispatch(ctx context.Context, msg Msg) error
}

// ActiveObject is a state machine with its own event queue. Construct it
// once, register it with a Processor, and post to it from anywhere.
type ActiveObject struct {
	name  string
	sm    StateMachine
	queue *EventQueue
	id    uint16
	proc  atomic.Pointer[Processor]
}

type objectOptions struct {
	queueCapacity int
	machineOpts   []core.Option
}

// ObjectOption configures an ActiveObject.
type ObjectOption func(*objectOptions)

// WithQueueCapacity sets the immutable queue capacity. Zero builds an
// object without a queue: it only accepts mutable messages.
func WithQueueCapacity(n int) ObjectOption {
	return func(o *objectOptions) {
		o.queueCapacity = n
	}
}

// WithMachineOptions passes options to the engine New builds.
func WithMachineOptions(opts ...core.Option) ObjectOption {
	return func(o *objectOptions) {
		o.machineOpts = append(o.machineOpts, opts...)
	}
}

func buildOptions(opts []ObjectOption) objectOptions {
	o := objectOptions{queueCapacity: DefaultQueueCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds an active object running topology on the bundled engine. The
// machine is not started until Processor.StartAll.
func New(topology Topology, name string, opts ...ObjectOption) (*ActiveObject, error) {
	o := buildOptions(opts)
	m, err := core.NewMachine(topology, name, o.machineOpts...)
	if err != nil {
		return nil, fmt.Errorf("active object %s: %w", name, err)
	}
	return newObject(m, name, o), nil
}

// NewWithMachine builds an active object around any StateMachine.
func NewWithMachine(sm StateMachine, name string, opts ...ObjectOption) (*ActiveObject, error) {
	if sm == nil {
		return nil, fmt.Errorf("active object %s: nil state machine", name)
	}
	return newObject(sm, name, buildOptions(opts)), nil
}

func newObject(sm StateMachine, name string, o objectOptions) *ActiveObject {
	return &ActiveObject{
		name:  name,
		sm:    sm,
		queue: NewEventQueue(o.queueCapacity, nil),
		id:    NoObject,
	}
}

// Name returns the object's name.
func (ao *ActiveObject) Name() string { return ao.name }

// ID returns the registry index, or NoObject before registration.
func (ao *ActiveObject) ID() uint16 { return ao.id }

// Machine returns the state machine.
func (ao *ActiveObject) Machine() StateMachine { return ao.sm }

// Queue returns the immutable event queue.
func (ao *ActiveObject) Queue() *EventQueue { return ao.queue }

// Processor returns the processor the object is registered with, or nil.
func (ao *ActiveObject) Processor() *Processor { return ao.proc.Load() }

// PostFIFO queues msg behind everything already queued. The bytes are not
// copied: msg must stay unchanged until it has been dispatched. Safe from
// any goroutine, interrupt handlers included.
func (ao *ActiveObject) PostFIFO(msg Msg) error {
	return ao.post(msg, false, "fifo")
}

// PostLIFO queues msg to be dispatched next, ahead of everything queued.
func (ao *ActiveObject) PostLIFO(msg Msg) error {
	return ao.post(msg, true, "lifo")
}

func (ao *ActiveObject) post(msg Msg, front bool, kind string) error {
	p := ao.proc.Load()
	if p == nil {
		return ErrNotRegistered
	}
	if !p.started.Load() {
		p.logger.Warn("post before start", "object", ao.name, "signal", msg.Signal())
		return ErrNotStarted
	}
	if ao.queue.Cap() == 0 {
		return ErrNoQueue
	}

	var ok bool
	if front {
		ok = ao.queue.PushFront(msg)
	} else {
		ok = ao.queue.PushBack(msg)
	}
	if !ok {
		p.metrics.overflow(ao.name)
		return ErrQueueFull
	}
	p.metrics.posted(ao.name, kind)
	p.signalWork()
	return nil
}

// PostMutable moves m to this object. See Processor.PostMutable.
func (ao *ActiveObject) PostMutable(m *Mutable) error {
	p := ao.proc.Load()
	if p == nil {
		return ErrNotRegistered
	}
	return p.PostMutable(ao, m)
}
