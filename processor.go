package activechart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/comalice/activechart/kernel"
)

// EventPostImmutable is the dispatcher task's work-pending flag. It is
// sticky: any number of posts raise it once, and it stays raised while a
// queue holds messages.
const EventPostImmutable kernel.EventFlags = 0x0001

// DefaultRegistryCapacity is the number of objects a Processor holds
// unless WithCapacity says otherwise.
const DefaultRegistryCapacity = 10

// Host is the kernel surface the processor runs on.
type Host interface {
	IRQ() *kernel.IRQ
	RegisterTask(h kernel.Handler) (kernel.TaskID, error)
	SetEvent(id kernel.TaskID, flags kernel.EventFlags) error
	MsgAllocate(n int) *kernel.Buffer
	MsgDeallocate(b *kernel.Buffer) error
	MsgSend(id kernel.TaskID, b *kernel.Buffer) error
	MsgReceive(id kernel.TaskID) *kernel.Buffer
	MailboxDepth() int
	PoolStats() kernel.PoolStats
}

// Processor owns the registry of active objects and dispatches their
// messages from a single kernel task.
//
// Register every object and call StartAll before producers start posting.
// After that the registry is fixed; posts are safe from any goroutine and
// all dispatching happens inside the kernel's run loop.
type Processor struct {
	host      Host
	irq       Interrupts
	task      kernel.TaskID
	transport *Transport
	objects   []*ActiveObject
	started   atomic.Bool
	runCtx    atomic.Pointer[runContext]

	fatal   func(*FatalError)
	logger  *slog.Logger
	metrics *metrics
	tracer  trace.Tracer
}

// NewProcessor registers the dispatcher task with host.
func NewProcessor(host Host, opts ...Option) (*Processor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity <= 0 || o.capacity >= int(NoObject) {
		return nil, fmt.Errorf("registry capacity %d out of range", o.capacity)
	}

	p := &Processor{
		host:    host,
		irq:     host.IRQ(),
		objects: make([]*ActiveObject, 0, o.capacity),
		logger:  o.logger.With("component", "processor"),
		tracer:  o.tracerProvider.Tracer("github.com/comalice/activechart"),
	}
	p.fatal = o.fatal
	if p.fatal == nil {
		p.fatal = p.abort
	}
	if o.registerer != nil {
		m, err := newMetrics(o.registerer, host)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		p.metrics = m
	}
	p.transport = &Transport{host: host, metrics: p.metrics}

	task, err := host.RegisterTask(p.handle)
	if err != nil {
		return nil, fmt.Errorf("register dispatcher task: %w", err)
	}
	p.task = task
	return p, nil
}

type runContext struct{ ctx context.Context }

// dispatchContext returns the context given to StartAll.
func (p *Processor) dispatchContext() context.Context {
	if rc := p.runCtx.Load(); rc != nil {
		return rc.ctx
	}
	return context.Background()
}

// abort is the default fatal handler.
func (p *Processor) abort(fe *FatalError) {
	p.logger.Error("fatal", "op", fe.Op, "object", fe.Object, "err", fe.Err)
	panic(fe)
}

// raise reports a fatal condition. It returns only if the fatal handler
// does.
func (p *Processor) raise(op string, ao *ActiveObject, err error) error {
	fe := &FatalError{Op: op, Err: err}
	if ao != nil {
		fe.Object = ao.name
	}
	p.fatal(fe)
	return fe
}

// Transport returns the allocator for mutable messages.
func (p *Processor) Transport() *Transport {
	return p.transport
}

// Allocate is shorthand for Transport().Allocate.
func (p *Processor) Allocate(size int) (*Mutable, error) {
	return p.transport.Allocate(size)
}

// AllocateMsg is shorthand for Transport().AllocateMsg.
func (p *Processor) AllocateMsg(sig Signal, data []byte) (*Mutable, error) {
	return p.transport.AllocateMsg(sig, data)
}

// Task returns the dispatcher's kernel task.
func (p *Processor) Task() kernel.TaskID {
	return p.task
}

// Objects returns the registered objects in registration order.
func (p *Processor) Objects() []*ActiveObject {
	return append([]*ActiveObject(nil), p.objects...)
}

// Started reports whether StartAll has run.
func (p *Processor) Started() bool {
	return p.started.Load()
}

// Register appends ao to the registry and gives it the next id. A full
// registry is fatal.
func (p *Processor) Register(ao *ActiveObject) error {
	if ao == nil {
		return fmt.Errorf("register: %w: nil object", ErrNotRegistered)
	}
	if p.started.Load() {
		return fmt.Errorf("register %s: %w", ao.name, ErrAlreadyStarted)
	}
	if ao.proc.Load() != nil {
		return fmt.Errorf("register %s: %w", ao.name, ErrAlreadyRegistered)
	}
	if len(p.objects) == cap(p.objects) {
		return p.raise("register", ao, ErrRegistryFull)
	}

	ao.id = uint16(len(p.objects))
	ao.queue.bind(p.irq)
	p.objects = append(p.objects, ao)
	ao.proc.Store(p)
	p.metrics.watch(ao)
	p.logger.Debug("registered", "object", ao.name, "id", ao.id)
	return nil
}

// MustRegister is Register for setup code; it panics on error.
func (p *Processor) MustRegister(objects ...*ActiveObject) {
	for _, ao := range objects {
		if err := p.Register(ao); err != nil {
			panic(err)
		}
	}
}

// IsRegistered reports whether ao is registered with p.
func (p *Processor) IsRegistered(ao *ActiveObject) bool {
	return ao != nil && ao.proc.Load() == p
}

// StartAll runs every object's initial transition once, in registration
// order. Posting is allowed from then on, including from initial
// transitions. ctx is also the context later dispatches run with.
func (p *Processor) StartAll(ctx context.Context) error {
	if p.started.Load() {
		return ErrAlreadyStarted
	}
	p.runCtx.Store(&runContext{ctx})
	p.started.Store(true)

	var errs []error
	for _, ao := range p.objects {
		if err := ao.sm.Start(ctx); err != nil {
			p.logger.ErrorContext(ctx, "initial transition failed", "object", ao.name, "err", err)
			errs = append(errs, fmt.Errorf("start %s: %w", ao.name, err))
		}
	}
	p.logger.InfoContext(ctx, "started", "objects", len(p.objects))
	return errors.Join(errs...)
}

// ProcessImmutableCycle dispatches at most one queued message per object,
// in registration order, and reports whether any queue still holds
// messages. Dispatcher only.
func (p *Processor) ProcessImmutableCycle(ctx context.Context) (pending bool) {
	ctx, span := p.tracer.Start(ctx, "activechart.ProcessImmutableCycle")
	defer span.End()

	dispatched := 0
	for _, ao := range p.objects {
		msg, ok := ao.queue.Pop()
		if !ok {
			continue
		}
		dispatched++
		p.dispatch(ctx, ao, msg, "immutable")
	}
	for _, ao := range p.objects {
		n := ao.queue.Len()
		if n > 0 {
			pending = true
		}
		if p.metrics != nil {
			p.metrics.depth(ao.name, n, ao.queue.Stats().HighWater)
		}
	}
	span.SetAttributes(attribute.Int("dispatched", dispatched), attribute.Bool("pending", pending))
	return pending
}

// DeliverMutable dispatches a mutable message buffer to the object its
// envelope names. The caller keeps ownership of buf. A malformed envelope,
// an unregistered target, or delivery before StartAll is fatal.
// Dispatcher only.
func (p *Processor) DeliverMutable(ctx context.Context, buf *kernel.Buffer) error {
	ctx, span := p.tracer.Start(ctx, "activechart.DeliverMutable")
	defer span.End()

	if !p.started.Load() {
		span.SetStatus(codes.Error, "not started")
		return p.raise("deliver", nil, ErrNotStarted)
	}
	env, err := envelopeOf(buf)
	if err != nil {
		span.SetStatus(codes.Error, "bad envelope")
		return p.raise("deliver", nil, err)
	}
	if env.tag != SysMsgActiveObject {
		span.SetStatus(codes.Error, "bad envelope")
		return p.raise("deliver", nil, fmt.Errorf("%w: tag %d", ErrBadEnvelope, env.tag))
	}
	if int(env.target) >= len(p.objects) {
		span.SetStatus(codes.Error, "unregistered target")
		return p.raise("deliver", nil, fmt.Errorf("%w: id %d", ErrUnregisteredTarget, env.target))
	}

	ao := p.objects[env.target]
	span.SetAttributes(attribute.String("object", ao.name), attribute.Int("bytes", buf.Len()-EnvelopeSize))
	p.dispatch(ctx, ao, Msg(buf.Bytes()[EnvelopeSize:]), "mutable")
	return nil
}

func (p *Processor) dispatch(ctx context.Context, ao *ActiveObject, msg Msg, path string) {
	p.metrics.dispatched(ao.name, path)
	if err := ao.sm.Dispatch(ctx, msg); err != nil {
		p.metrics.dispatchFailed(ao.name)
		p.logger.WarnContext(ctx, "dispatch failed", "object", ao.name, "signal", msg.Signal(), "path", path, "err", err)
	}
}

// PostMutable moves m to ao through the kernel mailbox. On success m is
// left empty and the dispatcher owns the buffer. On failure the caller
// still owns m. Safe from any goroutine.
func (p *Processor) PostMutable(ao *ActiveObject, m *Mutable) error {
	if m == nil || m.buf == nil {
		return ErrReleased
	}
	if !p.started.Load() {
		return ErrNotStarted
	}
	if !p.IsRegistered(ao) {
		return ErrNotRegistered
	}

	seal(m.buf, ao.id)
	if err := p.host.MsgSend(p.task, m.buf); err != nil {
		p.metrics.overflow(ao.name)
		return fmt.Errorf("post mutable to %s: %w", ao.name, err)
	}
	m.buf = nil
	p.metrics.posted(ao.name, "mutable")
	return nil
}

func (p *Processor) signalWork() {
	if err := p.host.SetEvent(p.task, EventPostImmutable); err != nil {
		p.logger.Error("raise work flag", "err", err)
	}
}

// handle is the dispatcher task. Each wake-up receives at most one
// mailbox's worth of messages, then runs one immutable cycle. Flags stay
// raised while work remains so the kernel calls back after the other tasks.
func (p *Processor) handle(task kernel.TaskID, events kernel.EventFlags) kernel.EventFlags {
	ctx := p.dispatchContext()

	// Step raises SysEventMsg again while the mailbox is non-empty.
	if events&kernel.SysEventMsg != 0 {
		for range p.host.MailboxDepth() {
			buf := p.host.MsgReceive(task)
			if buf == nil {
				break
			}
			p.receive(ctx, buf)
		}
		events &^= kernel.SysEventMsg
	}

	if events&EventPostImmutable != 0 && !p.ProcessImmutableCycle(ctx) {
		events &^= EventPostImmutable
	}
	return events
}

func (p *Processor) receive(ctx context.Context, buf *kernel.Buffer) {
	if tag := buf.Event(); tag == SysMsgActiveObject {
		_ = p.DeliverMutable(ctx, buf)
	} else {
		p.logger.WarnContext(ctx, "dropping message with unknown tag", "tag", tag)
	}
	if err := p.host.MsgDeallocate(buf); err != nil {
		p.logger.ErrorContext(ctx, "release message buffer", "err", err)
	}
}
