package kernel

import (
	"context"
	"fmt"
	"log/slog"
)

// TaskID identifies a registered task.
type TaskID uint8

// InvalidTaskID is never assigned to a task.
const InvalidTaskID TaskID = 0xFF

// EventFlags is a task's set of pending events. Bits are sticky: raising an
// already raised bit is a no-op.
type EventFlags uint16

// SysEventMsg is raised while a task's mailbox holds messages.
const SysEventMsg EventFlags = 0x8000

// Handler services a task's pending events and returns the ones it left
// unprocessed.
type Handler func(task TaskID, events EventFlags) EventFlags

const (
	DefaultMaxTasks     = 8
	DefaultMailboxDepth = 16
	DefaultPoolBytes    = 2048
)

// Config sizes the kernel. Zero fields take the defaults.
type Config struct {
	MaxTasks     int `yaml:"max_tasks" env:"MAX_TASKS"`
	MailboxDepth int `yaml:"mailbox_depth" env:"MAILBOX_DEPTH"`
	PoolBytes    int `yaml:"pool_bytes" env:"POOL_BYTES"`
}

func (c Config) withDefaults() Config {
	if c.MaxTasks <= 0 {
		c.MaxTasks = DefaultMaxTasks
	}
	if c.MaxTasks > int(InvalidTaskID) {
		c.MaxTasks = int(InvalidTaskID)
	}
	if c.MailboxDepth <= 0 {
		c.MailboxDepth = DefaultMailboxDepth
	}
	if c.PoolBytes <= 0 {
		c.PoolBytes = DefaultPoolBytes
	}
	return c
}

type task struct {
	handler Handler
	events  EventFlags
	mailbox []*Buffer
}

// Kernel is a cooperative scheduler with per-task event flags, bounded
// mailboxes and a shared buffer pool.
type Kernel struct {
	cfg    Config
	irq    *IRQ
	pool   *Pool
	tasks  []*task
	wake   chan struct{}
	logger *slog.Logger
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the kernel logger.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithIRQ shares an interrupt mask with other components.
func WithIRQ(irq *IRQ) Option {
	return func(k *Kernel) {
		if irq != nil {
			k.irq = irq
		}
	}
}

// New creates a kernel sized by cfg.
func New(cfg Config, opts ...Option) *Kernel {
	cfg = cfg.withDefaults()
	k := &Kernel{
		cfg:    cfg,
		irq:    &IRQ{},
		pool:   NewPool(cfg.PoolBytes),
		tasks:  make([]*task, 0, cfg.MaxTasks),
		wake:   make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// IRQ returns the kernel's interrupt mask.
func (k *Kernel) IRQ() *IRQ {
	return k.irq
}

// Config returns the effective configuration.
func (k *Kernel) Config() Config {
	return k.cfg
}

// RegisterTask adds a task and returns its id.
func (k *Kernel) RegisterTask(h Handler) (TaskID, error) {
	if h == nil {
		return InvalidTaskID, fmt.Errorf("register task: nil handler")
	}
	mask := k.irq.Disable()
	defer k.irq.Restore(mask)

	if len(k.tasks) >= k.cfg.MaxTasks {
		return InvalidTaskID, ErrTaskTableFull
	}
	id := TaskID(len(k.tasks))
	k.tasks = append(k.tasks, &task{
		handler: h,
		mailbox: make([]*Buffer, 0, k.cfg.MailboxDepth),
	})
	k.logger.Debug("kernel task registered", "task", id)
	return id, nil
}

// taskLocked returns the task for id. Interrupts must be masked.
func (k *Kernel) taskLocked(id TaskID) (*task, error) {
	if int(id) >= len(k.tasks) {
		return nil, fmt.Errorf("task %d: %w", id, ErrInvalidTask)
	}
	return k.tasks[id], nil
}

// SetEvent raises flags on a task. Safe from any goroutine, including
// simulated interrupt handlers.
func (k *Kernel) SetEvent(id TaskID, flags EventFlags) error {
	mask := k.irq.Disable()
	t, err := k.taskLocked(id)
	if err == nil {
		t.events |= flags
	}
	k.irq.Restore(mask)
	if err != nil {
		return err
	}
	k.notify()
	return nil
}

// Events returns a task's pending flags.
func (k *Kernel) Events(id TaskID) EventFlags {
	mask := k.irq.Disable()
	defer k.irq.Restore(mask)
	t, err := k.taskLocked(id)
	if err != nil {
		return 0
	}
	return t.events
}

// MsgAllocate returns a zeroed buffer of n bytes, or nil when the pool cannot
// satisfy the request.
func (k *Kernel) MsgAllocate(n int) *Buffer {
	mask := k.irq.Disable()
	defer k.irq.Restore(mask)
	return k.pool.alloc(n)
}

// MsgDeallocate returns a buffer to the pool.
func (k *Kernel) MsgDeallocate(b *Buffer) error {
	mask := k.irq.Disable()
	defer k.irq.Restore(mask)
	return k.pool.free(b)
}

// MsgSend queues b on the task's mailbox and raises SysEventMsg. On success
// the kernel owns b until the task receives it; on error the caller keeps it.
func (k *Kernel) MsgSend(id TaskID, b *Buffer) error {
	mask := k.irq.Disable()
	err := k.sendLocked(id, b)
	k.irq.Restore(mask)
	if err != nil {
		return err
	}
	k.notify()
	return nil
}

func (k *Kernel) sendLocked(id TaskID, b *Buffer) error {
	if b == nil {
		return ErrNilBuffer
	}
	if !k.pool.owns(b) {
		return ErrForeignBuffer
	}
	t, err := k.taskLocked(id)
	if err != nil {
		return err
	}
	if len(t.mailbox) >= k.cfg.MailboxDepth {
		return fmt.Errorf("task %d: %w", id, ErrMailboxFull)
	}
	t.mailbox = append(t.mailbox, b)
	t.events |= SysEventMsg
	return nil
}

// MsgReceive dequeues the oldest message for the task, or nil if its mailbox
// is empty. Ownership passes to the caller.
func (k *Kernel) MsgReceive(id TaskID) *Buffer {
	mask := k.irq.Disable()
	defer k.irq.Restore(mask)
	t, err := k.taskLocked(id)
	if err != nil || len(t.mailbox) == 0 {
		return nil
	}
	b := t.mailbox[0]
	copy(t.mailbox, t.mailbox[1:])
	t.mailbox[len(t.mailbox)-1] = nil
	t.mailbox = t.mailbox[:len(t.mailbox)-1]
	return b
}

// MailboxDepth is the most buffers a task's mailbox holds.
func (k *Kernel) MailboxDepth() int {
	return k.cfg.MailboxDepth
}

// PoolStats returns a snapshot of buffer pool usage.
func (k *Kernel) PoolStats() PoolStats {
	mask := k.irq.Disable()
	defer k.irq.Restore(mask)
	return k.pool.stats()
}

func (k *Kernel) notify() {
	select {
	case k.wake <- struct{}{}:
	default:
	}
}

// Step runs one scheduling pass: every task with pending events has its
// handler called once, in task id order. It reports whether any handler ran.
// Step must only be called from the dispatcher goroutine.
func (k *Kernel) Step() bool {
	mask := k.irq.Disable()
	n := len(k.tasks)
	k.irq.Restore(mask)

	ran := false
	for i := 0; i < n; i++ {
		id := TaskID(i)
		mask = k.irq.Disable()
		t := k.tasks[i]
		events := t.events
		t.events = 0
		k.irq.Restore(mask)

		if events == 0 {
			continue
		}
		ran = true
		rest := t.handler(id, events)

		mask = k.irq.Disable()
		t.events |= rest
		if len(t.mailbox) > 0 {
			t.events |= SysEventMsg
		}
		k.irq.Restore(mask)
	}
	return ran
}

// Run drives Step until ctx is cancelled, parking while no task has work.
// A panicking handler stops the loop; Run returns the panic as an error
// rather than keep scheduling on top of corrupted state.
func (k *Kernel) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			k.logger.Error("kernel task panicked, stopping", "panic", r)
			err = fmt.Errorf("kernel: task handler panicked: %v", r)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if k.Step() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-k.wake:
		}
	}
}
