package activechart

import "sync"

// Interrupts masks interrupts around a critical section. Disable returns a
// token that Restore takes back. Sections must not nest.
type Interrupts interface {
	Disable() uint32
	Restore(mask uint32)
}

// mutexMask stands in for the interrupt mask until a queue is bound to a
// processor.
type mutexMask struct{ mu sync.Mutex }

func (m *mutexMask) Disable() uint32 { m.mu.Lock(); return 0 }
func (m *mutexMask) Restore(uint32)  { m.mu.Unlock() }

// QueueStats counts queue traffic since construction.
type QueueStats struct {
	Pushes    uint64
	Overflows uint64
	Pops      uint64
	HighWater int
}

// EventQueue is a fixed-capacity ring of immutable messages. PushBack and
// PushFront may be called from any goroutine, interrupt handlers included;
// Pop is called by the dispatcher. Each operation is one short critical
// section under the interrupt mask and never allocates.
//
// The queue stores slice headers only. The bytes stay owned by the poster.
type EventQueue struct {
	irq   Interrupts
	buf   []Msg
	head  int
	count int
	stats QueueStats
}

// NewEventQueue returns a queue holding up to capacity messages. A nil irq
// uses a private lock until the queue is bound to a processor.
func NewEventQueue(capacity int, irq Interrupts) *EventQueue {
	if capacity < 0 {
		capacity = 0
	}
	if irq == nil {
		irq = &mutexMask{}
	}
	return &EventQueue{irq: irq, buf: make([]Msg, capacity)}
}

// PushBack appends msg. It reports false, changing nothing, when the queue
// is full.
func (q *EventQueue) PushBack(msg Msg) bool {
	mask := q.irq.Disable()
	defer q.irq.Restore(mask)

	if q.count == len(q.buf) {
		q.stats.Overflows++
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = msg
	q.pushed()
	return true
}

// PushFront puts msg where the next Pop will take it. It reports false,
// changing nothing, when the queue is full.
func (q *EventQueue) PushFront(msg Msg) bool {
	mask := q.irq.Disable()
	defer q.irq.Restore(mask)

	if q.count == len(q.buf) {
		q.stats.Overflows++
		return false
	}
	q.head = (q.head + len(q.buf) - 1) % len(q.buf)
	q.buf[q.head] = msg
	q.pushed()
	return true
}

func (q *EventQueue) pushed() {
	q.count++
	q.stats.Pushes++
	if q.count > q.stats.HighWater {
		q.stats.HighWater = q.count
	}
}

// Pop removes the front message. It reports false on an empty queue.
func (q *EventQueue) Pop() (Msg, bool) {
	mask := q.irq.Disable()
	defer q.irq.Restore(mask)

	if q.count == 0 {
		return nil, false
	}
	msg := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.stats.Pops++
	return msg, true
}

// Len returns the number of queued messages.
func (q *EventQueue) Len() int {
	mask := q.irq.Disable()
	defer q.irq.Restore(mask)
	return q.count
}

// Cap returns the capacity fixed at construction.
func (q *EventQueue) Cap() int {
	return len(q.buf)
}

// Stats returns a copy of the traffic counters.
func (q *EventQueue) Stats() QueueStats {
	mask := q.irq.Disable()
	defer q.irq.Restore(mask)
	return q.stats
}

// bind switches the queue to the processor's interrupt mask. It must
// happen before any producer can reach the queue.
func (q *EventQueue) bind(irq Interrupts) {
	q.irq = irq
}
