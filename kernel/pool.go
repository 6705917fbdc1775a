package kernel

const (
	// HeaderSize is the size of the kernel message header: event tag, status.
	HeaderSize = 2

	// Alignment is the allocation granularity of the pool. Every block is
	// rounded up to a multiple of it.
	Alignment = 4
)

// Buffer is a message buffer handed out by the pool. Its bytes are owned by
// whoever currently holds the *Buffer: the allocator, then the kernel while
// it sits in a mailbox, then the receiving task until it deallocates.
type Buffer struct {
	data []byte
	cost int
	pool *Pool
	live bool
}

// Bytes returns the buffer contents, header included.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the requested size of the buffer.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Event returns the event tag stored in the message header, or 0 if the
// buffer is too short to carry one.
func (b *Buffer) Event() uint8 {
	if len(b.data) < HeaderSize {
		return 0
	}
	return b.data[0]
}

// SetEvent writes the header event tag and clears the status byte.
func (b *Buffer) SetEvent(tag uint8) {
	if len(b.data) < HeaderSize {
		return
	}
	b.data[0] = tag
	b.data[1] = 0
}

// PoolStats reports pool usage.
type PoolStats struct {
	Capacity int
	InUse    int
	Peak     int
	Allocs   uint64
	Frees    uint64
	Failures uint64
}

// Pool is a byte-budget allocator. It is not safe for concurrent use on its
// own; the kernel only touches it with interrupts masked.
type Pool struct {
	capacity int
	inUse    int
	peak     int
	allocs   uint64
	frees    uint64
	failures uint64
}

// NewPool creates a pool that can hold capacity bytes of aligned blocks.
func NewPool(capacity int) *Pool {
	return &Pool{capacity: capacity}
}

// alignUp rounds n up to the next multiple of Alignment.
func alignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

func (p *Pool) alloc(n int) *Buffer {
	if n <= 0 {
		p.failures++
		return nil
	}
	cost := alignUp(n)
	if p.inUse+cost > p.capacity {
		p.failures++
		return nil
	}
	p.inUse += cost
	if p.inUse > p.peak {
		p.peak = p.inUse
	}
	p.allocs++
	return &Buffer{
		data: make([]byte, n, cost),
		cost: cost,
		pool: p,
		live: true,
	}
}

func (p *Pool) free(b *Buffer) error {
	if b == nil {
		return ErrNilBuffer
	}
	if b.pool != p {
		return ErrForeignBuffer
	}
	if !b.live {
		return ErrDoubleFree
	}
	b.live = false
	p.inUse -= b.cost
	p.frees++
	return nil
}

func (p *Pool) owns(b *Buffer) bool {
	return b != nil && b.pool == p && b.live
}

func (p *Pool) stats() PoolStats {
	return PoolStats{
		Capacity: p.capacity,
		InUse:    p.inUse,
		Peak:     p.peak,
		Allocs:   p.allocs,
		Frees:    p.frees,
		Failures: p.failures,
	}
}
