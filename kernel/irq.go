package kernel

import "sync"

// IRQ emulates the processor's global interrupt-enable flag.
//
// Disable masks interrupts and returns the previous mask state, Restore puts
// it back. Critical sections must be short and must not nest: the hosted
// implementation is a plain mutex, so a second Disable from the same
// goroutine deadlocks exactly where real hardware would have silently
// corrupted the saved mask.
type IRQ struct {
	mu sync.Mutex
}

// Disable enters a critical section.
func (i *IRQ) Disable() uint32 {
	i.mu.Lock()
	return 1
}

// Restore leaves the critical section entered by the matching Disable.
func (i *IRQ) Restore(uint32) {
	i.mu.Unlock()
}
