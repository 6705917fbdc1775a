package kernel

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a periodic simulated interrupt. The service routine runs on the
// timer's own goroutine, concurrently with the dispatcher, the way a
// hardware ISR preempts the main loop.
type Timer struct {
	isr    func()
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	fired  atomic.Uint64
}

// NewTimer starts a timer that calls isr every period.
func NewTimer(period time.Duration, isr func()) *Timer {
	t := &Timer{
		isr:    isr,
		ticker: time.NewTicker(period),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Timer) run() {
	defer close(t.done)
	for {
		select {
		case <-t.ticker.C:
			t.fired.Add(1)
			t.isr()
		case <-t.stop:
			t.ticker.Stop()
			return
		}
	}
}

// Fired returns how many times the service routine has run.
func (t *Timer) Fired() uint64 {
	return t.fired.Load()
}

// Stop halts the timer and waits for an in-flight service routine to return.
// Safe to call more than once.
func (t *Timer) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}
