// Package activechart runs hierarchical state machines as active objects on
// a cooperative, interrupt-driven host kernel.
//
// An ActiveObject pairs a StateMachine with a bounded EventQueue. Producers,
// including interrupt handlers, post immutable messages into the queue;
// the Processor, running as a single kernel task, drains every queue one
// message per object per cycle so no object can starve the others. Larger
// or producer-built payloads travel as Mutable messages: a kernel buffer
// carrying an envelope that names the target object, moved through the
// kernel mailbox and dispatched directly.
//
// All dispatching happens on the kernel's run loop goroutine. State
// machines therefore never need locking; only the queues are shared, and
// they are guarded by the interrupt mask.
//
//	k := kernel.New(kernel.Config{})
//	p, _ := activechart.NewProcessor(k)
//	blinky, _ := activechart.New(topology, "blinky")
//	p.MustRegister(blinky)
//	_ = p.StartAll(ctx)
//	go k.Run(ctx)
//	_ = blinky.PostFIFO(activechart.NewMsg(sigTick, nil))
package activechart
