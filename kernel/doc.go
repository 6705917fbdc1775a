// Package kernel is a hosted stand-in for the single-threaded, interrupt-driven
// real-time kernel the active-object layer runs on.
//
// It reproduces the primitives that layer consumes and nothing more:
//   - a fixed task table, each task owning a 16-bit set of sticky event flags
//   - a bounded mailbox per task, fed by MsgSend and drained by MsgReceive
//   - a byte-budget buffer pool (MsgAllocate / MsgDeallocate)
//   - a global interrupt mask (IRQ) guarding all of the above
//   - periodic simulated interrupt sources (Timer)
//
// Task handlers are invoked one at a time from the goroutine running Step or
// Run; that goroutine is the dispatcher context. A handler receives the flags
// that were pending and returns the ones it did not consume, which the kernel
// raises again for the next pass:
//
//	func handler(id kernel.TaskID, events kernel.EventFlags) kernel.EventFlags {
//		if events&kernel.SysEventMsg != 0 {
//			for buf := k.MsgReceive(id); buf != nil; buf = k.MsgReceive(id) {
//				// ... use buf ...
//				_ = k.MsgDeallocate(buf)
//			}
//			return events &^ kernel.SysEventMsg
//		}
//		return 0
//	}
//
// Every message starts with a HeaderSize byte header whose first byte is the
// message's event tag; the kernel itself never interprets the rest.
package kernel
