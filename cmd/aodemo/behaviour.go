package main

import (
	"github.com/comalice/activechart"
	"github.com/comalice/activechart/internal/extensibility"
)

// Signals the demo producers look for in a topology's signal table.
const (
	tickEvent   = "TICK"
	buttonEvent = "BUTTON"
)

// behaviour binds the action names board topologies may use.
func behaviour() *extensibility.DefaultActionRunner {
	return extensibility.NewActionRunner().
		Register("led_on", func(ctx *activechart.Context, _ activechart.Event) {
			ctx.Set("led", true)
			ctx.Incr("blinks", 1)
		}).
		Register("led_off", func(ctx *activechart.Context, _ activechart.Event) {
			ctx.Set("led", false)
		}).
		Register("count_press", func(ctx *activechart.Context, evt activechart.Event) {
			ctx.Incr("presses", 1)
			// the payload is released after dispatch; keep a copy only
			if data := evt.Msg.Data(); len(data) > 0 {
				ctx.Set("last_press", int(data[0]))
			}
		}).
		Register("reset_presses", func(ctx *activechart.Context, _ activechart.Event) {
			ctx.Set("presses", 0)
		})
}
