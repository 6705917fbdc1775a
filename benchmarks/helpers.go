// Package benchmarks measures the engine and the dispatcher: transition
// cost by topology shape, post and dispatch cost, and multi-producer
// throughput through the kernel run loop.
package benchmarks

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/comalice/activechart"
	"github.com/comalice/activechart/internal/core"
)

// Tick is the event every generated topology cycles on.
const (
	Tick       = "TICK"
	TickSignal = activechart.Signal(1)
)

// TickMsg is a ready-made TICK payload.
var TickMsg = activechart.NewMsg(TickSignal, nil)

// Discard is a logger for benchmarks.
var Discard = slog.New(slog.DiscardHandler)

func mustBuild(b *activechart.TopologyBuilder) activechart.Topology {
	topo, err := b.Build()
	if err != nil {
		panic(err)
	}
	return topo
}

// GenFlatTopology creates n atomic states cycling on TICK.
func GenFlatTopology(n int) activechart.Topology {
	if n < 1 {
		n = 1
	}
	b := activechart.NewTopology(fmt.Sprintf("flat_%d", n), "s0").Signal(Tick, TickSignal)
	for i := 0; i < n; i++ {
		b.State(fmt.Sprintf("s%d", i)).Transition(Tick, fmt.Sprintf("s%d", (i+1)%n))
	}
	return mustBuild(b)
}

// GenDeepTopology nests depth compound states and flips between the
// innermost leaf and a top-level state, so every TICK exits or enters the
// whole chain.
func GenDeepTopology(depth int) activechart.Topology {
	if depth < 1 {
		depth = 1
	}
	initial := func(i int) string {
		if i == depth-1 {
			return "leaf"
		}
		return fmt.Sprintf("c%d", i+1)
	}
	b := activechart.NewTopology(fmt.Sprintf("deep_%d", depth), "c0").Signal(Tick, TickSignal)
	b.State("out").Transition(Tick, "c0")
	sb := b.Compound("c0", initial(0))
	for i := 1; i < depth; i++ {
		sb = sb.Compound(fmt.Sprintf("c%d", i), initial(i))
	}
	sb.State("leaf").Transition(Tick, "out")
	return mustBuild(b)
}

// GenWideTopology gives one state n prioritized, guarded TICK transitions.
// Only the lowest priority guard passes, so every guard is evaluated.
func GenWideTopology(n int) activechart.Topology {
	if n < 1 {
		n = 1
	}
	b := activechart.NewTopology(fmt.Sprintf("wide_%d", n), "main").Signal(Tick, TickSignal)
	main := b.State("main")
	for i := 0; i < n; i++ {
		target := fmt.Sprintf("target%d", i)
		main.Transition(Tick, target, activechart.Transition{
			Priority: n - i,
			Guard: activechart.GuardFunc(func(*activechart.Context, activechart.Event) bool {
				return i == n-1
			}),
		})
		b.State(target).Transition(Tick, "main")
	}
	return mustBuild(b)
}

// NewMachine builds and starts a machine for topo.
func NewMachine(topo activechart.Topology) *core.Machine {
	m, err := core.NewMachine(topo, topo.ID, core.WithLogger(Discard))
	if err != nil {
		panic(err)
	}
	if err := m.Start(context.Background()); err != nil {
		panic(err)
	}
	return m
}

// GenSnapshotYAML returns the YAML snapshot of a machine that has taken
// one TICK, along with the machine.
func GenSnapshotYAML(topo activechart.Topology) ([]byte, *core.Machine) {
	m := NewMachine(topo)
	if err := m.Dispatch(context.Background(), TickMsg); err != nil {
		panic(err)
	}
	data, err := yaml.Marshal(m.Snapshot())
	if err != nil {
		panic(err)
	}
	return data, m
}
