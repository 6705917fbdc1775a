package benchmarks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/comalice/activechart"
	"github.com/comalice/activechart/kernel"
)

// counter is a minimal state machine so the dispatcher dominates.
type counter struct{ n atomic.Int64 }

func (c *counter) Start(context.Context) error { return nil }

func (c *counter) Dispatch(context.Context, activechart.Msg) error {
	c.n.Add(1)
	return nil
}

func newProcessor(b *testing.B, objects, queue int, cfg kernel.Config) (*kernel.Kernel, *activechart.Processor, []*activechart.ActiveObject, *counter) {
	b.Helper()
	k := kernel.New(cfg, kernel.WithLogger(Discard))
	p, err := activechart.NewProcessor(k, activechart.WithLogger(Discard), activechart.WithCapacity(objects))
	if err != nil {
		b.Fatal(err)
	}
	c := &counter{}
	aos := make([]*activechart.ActiveObject, objects)
	for i := range aos {
		ao, err := activechart.NewWithMachine(c, fmt.Sprintf("ao%d", i), activechart.WithQueueCapacity(queue))
		if err != nil {
			b.Fatal(err)
		}
		p.MustRegister(ao)
		aos[i] = ao
	}
	if err := p.StartAll(context.Background()); err != nil {
		b.Fatal(err)
	}
	return k, p, aos, c
}

func BenchmarkPostAndDispatch(b *testing.B) {
	k, _, aos, _ := newProcessor(b, 1, 8, kernel.Config{})
	ao := aos[0]
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ao.PostFIFO(TickMsg); err != nil {
			b.Fatal(err)
		}
		k.Step()
	}
}

func BenchmarkImmutableCycle(b *testing.B) {
	for _, n := range []int{1, 4, 10} {
		b.Run(fmt.Sprintf("objects=%d", n), func(b *testing.B) {
			_, p, aos, _ := newProcessor(b, n, 2, kernel.Config{})
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for _, ao := range aos {
					_ = ao.PostFIFO(TickMsg)
				}
				p.ProcessImmutableCycle(ctx)
			}
		})
	}
}

func BenchmarkMutableRoundTrip(b *testing.B) {
	k, p, aos, _ := newProcessor(b, 1, 0, kernel.Config{})
	ao := aos[0]
	payload := make([]byte, 16)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m, err := p.AllocateMsg(TickSignal, payload)
		if err != nil {
			b.Fatal(err)
		}
		if err := ao.PostMutable(m); err != nil {
			b.Fatal(err)
		}
		k.Step()
	}
}

// BenchmarkThroughput posts from several producers while the kernel run
// loop dispatches. Full queues drop, as an interrupt handler would.
func BenchmarkThroughput(b *testing.B) {
	const producers = 8
	k, _, aos, c := newProcessor(b, 4, 64, kernel.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = k.Run(ctx)
	}()

	var dropped atomic.Int64
	var wg sync.WaitGroup
	b.ResetTimer()
	for w := 0; w < producers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ao := aos[w%len(aos)]
			for i := w; i < b.N; i += producers {
				if ao.PostFIFO(TickMsg) != nil {
					dropped.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()
	b.StopTimer()
	cancel()
	<-done

	b.ReportMetric(float64(c.n.Load()), "dispatched")
	b.ReportMetric(float64(dropped.Load())/float64(b.N), "drop/op")
}

func BenchmarkRegisterObjects(b *testing.B) {
	topo := GenFlatTopology(4)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		k := kernel.New(kernel.Config{}, kernel.WithLogger(Discard))
		p, err := activechart.NewProcessor(k, activechart.WithLogger(Discard))
		if err != nil {
			b.Fatal(err)
		}
		for j := 0; j < activechart.DefaultRegistryCapacity; j++ {
			ao, err := activechart.New(topo, fmt.Sprintf("ao%d", j))
			if err != nil {
				b.Fatal(err)
			}
			p.MustRegister(ao)
		}
	}
}
