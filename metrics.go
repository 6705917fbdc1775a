package activechart

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the processor's Prometheus collectors. A nil *metrics
// records nothing.
type metrics struct {
	posts          *prometheus.CounterVec // by object and kind (fifo, lifo, mutable)
	overflows      *prometheus.CounterVec // by object
	dispatches     *prometheus.CounterVec // by object and path (immutable, mutable)
	dispatchErrors *prometheus.CounterVec // by object
	queueDepth     *prometheus.GaugeVec   // by object
	highWater      *prometheus.GaugeVec   // by object
	allocFailures  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, host Host) (*metrics, error) {
	m := &metrics{
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activechart",
			Name:      "posts_total",
			Help:      "Messages accepted for an active object",
		}, []string{"object", "kind"}),

		overflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activechart",
			Name:      "overflows_total",
			Help:      "Posts rejected because a queue or the mailbox was full",
		}, []string{"object"}),

		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activechart",
			Name:      "dispatches_total",
			Help:      "Messages dispatched to a state machine",
		}, []string{"object", "path"}),

		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activechart",
			Name:      "dispatch_errors_total",
			Help:      "Dispatches the state machine reported an error for",
		}, []string{"object"}),

		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "activechart",
			Name:      "queue_depth",
			Help:      "Messages waiting in an object's queue after the last cycle",
		}, []string{"object"}),

		highWater: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "activechart",
			Name:      "queue_high_water",
			Help:      "Deepest an object's queue has been",
		}, []string{"object"}),

		allocFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "activechart",
			Name:      "alloc_failures_total",
			Help:      "Mutable message allocations the pool could not satisfy",
		}),
	}

	poolInUse := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "activechart",
		Subsystem: "pool",
		Name:      "in_use_bytes",
		Help:      "Bytes of the kernel message pool currently allocated",
	}, func() float64 {
		return float64(host.PoolStats().InUse)
	})

	for _, c := range []prometheus.Collector{
		m.posts, m.overflows, m.dispatches, m.dispatchErrors,
		m.queueDepth, m.highWater, m.allocFailures, poolInUse,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) watch(ao *ActiveObject) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(ao.name).Set(0)
	m.highWater.WithLabelValues(ao.name).Set(0)
}

func (m *metrics) posted(object, kind string) {
	if m == nil {
		return
	}
	m.posts.WithLabelValues(object, kind).Inc()
}

func (m *metrics) overflow(object string) {
	if m == nil {
		return
	}
	m.overflows.WithLabelValues(object).Inc()
}

func (m *metrics) dispatched(object, path string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(object, path).Inc()
}

func (m *metrics) dispatchFailed(object string) {
	if m == nil {
		return
	}
	m.dispatchErrors.WithLabelValues(object).Inc()
}

func (m *metrics) depth(object string, n, highWater int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(object).Set(float64(n))
	m.highWater.WithLabelValues(object).Set(float64(highWater))
}

func (m *metrics) allocFailed() {
	if m == nil {
		return
	}
	m.allocFailures.Inc()
}
