package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/activechart"
	"github.com/comalice/activechart/kernel"
)

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Harness is a kernel and a processor wired together, driven by hand
// through Drain instead of a run loop.
type Harness struct {
	Kernel    *kernel.Kernel
	Processor *activechart.Processor
	Log       *Log
}

// NewHarness builds a kernel with cfg and a processor on it. Loggers are
// discarded unless opts set one.
func NewHarness(t testing.TB, cfg kernel.Config, opts ...activechart.Option) *Harness {
	t.Helper()
	k := kernel.New(cfg, kernel.WithLogger(DiscardLogger()))
	opts = append([]activechart.Option{activechart.WithLogger(DiscardLogger())}, opts...)
	p, err := activechart.NewProcessor(k, opts...)
	require.NoError(t, err)
	return &Harness{Kernel: k, Processor: p, Log: &Log{}}
}

// Object builds a recorder-backed active object and registers it.
func (h *Harness) Object(t testing.TB, name string, opts ...activechart.ObjectOption) (*activechart.ActiveObject, *Recorder) {
	t.Helper()
	rec := NewRecorder(name, h.Log)
	ao, err := activechart.NewWithMachine(rec, name, opts...)
	require.NoError(t, err)
	require.NoError(t, h.Processor.Register(ao))
	return ao, rec
}

// maxPasses bounds Drain so a livelock fails the test instead of hanging.
const maxPasses = 100000

// Drain runs kernel passes until no task has work and returns how many
// passes ran.
func (h *Harness) Drain(t testing.TB) int {
	t.Helper()
	for n := 0; n < maxPasses; n++ {
		if !h.Kernel.Step() {
			return n
		}
	}
	t.Fatalf("kernel still busy after %d passes", maxPasses)
	return maxPasses
}
