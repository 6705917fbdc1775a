// Package testutil provides a recording state machine and a kernel
// harness for testing active objects.
package testutil

import (
	"context"
	"sync"

	"github.com/comalice/activechart"
)

// Record is one dispatched message.
type Record struct {
	Object string
	Signal activechart.Signal
	Data   []byte // copy of the payload after the signal
	Ptr    *byte  // address of the first payload byte, nil for empty payloads
}

// Log collects starts and dispatches across recorders, in order.
type Log struct {
	mu      sync.Mutex
	starts  []string
	records []Record
}

// Starts returns the object names in the order they were started.
func (l *Log) Starts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.starts...)
}

// Records returns every dispatch so far.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Objects returns the object name of each dispatch, in order.
func (l *Log) Objects() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, len(l.records))
	for i, r := range l.records {
		names[i] = r.Object
	}
	return names
}

// Signals returns the signals dispatched to object, in order.
func (l *Log) Signals(object string) []activechart.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sigs []activechart.Signal
	for _, r := range l.records {
		if r.Object == object {
			sigs = append(sigs, r.Signal)
		}
	}
	return sigs
}

// Reset forgets everything recorded.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts = nil
	l.records = nil
}

// Recorder is an activechart.StateMachine that records what it is given.
// The hooks, when set, run after recording and their error is returned.
type Recorder struct {
	Name       string
	Log        *Log
	OnStart    func(ctx context.Context) error
	OnDispatch func(ctx context.Context, msg activechart.Msg) error
}

// NewRecorder returns a Recorder writing to log.
func NewRecorder(name string, log *Log) *Recorder {
	return &Recorder{Name: name, Log: log}
}

func (r *Recorder) Start(ctx context.Context) error {
	r.Log.mu.Lock()
	r.Log.starts = append(r.Log.starts, r.Name)
	r.Log.mu.Unlock()
	if r.OnStart != nil {
		return r.OnStart(ctx)
	}
	return nil
}

func (r *Recorder) Dispatch(ctx context.Context, msg activechart.Msg) error {
	rec := Record{
		Object: r.Name,
		Signal: msg.Signal(),
		Data:   append([]byte(nil), msg.Data()...),
	}
	if len(msg) > 0 {
		rec.Ptr = &msg[0]
	}
	r.Log.mu.Lock()
	r.Log.records = append(r.Log.records, rec)
	r.Log.mu.Unlock()
	if r.OnDispatch != nil {
		return r.OnDispatch(ctx, msg)
	}
	return nil
}
