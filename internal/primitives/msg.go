// Package primitives defines the data structures shared by the active-object
// layer and the state machine engine: message payloads, engine events,
// extended state, and the topology a machine is built from.
//
// It imports only the standard library so every other package can depend on
// it without pulling in adapters.
package primitives

import "encoding/binary"

// Signal identifies what a message means to a state machine.
type Signal uint16

// SigNone is reserved; it is never bound to an event name.
const SigNone Signal = 0

// SignalSize is the number of leading payload bytes that carry the signal.
const SignalSize = 2

// Msg is an opaque event payload. The first SignalSize bytes hold the
// little-endian Signal; the rest is signal-specific data.
//
// A Msg is a slice, so passing one around never copies the bytes: whoever
// allocated the backing array decides its lifetime.
type Msg []byte

// NewMsg allocates a payload carrying sig followed by a copy of data.
func NewMsg(sig Signal, data []byte) Msg {
	m := make(Msg, SignalSize+len(data))
	binary.LittleEndian.PutUint16(m, uint16(sig))
	copy(m[SignalSize:], data)
	return m
}

// PutSignal writes sig into the head of b. It reports false if b is too short.
func PutSignal(b []byte, sig Signal) bool {
	if len(b) < SignalSize {
		return false
	}
	binary.LittleEndian.PutUint16(b, uint16(sig))
	return true
}

// Signal returns the message signal, or SigNone for a payload too short to
// carry one.
func (m Msg) Signal() Signal {
	if len(m) < SignalSize {
		return SigNone
	}
	return Signal(binary.LittleEndian.Uint16(m))
}

// Data returns the bytes following the signal.
func (m Msg) Data() []byte {
	if len(m) < SignalSize {
		return nil
	}
	return m[SignalSize:]
}
