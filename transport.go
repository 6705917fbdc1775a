package activechart

import (
	"encoding/binary"
	"fmt"

	"github.com/comalice/activechart/internal/primitives"
	"github.com/comalice/activechart/kernel"
)

const (
	// SysMsgActiveObject is the kernel message tag of mutable messages.
	SysMsgActiveObject uint8 = 10

	// EnvelopeSize is the number of bytes in front of a mutable payload.
	EnvelopeSize = 4

	// NoObject is the target id of an envelope not addressed to anyone.
	NoObject uint16 = 0xFFFF
)

// The payload must start on an allocation boundary.
var _ = [1]struct{}{}[EnvelopeSize%kernel.Alignment]

// envelope is the header of a mutable message buffer:
//
//	byte 0     kernel event tag, SysMsgActiveObject
//	byte 1     status, reserved
//	bytes 2-3  target object id, little endian
//
// The first two bytes are the kernel's own message header.
type envelope struct {
	tag    uint8
	status uint8
	target uint16
}

func envelopeOf(buf *kernel.Buffer) (envelope, error) {
	b := buf.Bytes()
	if len(b) < EnvelopeSize {
		return envelope{}, fmt.Errorf("%w: %d byte buffer", ErrBadEnvelope, len(b))
	}
	return envelope{
		tag:    b[0],
		status: b[1],
		target: binary.LittleEndian.Uint16(b[2:EnvelopeSize]),
	}, nil
}

// seal addresses buf to target.
func seal(buf *kernel.Buffer, target uint16) {
	buf.SetEvent(SysMsgActiveObject)
	binary.LittleEndian.PutUint16(buf.Bytes()[2:EnvelopeSize], target)
}

// Mutable is a message whose bytes live in a kernel buffer. The producer
// fills Payload, then hands the message to Processor.PostMutable, which
// moves it to the dispatcher: after a successful post the Mutable is
// empty and the dispatcher releases the buffer once the target's state
// machine has handled it. After a failed post the producer still owns the
// buffer and must post it again or Release it.
type Mutable struct {
	buf  *kernel.Buffer
	host Host
}

// Payload returns the message bytes following the envelope, or nil once
// the message has been posted or released.
func (m *Mutable) Payload() Msg {
	if m == nil || m.buf == nil {
		return nil
	}
	return Msg(m.buf.Bytes()[EnvelopeSize:])
}

// Release returns the buffer to the kernel pool.
func (m *Mutable) Release() error {
	if m == nil || m.buf == nil {
		return ErrReleased
	}
	buf := m.buf
	m.buf = nil
	return m.host.MsgDeallocate(buf)
}

// Transport allocates mutable messages from the host's buffer pool.
type Transport struct {
	host    Host
	metrics *metrics
}

// NewTransport returns a Transport over host's pool.
func NewTransport(host Host) *Transport {
	return &Transport{host: host}
}

// Allocate reserves a message with a size-byte payload. The envelope is
// zeroed and the payload is zero-filled. ErrAllocFailed means the pool is
// exhausted; it is transient.
func (t *Transport) Allocate(size int) (*Mutable, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	buf := t.host.MsgAllocate(EnvelopeSize + size)
	if buf == nil {
		t.metrics.allocFailed()
		return nil, fmt.Errorf("%w: %d byte payload", ErrAllocFailed, size)
	}
	return &Mutable{buf: buf, host: t.host}, nil
}

// AllocateMsg allocates a mutable message carrying sig followed by data.
func (t *Transport) AllocateMsg(sig Signal, data []byte) (*Mutable, error) {
	m, err := t.Allocate(primitives.SignalSize + len(data))
	if err != nil {
		return nil, err
	}
	payload := m.Payload()
	primitives.PutSignal(payload, sig)
	copy(payload[primitives.SignalSize:], data)
	return m, nil
}
