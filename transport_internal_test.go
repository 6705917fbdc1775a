package activechart

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/activechart/kernel"
)

func TestEnvelopeAlignment(t *testing.T) {
	assert.Zero(t, EnvelopeSize%kernel.Alignment)
	assert.GreaterOrEqual(t, EnvelopeSize, kernel.HeaderSize)
}

func TestSealAndDecodeEnvelope(t *testing.T) {
	k := kernel.New(kernel.Config{})
	tr := NewTransport(k)
	m, err := tr.AllocateMsg(9, []byte("abc"))
	require.NoError(t, err)

	seal(m.buf, 3)
	env, err := envelopeOf(m.buf)
	require.NoError(t, err)
	assert.Equal(t, SysMsgActiveObject, env.tag)
	assert.Equal(t, uint8(0), env.status)
	assert.Equal(t, uint16(3), env.target)
	assert.Equal(t, SysMsgActiveObject, m.buf.Event(), "envelope starts with the kernel header")
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(m.buf.Bytes()[2:4]))

	payload := m.Payload()
	assert.Equal(t, Signal(9), payload.Signal())
	assert.Equal(t, "abc", string(payload.Data()))
	assert.Same(t, &m.buf.Bytes()[EnvelopeSize], &payload[0])
}

func TestEnvelopeOfShortBuffer(t *testing.T) {
	k := kernel.New(kernel.Config{})
	buf := k.MsgAllocate(2)
	require.NotNil(t, buf)
	_, err := envelopeOf(buf)
	assert.ErrorIs(t, err, ErrBadEnvelope)
}

func TestAllocateZeroesEnvelope(t *testing.T) {
	k := kernel.New(kernel.Config{})
	m, err := NewTransport(k).Allocate(4)
	require.NoError(t, err)
	env, err := envelopeOf(m.buf)
	require.NoError(t, err)
	assert.Equal(t, envelope{}, env)
	assert.Len(t, m.Payload(), 4)
}
