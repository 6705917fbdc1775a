// Tests for ChannelPublisher delivery and Machine integration.
package production

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/activechart/internal/core"
	"github.com/comalice/activechart/internal/primitives"
)

func TestChannelPublisher_Delivery(t *testing.T) {
	ch := make(chan PublishedEvent, 10)
	p := NewChannelPublisher(ch)

	event := primitives.Event{Type: "e1", Signal: 1}
	meta := core.MachineMetadata{
		MachineID: "test-machine",
		Source:    "s1",
		Target:    "s2",
		Timestamp: time.Now(),
	}
	require.NoError(t, p.Publish(context.Background(), event, meta))

	select {
	case got := <-ch:
		assert.Equal(t, event.Type, got.Event.Type)
		assert.Equal(t, meta.MachineID, got.Metadata.MachineID)
		assert.Equal(t, "s2", got.Metadata.Target)
	default:
		t.Fatal("no event delivered")
	}
}

func TestChannelPublisher_BackpressureDrop(t *testing.T) {
	ch := make(chan PublishedEvent, 1)
	p := NewChannelPublisher(ch)
	ch <- PublishedEvent{} // fill buffer

	err := p.Publish(context.Background(), primitives.Event{Type: "drop"}, core.MachineMetadata{MachineID: "test"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Dropped())
}

func TestChannelPublisher_Close(t *testing.T) {
	ch := make(chan PublishedEvent, 1)
	p := NewChannelPublisher(ch)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, open := <-ch
	assert.False(t, open)

	err := p.Publish(context.Background(), primitives.Event{}, core.MachineMetadata{})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestChannelPublisher_Integration_Machine(t *testing.T) {
	ch := make(chan PublishedEvent, 10)
	m, err := core.NewMachine(simpleTopology(), "simple0", core.WithPublisher(NewChannelPublisher(ch)))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Dispatch(ctx, primitives.NewMsg(1, []byte("payload"))))

	start := <-ch
	assert.Equal(t, "s1", start.Metadata.Target)
	got := <-ch
	assert.Equal(t, "simple0", got.Metadata.Name)
	assert.Equal(t, "s1", got.Metadata.Source)
	assert.Equal(t, "s2", got.Metadata.Target)
	assert.Equal(t, "e1", got.Event.Type)
	assert.Nil(t, got.Event.Msg)
}
