package primitives

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextValues(t *testing.T) {
	c := NewContext()

	_, ok := c.Get("presses")
	assert.False(t, ok)
	assert.Zero(t, c.Int("presses"))

	c.Set("mode", "blink")
	c.Set("presses", 2)
	v, ok := c.Get("mode")
	require.True(t, ok)
	assert.Equal(t, "blink", v)
	assert.Zero(t, c.Int("mode"), "non-int reads as zero")
	assert.Equal(t, 2, c.Int("presses"))

	c.Delete("mode")
	_, ok = c.Get("mode")
	assert.False(t, ok)
	c.Delete("mode")
}

func TestContextIncr(t *testing.T) {
	c := NewContext()
	assert.Equal(t, 1, c.Incr("ticks", 1))
	assert.Equal(t, 11, c.Incr("ticks", 10))
	assert.Equal(t, 8, c.Incr("ticks", -3))

	c.Set("label", "x")
	assert.Equal(t, 4, c.Incr("label", 4), "non-int restarts from zero")
}

func TestContextIncrFromManyGoroutines(t *testing.T) {
	c := NewContext()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 250 {
				c.Incr("ticks", 1)
				c.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2000, c.Int("ticks"))
}

func TestContextSnapshotIsolation(t *testing.T) {
	c := NewContext()
	c.Set("presses", 3)

	snap := c.Snapshot()
	snap["presses"] = 99
	snap["extra"] = true
	assert.Equal(t, 3, c.Int("presses"), "snapshot is a copy")

	src := map[string]any{"presses": 7}
	other := NewContext()
	other.Set("stale", 1)
	other.Restore(src)
	src["presses"] = 0

	assert.Equal(t, 7, other.Int("presses"), "restore copies its input")
	_, ok := other.Get("stale")
	assert.False(t, ok, "restore replaces existing data")

	other.Restore(nil)
	assert.Empty(t, other.Snapshot())
}
