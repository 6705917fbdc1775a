package primitives

import "sync"

// Context is a machine's extended state. Actions run on the dispatcher only,
// but snapshots may be taken from elsewhere, so access is locked.
type Context struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{data: make(map[string]any)}
}

// Get retrieves a value by key.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set stores a value by key.
func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
}

// Delete removes a key.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Int returns the integer stored at key, or 0 when absent or not an int.
func (c *Context) Int(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, _ := c.data[key].(int)
	return n
}

// Incr adds delta to the integer at key and returns the new value.
func (c *Context) Incr(key string, delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := c.data[key].(int)
	n += delta
	c.data[key] = n
	return n
}

// Snapshot returns a copy of the data for persistence.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]any, len(c.data))
	for k, v := range c.data {
		snap[k] = v
	}
	return snap
}

// Restore replaces the data with a copy of snap.
func (c *Context) Restore(snap map[string]any) {
	data := make(map[string]any, len(snap))
	for k, v := range snap {
		data[k] = v
	}
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
}
