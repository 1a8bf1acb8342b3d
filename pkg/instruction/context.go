package instruction

import (
	"sync"
)

// Context is the key/value store threaded through an instruction tree.
// It is the only shared mutable resource between instructions: each
// instruction reads its context, produces new or updated keys, and the
// composing combinator decides how those updates propagate to siblings.
// Composite instructions merge child output forward; parallel instructions
// hand each child a Snapshot taken at fan-out time.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewContext creates a context seeded with the given values.
// The map is copied; the caller retains ownership of its argument.
func NewContext(values map[string]any) *Context {
	c := &Context{values: make(map[string]any, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Get returns the value stored under key and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the string value stored under key, or "" if the key
// is absent or holds a non-string value.
func (c *Context) GetString(key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Set stores value under key.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Merge folds every entry of updates into the context, overwriting
// existing keys.
func (c *Context) Merge(updates map[string]any) {
	if len(updates) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range updates {
		c.values[k] = v
	}
}

// Snapshot returns a shallow copy of the context. Mutations on the copy
// are not visible to the original, and vice versa. Values themselves are
// shared; side-effect-free values are assumed.
func (c *Context) Snapshot() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := &Context{values: make(map[string]any, len(c.values))}
	for k, v := range c.values {
		snap.values[k] = v
	}
	return snap
}

// Values returns a copy of the underlying map.
func (c *Context) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Len returns the number of keys in the context.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
