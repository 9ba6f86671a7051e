package position

import "sync"

// Centerer decides when the viewport should jump to the train. It fires once
// per distinct entity, on the first observation that carries a snapshot, and
// re-arms whenever the observed entity changes.
type Centerer struct {
	mu       sync.Mutex
	entityID string
	fired    bool
}

// Observe records the current entity and reports whether to center now
func (c *Centerer) Observe(entityID string, hasSnapshot bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entityID != c.entityID {
		c.entityID = entityID
		c.fired = false
	}
	if c.fired || entityID == "" || !hasSnapshot {
		return false
	}
	c.fired = true
	return true
}

// Reset forgets the current entity so the next snapshot recenters
func (c *Centerer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entityID = ""
	c.fired = false
}
