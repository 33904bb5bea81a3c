package services

import (
	"log"
	"sync"
	"time"
)

// DedupCache remembers recently seen event ids so webhook retries and consumer
// redeliveries do not double-count. It is an explicit, injected structure with
// a TTL sweep; lifecycle is tied to the hosting service's startup/shutdown.
type DedupCache struct {
	mutex sync.Mutex
	seen  map[string]time.Time
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

// NewDedupCache creates a cache whose entries expire after ttl.
func NewDedupCache(ttl time.Duration) *DedupCache {
	return &DedupCache{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
}

// Start launches the background sweep. Safe to call once per cache.
func (c *DedupCache) Start() {
	go func() {
		ticker := time.NewTicker(c.ttl / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep goroutine.
func (c *DedupCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Seen reports whether the id was already recorded within the TTL, recording
// it as a side effect when new.
func (c *DedupCache) Seen(id string) bool {
	if id == "" {
		return false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if at, ok := c.seen[id]; ok && time.Since(at) < c.ttl {
		return true
	}
	c.seen[id] = time.Now()
	return false
}

// Size returns the number of retained entries.
func (c *DedupCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.seen)
}

func (c *DedupCache) sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	removed := 0
	for id, at := range c.seen {
		if at.Before(cutoff) {
			delete(c.seen, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("Dedup cache sweep removed %d expired entries, %d retained", removed, len(c.seen))
	}
}
