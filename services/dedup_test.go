package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupCacheSeen(t *testing.T) {
	c := NewDedupCache(time.Minute)

	assert.False(t, c.Seen("evt_1"))
	assert.True(t, c.Seen("evt_1"))
	assert.False(t, c.Seen("evt_2"))
	assert.Equal(t, 2, c.Size())
}

func TestDedupCacheEmptyID(t *testing.T) {
	c := NewDedupCache(time.Minute)

	assert.False(t, c.Seen(""))
	assert.False(t, c.Seen(""))
	assert.Zero(t, c.Size())
}

func TestDedupCacheTTLExpiry(t *testing.T) {
	c := NewDedupCache(20 * time.Millisecond)

	assert.False(t, c.Seen("evt_1"))
	time.Sleep(30 * time.Millisecond)

	// Expired entries read as unseen and are re-recorded.
	assert.False(t, c.Seen("evt_1"))
	assert.True(t, c.Seen("evt_1"))
}

func TestDedupCacheSweep(t *testing.T) {
	c := NewDedupCache(20 * time.Millisecond)
	c.Start()
	defer c.Stop()

	c.Seen("evt_1")
	c.Seen("evt_2")
	assert.Equal(t, 2, c.Size())

	assert.Eventually(t, func() bool {
		return c.Size() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestDedupCacheStopIdempotent(t *testing.T) {
	c := NewDedupCache(time.Minute)
	c.Start()
	c.Stop()
	c.Stop()
}
