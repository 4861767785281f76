package h1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderCacheHitAndInsert(t *testing.T) {
	cfg := DefaultConfig()
	c := NewHeaderCache(&cfg)

	line := []byte("Host: example.org")
	_, ok := c.Lookup(line)
	assert.False(t, ok)

	c.Insert(line, NewHeader("Host", "example.org"))
	got, ok := c.Lookup(line)
	assert.True(t, ok)
	assert.Equal(t, "example.org", got.Value)
	assert.Equal(t, "host", got.Name)
}

func TestHeaderCachePerNameCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeaderCacheCapacityPerName = 2
	c := NewHeaderCache(&cfg)

	c.Insert([]byte("X-A: 1"), NewHeader("X-A", "1"))
	c.Insert([]byte("X-A: 2"), NewHeader("X-A", "2"))
	c.Insert([]byte("X-A: 3"), NewHeader("X-A", "3"))

	_, ok := c.Lookup([]byte("X-A: 3"))
	assert.False(t, ok, "third distinct value should not be cached past capacity")

	_, ok = c.Lookup([]byte("X-A: 1"))
	assert.True(t, ok)
}

func TestHeaderCacheNodeBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeaderCacheNodeBudget = 3
	c := NewHeaderCache(&cfg)

	c.Insert([]byte("X-Long-Header-Name: value"), NewHeader("X-Long-Header-Name", "value"))
	assert.LessOrEqual(t, c.Size(), 3)
	_, ok := c.Lookup([]byte("X-Long-Header-Name: value"))
	assert.False(t, ok)
}
