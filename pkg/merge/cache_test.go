package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-mods/stratum/pkg/merge"
)

func TestCacheGetRequiresMatchingKey(t *testing.T) {
	c := merge.NewCache()
	c.Put(&merge.MergedResource{Path: "a.sdoc", Data: []byte("x"), Key: 7})

	got, ok := c.Get("a.sdoc", 7)
	require.True(t, ok)
	assert.Equal(t, []byte("x"), got.Data)

	_, ok = c.Get("a.sdoc", 8)
	assert.False(t, ok)

	_, ok = c.Get("missing.sdoc", 7)
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := merge.NewCache()
	c.Put(&merge.MergedResource{Path: "a.sdoc", Key: 1})
	c.Put(&merge.MergedResource{Path: "b.sdoc", Key: 2})
	require.Equal(t, 2, c.Len())

	c.Invalidate("a.sdoc")
	_, ok := c.Get("a.sdoc", 1)
	assert.False(t, ok)
	_, ok = c.Get("b.sdoc", 2)
	assert.True(t, ok)

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Paths())
}

func TestCacheRemove(t *testing.T) {
	c := merge.NewCache()
	c.Put(&merge.MergedResource{Path: "a.sdoc", Key: 1})
	c.Remove("a.sdoc")
	_, ok := c.Get("a.sdoc", 1)
	assert.False(t, ok)
}
