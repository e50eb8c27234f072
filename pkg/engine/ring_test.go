package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingKeepsNewestItemsInOrder(t *testing.T) {
	ring := NewRing[int](HistoryCapacity)
	for i := 1; i <= 51; i++ {
		ring.Append(i)
	}

	items := ring.Items()
	assert.Equal(t, 50, ring.Len())
	assert.Equal(t, 2, items[0])
	assert.Equal(t, 51, items[49])
	for i := 1; i < len(items); i++ {
		assert.Equal(t, items[i-1]+1, items[i])
	}
}

func TestRingLengthIsMinOfAppendsAndCapacity(t *testing.T) {
	ring := NewRing[string](3)
	assert.Equal(t, 0, ring.Len())
	ring.Append("a")
	ring.Append("b")
	assert.Equal(t, 2, ring.Len())
	assert.Equal(t, []string{"a", "b"}, ring.Items())
	ring.Append("c")
	ring.Append("d")
	assert.Equal(t, 3, ring.Len())
	assert.Equal(t, 3, ring.Cap())
	assert.Equal(t, []string{"b", "c", "d"}, ring.Items())
}

func TestRingItemsIsACopy(t *testing.T) {
	ring := NewRing[int](2)
	ring.Append(1)
	items := ring.Items()
	items[0] = 99
	assert.Equal(t, []int{1}, ring.Items())
}
