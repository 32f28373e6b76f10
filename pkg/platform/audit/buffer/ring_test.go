package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingPreservesOrder(t *testing.T) {
	b := NewRing[int](4)
	for i := 1; i <= 3; i++ {
		assert.False(t, b.Enqueue(i))
	}

	assert.Equal(t, []int{1, 2}, b.DequeueBatch(2))
	assert.Equal(t, []int{3}, b.DequeueBatch(10))
	assert.Nil(t, b.DequeueBatch(1))
	assert.Equal(t, 0, b.Len())
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	b := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		b.Enqueue(i)
	}

	assert.True(t, b.Enqueue(4))
	assert.True(t, b.Enqueue(5))
	assert.Equal(t, int64(2), b.Dropped())
	assert.Equal(t, []int{3, 4, 5}, b.DequeueBatch(3))
}

func TestRingDefaultCapacity(t *testing.T) {
	b := NewRing[int](0)
	assert.Equal(t, DefaultCapacity, b.capacity)
}

func TestRingConcurrentUse(t *testing.T) {
	b := NewRing[int](1000)
	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Enqueue(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, b.Len())
	assert.Len(t, b.DequeueBatch(2000), 1000)
}
