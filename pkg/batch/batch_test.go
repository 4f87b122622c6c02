package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	items := make([]int, 45)
	for i := range items {
		items[i] = i
	}

	batches := Partition(items, 20)
	assert.Len(t, batches, 3)
	assert.Len(t, batches[0], 20)
	assert.Len(t, batches[1], 20)
	assert.Len(t, batches[2], 5)
	assert.Equal(t, 0, batches[0][0])
	assert.Equal(t, 44, batches[2][4])
}

func TestPartition_EdgeCases(t *testing.T) {
	assert.Nil(t, Partition([]string{}, 10))

	single := Partition([]string{"a", "b"}, 0)
	assert.Len(t, single, 1)
	assert.Equal(t, []string{"a", "b"}, single[0])

	exact := Partition([]int{1, 2, 3, 4}, 2)
	assert.Len(t, exact, 2)

	oversized := Partition([]int{1, 2}, 10)
	assert.Len(t, oversized, 1)
}

func TestDedupe(t *testing.T) {
	assert.Nil(t, Dedupe(nil))
	assert.Equal(t, []string{"a", "b", "c"}, Dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{"x"}, Dedupe([]string{"x", "x", "x"}))
}
