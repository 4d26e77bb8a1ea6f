package finestack

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	s := New[string]()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Linked())
	assert.Empty(t, s.Values())
}

func TestSequentialLIFO(t *testing.T) {
	s := New[int]()
	for _, v := range []int{1, 2, 3} {
		s.Push(v)
	}
	assert.Equal(t, []int{3, 2, 1}, s.Values())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.Linked())
}

func TestPushKeepsOwnPayload(t *testing.T) {
	s := New[[]int]()
	a := []int{1, 2, 3}
	s.Push(a)
	s.Push([]int{4})

	vals := s.Values()
	require.Len(t, vals, 2)
	assert.Equal(t, []int{4}, vals[0])
	assert.Equal(t, a, vals[1])
}

func TestConcurrentPushConservation(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 8} {
		const perWorker = 2000
		s := New[int]()

		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func(w int) {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					s.Push(w*perWorker + j)
				}
			}(w)
		}
		wg.Wait()

		total := workers * perWorker
		require.Equal(t, total, s.Linked())
		require.Equal(t, total, s.Len(), "chain must end after exactly the linked nodes")

		seen := make(map[int]bool, total)
		for _, v := range s.Values() {
			require.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
		require.Len(t, seen, total)
	}
}

func BenchmarkPushParallel(b *testing.B) {
	s := New[int]()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			s.Push(i)
			i++
		}
	})
}
