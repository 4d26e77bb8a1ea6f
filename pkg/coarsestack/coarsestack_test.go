package coarsestack

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	s := New[int]()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Values())
}

func TestSequentialLIFO(t *testing.T) {
	s := New[int]()
	s.Push(1)
	s.Push(2)
	s.Push(3)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int{3, 2, 1}, s.Values())
}

func TestValuesIsASnapshot(t *testing.T) {
	s := New[int]()
	s.Push(1)
	vals := s.Values()
	vals[0] = 42
	s.Push(2)
	assert.Equal(t, []int{2, 1}, s.Values())
}

func TestConcurrentPushConservation(t *testing.T) {
	const (
		workers   = 8
		perWorker = 5000
	)
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

	require.Equal(t, workers*perWorker, s.Len())
	seen := make([]bool, workers*perWorker)
	for _, v := range s.Values() {
		require.Falsef(t, seen[v], "value %d pushed once but found twice", v)
		seen[v] = true
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
