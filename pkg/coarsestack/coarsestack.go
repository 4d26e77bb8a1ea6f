package coarsestack

import "sync"

// CoarseStack is a push-only stack where every access serializes through a
// single mutex guarding the whole structure.
type CoarseStack[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty CoarseStack.
func New[T any]() *CoarseStack[T] {
	return &CoarseStack[T]{}
}

// Push appends item to the backing slice while holding the stack-wide lock.
// Appends are totally ordered by lock acquisition.
func (s *CoarseStack[T]) Push(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

// Len returns the number of pushed elements.
func (s *CoarseStack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Values returns the elements top of stack first.
func (s *CoarseStack[T]) Values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	for i, v := range s.items {
		out[len(s.items)-1-i] = v
	}
	return out
}
