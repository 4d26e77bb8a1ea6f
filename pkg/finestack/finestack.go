package finestack

import (
	"sync"

	"github.com/anthonyjamesgoddard/LockFree/internal/stack"
)

// FineStack is a singly linked stack whose mutex protects only the head
// swap. Node allocation happens before the lock is taken.
type FineStack[T any] struct {
	mu     sync.Mutex
	head   *stack.Node[T]
	linked int // nodes linked so far, guarded by mu
}

// New creates an empty FineStack.
func New[T any]() *FineStack[T] {
	return &FineStack[T]{}
}

// Push links a new node holding item on top of the stack.
func (s *FineStack[T]) Push(item T) {
	n := &stack.Node[T]{Value: item}

	s.mu.Lock()
	n.Next = s.head
	s.head = n
	s.linked++
	s.mu.Unlock()
}

// Len walks the chain from head. It panics if the chain is longer than the
// number of linked nodes, which would mean the list has been corrupted.
func (s *FineStack[T]) Len() int {
	head, linked := s.snapshot()
	n, err := stack.Count(head, linked)
	if err != nil {
		panic(err)
	}
	return n
}

// Values returns the elements top of stack first.
func (s *FineStack[T]) Values() []T {
	head, linked := s.snapshot()
	out, err := stack.Collect(head, linked)
	if err != nil {
		panic(err)
	}
	return out
}

// Linked returns how many nodes have been linked by Push.
func (s *FineStack[T]) Linked() int {
	_, linked := s.snapshot()
	return linked
}

func (s *FineStack[T]) snapshot() (*stack.Node[T], int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, s.linked
}
