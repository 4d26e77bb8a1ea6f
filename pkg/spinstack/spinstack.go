package spinstack

import (
	"github.com/zeromicro/go-zero/core/syncx"

	"github.com/anthonyjamesgoddard/LockFree/internal/stack"
)

// SpinStack has the same layout as the fine-grained stack, but the head swap
// is guarded by a busy-waiting spin lock instead of a sync.Mutex. Waiters
// never park; they yield the processor between attempts.
type SpinStack[T any] struct {
	lock   syncx.SpinLock
	head   *stack.Node[T]
	linked int // guarded by lock
}

// New creates an empty SpinStack.
func New[T any]() *SpinStack[T] {
	return &SpinStack[T]{}
}

// Push links a new node holding item on top of the stack.
func (s *SpinStack[T]) Push(item T) {
	n := &stack.Node[T]{Value: item}

	s.lock.Lock()
	n.Next = s.head
	s.head = n
	s.linked++
	s.lock.Unlock()
}

// Len walks the chain from head.
func (s *SpinStack[T]) Len() int {
	head, linked := s.snapshot()
	n, err := stack.Count(head, linked)
	if err != nil {
		panic(err)
	}
	return n
}

// Values returns the elements top of stack first.
func (s *SpinStack[T]) Values() []T {
	head, linked := s.snapshot()
	out, err := stack.Collect(head, linked)
	if err != nil {
		panic(err)
	}
	return out
}

// Linked returns how many nodes have been linked by Push.
func (s *SpinStack[T]) Linked() int {
	_, linked := s.snapshot()
	return linked
}

func (s *SpinStack[T]) snapshot() (*stack.Node[T], int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.head, s.linked
}
