package lockfreestack

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"

	"github.com/anthonyjamesgoddard/LockFree/internal/stack"
)

// LockFreeStack is a singly linked stack whose head is only ever changed by
// compare-and-swap. Push never blocks, but a single call may retry any number
// of times while other pushers keep winning.
//
// Nodes are never reclaimed: the workload is push-only, so a node address can
// not be reused while the stack is alive and the CAS needs no ABA tag. Adding
// a pop requires a reclamation scheme first.
type LockFreeStack[T any] struct {
	head    atomic.Pointer[stack.Node[T]]
	_       [56]byte     // keeps the counters off the head cache line
	pushes  atomix.Int64 // incremented before the node is published
	retries atomix.Int64 // failed CAS attempts
	backoff Backoff
}

// Option configures a LockFreeStack.
type Option func(*options)

type options struct {
	backoff Backoff
}

// WithBackoff selects what a pusher does after losing a CAS race.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		o.backoff = b
	}
}

// New creates an empty LockFreeStack.
func New[T any](opts ...Option) *LockFreeStack[T] {
	o := options{backoff: BackoffNone}
	for _, opt := range opts {
		opt(&o)
	}
	return &LockFreeStack[T]{backoff: o.backoff}
}

// Push links a new node holding item on top of the stack.
//
// The node's next pointer is seeded with the current head. Each failed CAS
// refreshes it with the head that beat us, and the same node is retried.
func (s *LockFreeStack[T]) Push(item T) {
	n := &stack.Node[T]{Value: item}
	s.pushes.Add(1)

	var (
		sw spin.Wait
		bo iox.Backoff
	)
	if s.backoff == BackoffSleep {
		bo = newSleepBackoff()
	}
	n.Next = s.head.Load()
	for !s.head.CompareAndSwap(n.Next, n) {
		s.retries.Add(1)
		n.Next = s.head.Load()
		switch s.backoff {
		case BackoffSpin:
			sw.Once()
		case BackoffSleep:
			bo.Wait()
		}
	}
}

// Len walks the chain from head. It panics if the chain is longer than the
// number of pushes observed so far, which would mean the list is corrupted.
func (s *LockFreeStack[T]) Len() int {
	head := s.head.Load()
	n, err := stack.Count(head, int(s.pushes.Load()))
	if err != nil {
		panic(err)
	}
	return n
}

// Values returns the elements top of stack first.
func (s *LockFreeStack[T]) Values() []T {
	head := s.head.Load()
	out, err := stack.Collect(head, int(s.pushes.Load()))
	if err != nil {
		panic(err)
	}
	return out
}

// Linked returns how many Push calls have started. Once all pushers have
// returned it equals the number of reachable nodes.
func (s *LockFreeStack[T]) Linked() int {
	return int(s.pushes.Load())
}

// Retries returns the number of CAS attempts that lost a race.
func (s *LockFreeStack[T]) Retries() int64 {
	return s.retries.Load()
}

// Backoff reports the configured contention strategy.
func (s *LockFreeStack[T]) Backoff() Backoff {
	return s.backoff
}
