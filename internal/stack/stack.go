package stack

import "errors"

// ErrCycle is returned by chain walks that did not reach the end of the
// chain within the number of nodes the stack reports as linked.
var ErrCycle = errors.New("stack: chain does not terminate")

// PushValidationInterface is the method set every stack exposes. The harness
// uses it as a type constraint; the bench command stores stacks behind it.
type PushValidationInterface[T any] interface {
	// Push adds an element on top of the stack. It never fails.
	Push(T)

	// Len returns how many elements are reachable from the top of the stack.
	Len() int

	// Values returns the reachable elements, most recently pushed first.
	// Callers are expected to invoke it once all pushers have been joined.
	Values() []T
}

// Node is one element of a linked stack. Once a node is reachable from a
// stack head its fields are never written again.
type Node[T any] struct {
	Value T
	Next  *Node[T]
}

// Count walks the chain starting at head and returns its length. At most
// limit nodes are visited; a chain that is still going after that is
// reported as ErrCycle.
func Count[T any](head *Node[T], limit int) (int, error) {
	n := 0
	for cur := head; cur != nil; cur = cur.Next {
		if n == limit {
			return n, ErrCycle
		}
		n++
	}
	return n, nil
}

// Collect walks the chain like Count and gathers the values head to tail.
func Collect[T any](head *Node[T], limit int) ([]T, error) {
	out := make([]T, 0, limit)
	for cur := head; cur != nil; cur = cur.Next {
		if len(out) == limit {
			return out, ErrCycle
		}
		out = append(out, cur.Value)
	}
	return out, nil
}
