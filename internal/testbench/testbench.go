package testbench

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anthonyjamesgoddard/LockFree/internal/stack"
)

// ErrInvalidConfig is returned when a workload cannot be run.
var ErrInvalidConfig = errors.New("testbench: invalid config")

// Config describes one push-only workload: how many workers share the stack
// and how many items they push in total.
type Config struct {
	NumWorkers int
	TotalItems int
}

// Validate reports whether the workload can be run.
func (c Config) Validate() error {
	if c.NumWorkers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.NumWorkers)
	}
	if c.TotalItems < 0 {
		return fmt.Errorf("%w: total items must be >= 0, got %d", ErrInvalidConfig, c.TotalItems)
	}
	return nil
}

// ItemsForWorker returns how many pushes worker i performs. The remainder of
// TotalItems/NumWorkers goes one item each to the first workers, so the
// shares always add up to TotalItems.
func (c Config) ItemsForWorker(i int) int {
	n := c.TotalItems / c.NumWorkers
	if i < c.TotalItems%c.NumWorkers {
		n++
	}
	return n
}

// firstIndex returns the global index of worker i's first item.
func (c Config) firstIndex(i int) int {
	base := c.TotalItems / c.NumWorkers
	rem := c.TotalItems % c.NumWorkers
	return i*base + min(i, rem)
}

// RunPushTest spawns cfg.NumWorkers goroutines that push their share of
// cfg.TotalItems onto s, and waits for all of them. Every value is built by
// valueGenerator inside the worker, from its global index.
// Returns the number of completed pushes and the wall-clock time from spawn
// to join.
func RunPushTest[T any, S stack.PushValidationInterface[T]](
	s S,
	cfg Config,
	valueGenerator func(int) T,
) (pushedCount int64, elapsed time.Duration, err error) {
	if err := cfg.Validate(); err != nil {
		return 0, 0, err
	}

	var totalPushed int64
	var g errgroup.Group

	start := time.Now()

	// Spawn workers.
	for i := 0; i < cfg.NumWorkers; i++ {
		first := cfg.firstIndex(i)
		count := cfg.ItemsForWorker(i)
		g.Go(func() error {
			for j := 0; j < count; j++ {
				s.Push(valueGenerator(first + j))
			}
			atomic.AddInt64(&totalPushed, int64(count))
			return nil
		})
	}

	// Workers never fail; Wait is the join.
	_ = g.Wait()

	elapsed = time.Since(start)
	return atomic.LoadInt64(&totalPushed), elapsed, nil
}

// IntSlicePayload returns a generator that builds a fresh []int{0..size-1}
// for every push, the payload shape of the reference workload.
func IntSlicePayload(size int) func(int) []int {
	return func(int) []int {
		v := make([]int, 0, size)
		for j := 0; j < size; j++ {
			v = append(v, j)
		}
		return v
	}
}

// IntPayload returns a generator that pushes the global index itself.
// Useful for checking which values were linked.
func IntPayload() func(int) int {
	return func(i int) int { return i }
}
