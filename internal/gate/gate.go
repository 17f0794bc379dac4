// Package gate provides the bounded-concurrency admission control for one
// upload run. It wraps golang.org/x/sync/semaphore, which queues waiters in
// FIFO order and hands a released permit directly to the longest waiter.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const (
	MinCapacity = 1
	MaxCapacity = 10
)

// Gate admits at most Capacity concurrently-running tasks. Capacity is fixed
// for the lifetime of one run; a new run gets a fresh gate.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
}

// New creates a gate with the given capacity, clamped to [1,10].
func New(capacity int) *Gate {
	capacity = Clamp(capacity)
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a permit is available or ctx is done. Waiters are
// served first-come-first-served. Every successful Acquire must be paired
// with exactly one Release on every exit path.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns a permit; if a waiter exists it receives the permit
// immediately.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Capacity returns the fixed permit count.
func (g *Gate) Capacity() int {
	return g.capacity
}

// Clamp bounds a requested parallel count to the supported range.
func Clamp(n int) int {
	if n < MinCapacity {
		return MinCapacity
	}
	if n > MaxCapacity {
		return MaxCapacity
	}
	return n
}
