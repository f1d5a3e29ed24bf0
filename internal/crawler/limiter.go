package crawler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the number of fetches a Limiter admits when
// created with a non-positive limit.
const DefaultConcurrency = 5

// Limiter bounds the number of fetches in flight.
type Limiter struct {
	sem   *semaphore.Weighted
	limit int64

	inFlight atomic.Int64
	peak     atomic.Int64
}

// Ticket is a granted Limiter slot.
type Ticket struct {
	released *atomic.Bool
}

// NewLimiter creates a Limiter admitting n concurrent holders.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = DefaultConcurrency
	}
	return &Limiter{
		sem:   semaphore.NewWeighted(int64(n)),
		limit: int64(n),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) (Ticket, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return Ticket{}, err
	}

	n := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if n <= peak || l.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return Ticket{released: new(atomic.Bool)}, nil
}

// Release frees the slot held by t. Releasing a ticket twice, or a zero
// Ticket, does nothing.
func (l *Limiter) Release(t Ticket) {
	if t.released == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// InFlight returns the number of slots currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Peak returns the highest number of slots held at once.
func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}

// Limit returns the maximum number of concurrent holders.
func (l *Limiter) Limit() int {
	return int(l.limit)
}
