package app

import (
	"context"
	"sync"
)

// Snapshot is the most recently applied result of a Latest.
type Snapshot[T any] struct {
	Seq   uint64
	Value T
	Err   error
}

// Latest applies the result of a request only if no newer request was
// issued while it ran: last requested wins, not last arrived.
type Latest[T any] struct {
	mu      sync.Mutex
	issued  uint64
	current Snapshot[T]
}

// Do runs fn and applies its result unless a newer Do started meanwhile.
// applied reports whether the result is now the current one.
func (l *Latest[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (v T, applied bool, err error) {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.mu.Unlock()

	v, err = fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.issued {
		return v, false, err
	}
	l.current = Snapshot[T]{Seq: seq, Value: v, Err: err}
	return v, true, err
}

// Snapshot returns the current result.
func (l *Latest[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Issued returns the sequence number of the newest request.
func (l *Latest[T]) Issued() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issued
}
