// Package slice implements asynchronous construction of embeddable activity
// summaries: a one-shot result cell, a single-threaded render loop, and views
// that render a loading placeholder until their data arrives.
package slice

import "sync/atomic"

// Result is a single-slot container that transitions at most once from
// pending to available and never reverts.
type Result[T any] struct {
	value atomic.Pointer[T]
	done  chan struct{}
}

// NewResult constructs a pending Result.
func NewResult[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

// Complete attempts the pending -> available transition. Only the first call
// wins; later calls report false and leave the stored value untouched.
func (r *Result[T]) Complete(value T) bool {
	if r.value.CompareAndSwap(nil, &value) {
		close(r.done)
		return true
	}
	return false
}

// Get returns the value and whether it has been delivered.
func (r *Result[T]) Get() (T, bool) {
	if stored := r.value.Load(); stored != nil {
		return *stored, true
	}
	var zero T
	return zero, false
}

// Done is closed once the value becomes available.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}
