// Package future implements a single-resolution future.
//
// A Future starts unresolved and is resolved exactly once, either with nil
// (success) or with an error. Every later Resolve is ignored. Waiters block on
// Done, which is closed at resolution time, so any number of goroutines can
// wait for the same outcome.
package future

import (
	"context"
	"errors"
	"sync"
)

var ErrNotResolved = errors.New("future not resolved")

type Future struct {
	once sync.Once
	done chan struct{}
	mx   sync.RWMutex
	err  error
}

func New() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future which is already resolved with err.
func Resolved(err error) *Future {
	f := New()
	f.Resolve(err)
	return f
}

// Resolve sets the outcome of f and wakes up all waiters. It reports whether
// this call was the one that resolved the future.
func (f *Future) Resolve(err error) bool {
	resolved := false
	f.once.Do(func() {
		f.mx.Lock()
		f.err = err
		f.mx.Unlock()
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done returns a channel which is closed once the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsResolved reports whether f has been resolved already.
func (f *Future) IsResolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the outcome of a resolved future or ErrNotResolved.
func (f *Future) Err() error {
	if !f.IsResolved() {
		return ErrNotResolved
	}
	f.mx.RLock()
	defer f.mx.RUnlock()
	return f.err
}

// Wait blocks until f is resolved or ctx is done. The context error is
// returned in the latter case.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return f.Err()
	}
}

// Then returns a future resolved with the outcome of the future returned by
// next, which is called in its own goroutine once f is resolved. A nil
// future returned by next counts as success.
func (f *Future) Then(next func(err error) *Future) *Future {
	ret := New()
	go func() {
		<-f.done
		inner := next(f.Err())
		if inner == nil {
			ret.Resolve(nil)
			return
		}
		<-inner.done
		ret.Resolve(inner.Err())
	}()
	return ret
}

// Go runs fn in a new goroutine and returns a future resolved with its
// result.
func Go(fn func() error) *Future {
	f := New()
	go func() {
		f.Resolve(fn())
	}()
	return f
}
