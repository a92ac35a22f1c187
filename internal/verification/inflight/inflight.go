// Package inflight coalesces concurrent computations that share a key.
package inflight

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ErrProducerPanic wraps a recovered panic from a producer.
var ErrProducerPanic = errors.New("producer panicked")

// Registry runs at most one producer per key at a time. Callers arriving
// while a producer is running attach to it and receive the same result. The
// key is released as soon as the producer settles, successfully or not.
type Registry[T any] struct {
	group   singleflight.Group
	pending atomic.Int64
}

func New[T any]() *Registry[T] {
	return &Registry[T]{}
}

// GetOrStart returns the result of the producer for key, starting it if none
// is running. joined is true when this caller attached to an existing run.
//
// The producer runs detached from the starting caller's cancellation so that
// other waiters are not failed by one caller giving up. A caller whose ctx
// ends stops waiting and gets ctx.Err().
func (r *Registry[T]) GetOrStart(ctx context.Context, key string, producer func(ctx context.Context) (T, error)) (result T, joined bool, err error) {
	started := false
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (v any, err error) {
		started = true
		r.pending.Add(1)
		defer r.pending.Add(-1)
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v", ErrProducerPanic, p)
			}
		}()
		return producer(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, !started, res.Err
		}
		v, _ := res.Val.(T)
		return v, !started, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Pending reports how many producers are currently running.
func (r *Registry[T]) Pending() int {
	return int(r.pending.Load())
}
