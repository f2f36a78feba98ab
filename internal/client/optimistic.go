package client

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Optimistic holds local state that is changed before the server confirms
// and reconciled with the server afterwards.
type Optimistic[T any] struct {
	mu    sync.Mutex
	state T
	fetch func(ctx context.Context) (T, error)
}

// NewOptimistic creates an Optimistic starting at initial. fetch loads the
// canonical state.
func NewOptimistic[T any](initial T, fetch func(ctx context.Context) (T, error)) *Optimistic[T] {
	return &Optimistic[T]{state: initial, fetch: fetch}
}

// State returns the current local state.
func (o *Optimistic[T]) State() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Refresh replaces the local state with the canonical one.
func (o *Optimistic[T]) Refresh(ctx context.Context) error {
	fresh, err := o.fetch(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.state = fresh
	o.mu.Unlock()
	return nil
}

// Do applies the tentative change, sends it, then refetches whether or not
// the send succeeded. apply must not modify its argument in place. The
// returned error combines the send and refetch failures; when the refetch
// fails the tentative state is kept.
func (o *Optimistic[T]) Do(ctx context.Context, apply func(T) T, send func(ctx context.Context) error) error {
	o.mu.Lock()
	o.state = apply(o.state)
	o.mu.Unlock()

	sendErr := send(ctx)
	return multierr.Append(sendErr, o.Refresh(ctx))
}
