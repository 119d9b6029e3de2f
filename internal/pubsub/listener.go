package pubsub

import (
	"context"
)

// Listener wraps a broker subscription and hands out events one at a time.
// It is used by long-lived consumers such as the web event stream.
type Listener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewListener subscribes to sub.
// The subscription is released when ctx is cancelled.
func NewListener[T any](ctx context.Context, sub Subscriber[T]) *Listener[T] {
	return &Listener[T]{
		ctx: ctx,
		ch:  sub.Subscribe(ctx),
	}
}

// Next blocks until the next event arrives.
// ok is false once the context is cancelled or the broker is closed.
func (l *Listener[T]) Next() (event Event[T], ok bool) {
	select {
	case <-l.ctx.Done():
		return Event[T]{}, false
	case event, ok = <-l.ch:
		return event, ok
	}
}
