package cache

import (
	"context"
	"fmt"
	"sync"
)

// State is a snapshot of one key as seen by a consumer.
type State[T any] struct {
	Data       T
	HasData    bool
	Loading    bool // true until the first load resolves, success or failure
	Validating bool // a load is in flight
	Err        error
}

// Query is one consumer's subscription to a key.
type Query[T any] struct {
	s    *Store
	key  string
	e    *entry
	once sync.Once
}

// Use subscribes to key. The first subscriber of a key starts its load;
// later ones share the cached value and any in-flight request.
func Use[T any](s *Store, key string, fetch func(ctx context.Context) (T, error)) (*Query[T], error) {
	e, err := s.subscribe(key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &Query[T]{s: s, key: key, e: e}, nil
}

func (q *Query[T]) Key() string { return q.key }

func (q *Query[T]) State() State[T] {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	st := State[T]{
		Loading:    q.e.loading,
		Validating: q.e.validating,
		Err:        q.e.err,
	}
	if q.e.hasValue {
		v, ok := q.e.value.(T)
		if !ok {
			st.Err = fmt.Errorf("cache: clave %q contiene %T", q.key, q.e.value)
			return st
		}
		st.Data = v
		st.HasData = true
	}
	return st
}

// Wait blocks until the first load of the key resolved and returns the
// state at that point. The error is ctx's, or the load's.
func (q *Query[T]) Wait(ctx context.Context) (State[T], error) {
	select {
	case <-q.e.ready:
	case <-ctx.Done():
		return q.State(), ctx.Err()
	}
	st := q.State()
	return st, st.Err
}

// Revalidate refetches the key and waits for the result.
func (q *Query[T]) Revalidate(ctx context.Context) (State[T], error) {
	err := q.s.refresh(ctx, q.key, q.e)
	return q.State(), err
}

// Release ends the subscription. The cached value is kept until the key is
// revalidated with no subscribers or the store is closed.
func (q *Query[T]) Release() {
	q.once.Do(func() { q.s.unsubscribe(q.e) })
}
