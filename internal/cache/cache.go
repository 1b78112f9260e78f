// Package cache is the keyed fetch cache of a page session. Each key holds
// the last good value, its load status and a subscriber count; consumers of
// the same key share one in-flight request.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrClosed  = errors.New("cache: store cerrado")
	ErrEvicted = errors.New("cache: clave descartada")
)

// Fetcher loads the value of one key. ctx is the store context, cancelled by
// Close; it is never the context of an individual caller.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	fetch      Fetcher
	value      any
	hasValue   bool
	loading    bool
	validating bool
	err        error
	subs       int
	ready      chan struct{}
	resolved   bool

	// requested is bumped by every load request; a fetch that started before
	// the latest request is discarded and issued again.
	requested uint64
	running   bool
	waiters   []chan error
}

// notify hands err to every caller waiting on the current load.
func (e *entry) notify(err error) {
	for _, w := range e.waiters {
		w <- err
	}
	e.waiters = nil
}

// abandon releases waiters of an entry that will never settle.
func (e *entry) abandon(err error) {
	e.notify(err)
	if e.resolved {
		return
	}
	e.resolved = true
	e.loading = false
	e.validating = false
	e.err = err
	close(e.ready)
}

// Store owns every key of one session. The zero value is not usable; call New.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
}

func New(parent context.Context) *Store {
	ctx, cancel := context.WithCancel(parent)
	return &Store{
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// subscribe returns the entry for key, creating it and starting its first
// load when nobody holds it yet.
func (s *Store) subscribe(key string, fetch Fetcher) (*entry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := s.entries[key]
	if ok {
		e.subs++
		s.mu.Unlock()
		return e, nil
	}
	e = &entry{
		fetch:      fetch,
		loading:    true,
		validating: true,
		subs:       1,
		ready:      make(chan struct{}),
		requested:  1,
		running:    true,
	}
	s.entries[key] = e
	s.mu.Unlock()

	go s.run(key, e)
	return e, nil
}

func (s *Store) unsubscribe(e *entry) {
	s.mu.Lock()
	if e.subs > 0 {
		e.subs--
	}
	s.mu.Unlock()
}

// refresh requests a load of e and waits for a fetch that started after the
// request. Callers arriving while a fetch runs share one follow-up fetch.
// ctx only bounds how long the caller waits.
func (s *Store) refresh(ctx context.Context, key string, e *entry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.entries[key] != e {
		s.mu.Unlock()
		return ErrEvicted
	}
	done := make(chan error, 1)
	e.requested++
	e.waiters = append(e.waiters, done)
	e.validating = true
	if !e.running {
		e.running = true
		go s.run(key, e)
	}
	s.mu.Unlock()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run fetches e until a result is not outdated by a newer request, then
// settles it and wakes the waiters.
func (s *Store) run(key string, e *entry) {
	for {
		s.mu.Lock()
		seq := e.requested
		s.mu.Unlock()

		v, err := e.fetch(s.ctx)

		s.mu.Lock()
		if s.closed || s.entries[key] != e {
			e.running = false
			e.notify(ErrClosed)
			s.mu.Unlock()
			log.Debug().Str("key", key).Msg("cache: resultado descartado")
			return
		}
		if e.requested != seq {
			s.mu.Unlock()
			log.Debug().Str("key", key).Msg("cache: resultado desactualizado, se vuelve a consultar")
			continue
		}
		s.settle(key, e, v, err)
		e.running = false
		e.notify(err)
		s.mu.Unlock()
		return
	}
}

// settle stores the outcome of a fetch (must be called under lock).
// A failure keeps the previous value.
func (s *Store) settle(key string, e *entry, v any, err error) {
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: fetch fallido")
		e.err = err
	} else {
		e.value = v
		e.hasValue = true
		e.err = nil
	}
	e.loading = false
	e.validating = false
	if !e.resolved {
		e.resolved = true
		close(e.ready)
	}
}

// Keys returns the keys currently cached.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Revalidate refetches the given keys, or every key when none is given.
// A key with no subscribers is dropped instead, so the next consumer loads
// it fresh. Unknown keys are ignored. Returns the first fetch error.
func (s *Store) Revalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		keys = s.Keys()
	}

	type target struct {
		key string
		e   *entry
	}
	var targets []target

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	for _, k := range keys {
		e, ok := s.entries[k]
		if !ok {
			continue
		}
		if e.subs == 0 {
			delete(s.entries, k)
			e.abandon(ErrEvicted)
			continue
		}
		targets = append(targets, target{key: k, e: e})
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, t := range targets {
		t := t
		g.Go(func() error { return s.refresh(ctx, t.key, t.e) })
	}
	return g.Wait()
}

// Close cancels in-flight fetches and releases every waiter. Results that
// arrive afterwards have no effect.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	for _, e := range s.entries {
		e.abandon(ErrClosed)
	}
	s.entries = map[string]*entry{}
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
