// ABOUTME: Selection-keyed catalog resolver that discards responses the caller no longer wants.
// ABOUTME: Failed fetches keep the previous option list and are reported to an alert sink.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Keyed is implemented by catalog entries that can be looked up by identifier.
type Keyed interface {
	Key() string
}

// Fetcher loads the option list for a selection key.
type Fetcher[T Keyed] func(ctx context.Context, key string) ([]T, error)

// Resolver holds the option list for the most recent selection.
type Resolver[T Keyed] struct {
	name    string
	fetch   Fetcher[T]
	onError func(error)

	mu       sync.Mutex
	gen      uint64
	inflight bool
	key      string
	loaded   bool
	options  []T
}

// NewResolver creates a resolver. onError may be nil.
func NewResolver[T Keyed](name string, fetch Fetcher[T], onError func(error)) *Resolver[T] {
	return &Resolver[T]{name: name, fetch: fetch, onError: onError}
}

// Resolve fetches options for key. applied is false when a newer Resolve or an
// Abandon happened while the fetch was outstanding; the response is then dropped.
func (r *Resolver[T]) Resolve(ctx context.Context, key string) (applied bool, err error) {
	r.mu.Lock()
	r.gen++
	ticket := r.gen
	r.inflight = true
	r.mu.Unlock()

	opts, fetchErr := r.fetch(ctx, key)

	r.mu.Lock()
	if ticket != r.gen {
		r.mu.Unlock()
		log.Printf("catalog stale name=%s key=%s dropped=true", r.name, key)
		return false, nil
	}
	r.inflight = false
	if fetchErr != nil {
		r.mu.Unlock()
		err := fmt.Errorf("load %s for %q: %w", r.name, key, fetchErr)
		log.Printf("catalog error name=%s key=%s err=%v", r.name, key, fetchErr)
		if r.onError != nil {
			r.onError(err)
		}
		return false, err
	}
	cp := make([]T, len(opts))
	copy(cp, opts)
	r.options = cp
	r.key = key
	r.loaded = true
	r.mu.Unlock()
	return true, nil
}

// Abandon makes any in-flight fetch stale without touching loaded options.
func (r *Resolver[T]) Abandon() {
	r.mu.Lock()
	r.gen++
	r.inflight = false
	r.mu.Unlock()
}

// Options returns a copy of the current option list.
func (r *Resolver[T]) Options() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.options))
	copy(out, r.options)
	return out
}

// Key returns the selection the current options were loaded for.
func (r *Resolver[T]) Key() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key, r.loaded
}

// Pending reports whether a fetch is outstanding.
func (r *Resolver[T]) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight
}

// Lookup finds an option by its key.
func (r *Resolver[T]) Lookup(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range r.options {
		if opt.Key() == id {
			return opt, true
		}
	}
	var zero T
	return zero, false
}
