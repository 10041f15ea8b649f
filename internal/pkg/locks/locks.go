// Package locks serializes mutating operations per donation. Concurrent
// allocation edits or payment postings against the same donation take the
// same mutex; work on different donations proceeds in parallel.
package locks

import (
	"sync"

	"github.com/google/uuid"
)

// Registry hands out one mutex per key. Mutexes are never evicted; the
// working set is bounded by the number of donations touched per process
// lifetime, which is acceptable for an API server.
type Registry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: map[uuid.UUID]*sync.Mutex{}}
}

// Lock acquires the mutex for key and returns its unlock func. Callers must
// defer the unlock so it runs on all exit paths, including failures.
func (r *Registry) Lock(key uuid.UUID) func() {
	r.mu.Lock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
