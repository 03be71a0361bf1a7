// Package lock provides a mutex keyed by string id. The delivery state
// machine serializes transitions per delivery id with it, and the COD ledger
// serializes collections per order id and settlements per partner id, because
// both perform read-then-write sequences that are unsafe under concurrent
// writers for the same key.
package lock

import "sync"

// Keyed hands out one mutex per key. Mutexes are created lazily and kept for
// the lifetime of the process; the key space (active deliveries, partners) is
// small enough that eviction is not worth the bookkeeping.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyed creates an empty keyed mutex set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed.
func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for key. The key must have been locked.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	m.Unlock()
}
