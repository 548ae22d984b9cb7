// Package keylock provides a mutex per string key. Locks for distinct keys
// never contend, and idle keys are released so the map does not grow with
// every profile ever seen.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map hands out per-key mutexes. The zero value is ready to use.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// Lock blocks until the lock for key is held and returns its unlock func.
func (m *Map) Lock(key string) (unlock func()) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*entry)
	}
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
