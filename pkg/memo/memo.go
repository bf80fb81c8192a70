// Package memo provides a keyed compute-once table.
//
// A [Table] maps keys to lazily computed values. The first caller for a key
// runs the compute function; concurrent callers for the same key block until
// that single computation finishes and then observe the same value. Values are
// never invalidated: a table lives exactly as long as its owner (one build
// invocation).
package memo

import "sync"

// Table is a concurrency-safe compute-once cache. The zero value is ready to use.
type Table[K comparable, V any] struct {
	mu    sync.Mutex
	cells map[K]*cell[V]
}

type cell[V any] struct {
	once  sync.Once
	value V

	// panicked holds the recovered value when compute panicked.
	panicked any
}

// Get returns the value for key, computing it with compute on first access.
// compute runs at most once per key for the lifetime of the table, even under
// concurrent first access. compute must not call Get for the same key.
//
// If compute panics, Get panics with the same value, and so does every later
// Get for that key.
func (t *Table[K, V]) Get(key K, compute func() V) V {
	t.mu.Lock()
	if t.cells == nil {
		t.cells = make(map[K]*cell[V])
	}
	c, ok := t.cells[key]
	if !ok {
		c = &cell[V]{}
		t.cells[key] = c
	}
	t.mu.Unlock()

	c.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				c.panicked = r
			}
		}()
		c.value = compute()
	})
	if c.panicked != nil {
		panic(c.panicked)
	}
	return c.value
}

// Len returns the number of keys that have been requested.
func (t *Table[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cells)
}
