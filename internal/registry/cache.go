package registry

import "sync"

// Cache is a memoizing BuildFunc: each key is built once and later calls with
// the same key return the first result. Concurrent callers of one key wait for
// the single build instead of racing it. A build that panics leaves its key
// unbuilt: the panic reaches the caller that ran it and the next call retries.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// entry fields are written before ready is closed and only read after.
type entry struct {
	ready  chan struct{}
	value  any
	failed bool
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Build implements BuildFunc.
func (c *Cache) Build(key string, build Thunk) any {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		if !ok {
			e = &entry{ready: make(chan struct{})}
			c.entries[key] = e
			c.mu.Unlock()
			return c.fill(key, e, build)
		}
		c.mu.Unlock()

		<-e.ready
		if !e.failed {
			return e.value
		}
	}
}

func (c *Cache) fill(key string, e *entry, build Thunk) any {
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
			e.failed = true
			close(e.ready)
			panic(r)
		}
	}()
	e.value = build()
	close(e.ready)
	return e.value
}

// Get returns the cached value for key. Keys whose build is still running
// report false.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.ready:
		if e.failed {
			return nil, false
		}
		return e.value, true
	default:
		return nil, false
	}
}

// Len returns the number of keys built or being built.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
