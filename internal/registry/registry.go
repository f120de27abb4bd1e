// Package registry is the runtime side of wrapped schema calls: a single
// process-wide slot holding the function every wrapped call site invokes with
// its key and build thunk. The slot must be installed before the first wrapped
// call runs; the installed function decides the caching policy.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotInstalled is returned by Register when no function has been installed.
var ErrNotInstalled = errors.New("no schema-builder registration function installed")

// Thunk builds a schema value. It is side-effect free and may be called lazily.
type Thunk func() any

// BuildFunc receives every wrapped call: the call-site key and its thunk.
type BuildFunc func(key string, build Thunk) any

var (
	mu   sync.RWMutex
	slot BuildFunc
)

// Install sets the process-wide registration function, replacing any previous one.
func Install(fn BuildFunc) {
	mu.Lock()
	slot = fn
	mu.Unlock()
}

// Installed reports whether a registration function is present.
func Installed() bool {
	mu.RLock()
	defer mu.RUnlock()
	return slot != nil
}

// Reset clears the slot.
func Reset() {
	Install(nil)
}

// Register forwards a wrapped call to the installed function.
func Register(key string, build Thunk) (any, error) {
	mu.RLock()
	fn := slot
	mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("register %s: %w", key, ErrNotInstalled)
	}
	return fn(key, build), nil
}
