package scenecache

import (
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry shares open readers between users of the same file. Each Open
// must be paired with a Release; the reader closes when the last user
// releases it.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	group   singleflight.Group
}

type registryEntry struct {
	reader *Reader
	refs   int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the process wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// canonical resolves fileName to an absolute, symlink free path so aliases
// share one reader.
func canonical(fileName string) (string, error) {
	abs, err := filepath.Abs(fileName)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", fileName, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// Open returns the shared reader for fileName, opening it on first use.
func (r *Registry) Open(fileName string) (*Reader, error) {
	key, err := canonical(fileName)
	if err != nil {
		return nil, err
	}
	for {
		if rd, ok := r.acquire(key); ok {
			return rd, nil
		}
		_, err, _ := r.group.Do(key, func() (any, error) {
			r.mu.Lock()
			_, ok := r.entries[key]
			r.mu.Unlock()
			if ok {
				return nil, nil
			}
			rd, err := Open(key)
			if err != nil {
				return nil, err
			}
			r.mu.Lock()
			r.entries[key] = &registryEntry{reader: rd}
			r.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		// The entry may have been released by another user between the
		// open and our acquire; loop and open again.
	}
}

func (r *Registry) acquire(key string) (*Reader, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	e.refs++
	return e.reader, true
}

// Release drops one reference to the reader for fileName.
func (r *Registry) Release(fileName string) error {
	key, err := canonical(fileName)
	if err != nil {
		return err
	}
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, key)
	r.mu.Unlock()
	return e.reader.Close()
}

// Len reports the number of open files.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
