// Package assets loads map files from a stack of archives with caching.
package assets

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Faultbox/midgard-terrain/internal/storage"
)

// Manager resolves names against a stack of archives and caches the bytes.
type Manager struct {
	archives []storage.Archive
	cache    *Cache
	mu       sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddArchive pushes an already opened archive onto the stack.
// Archives are searched in reverse order (last added = highest priority).
func (m *Manager) AddArchive(a storage.Archive) {
	m.mu.Lock()
	m.archives = append(m.archives, a)
	m.mu.Unlock()
}

// OpenArchive opens an archive with the given backend and adds it.
func (m *Manager) OpenArchive(backend, path string) error {
	a, err := storage.Open(backend, path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.AddArchive(a)
	return nil
}

// Load loads a file from the archives.
func (m *Manager) Load(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].Read(name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
}

// Exists reports whether any archive holds name.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.archives {
		if a.Exists(name) {
			return true
		}
	}
	return false
}

// Evict drops a cached entry, typically after a region chunk is released.
func (m *Manager) Evict(name string) {
	m.cache.Delete(name)
}

// Close closes all archives.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, archive := range m.archives {
		errs = append(errs, archive.Close())
	}
	m.archives = nil
	m.cache.Clear()
	return errors.Join(errs...)
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item from cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
