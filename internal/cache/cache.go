package cache

import (
	"sync"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Clearer is a cache that can be emptied on demand.
type Clearer interface {
	Clear() int
}

// Manager clears every registered cache at once. It backs the reload
// action: there is no expiry, so entries live until cleared.
type Manager struct {
	mu     sync.Mutex
	caches []Clearer
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a cache to the manager
func (m *Manager) Register(c Clearer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// ClearAll empties every registered cache and returns how many entries
// were dropped.
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	caches := append([]Clearer(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.Clear()
	}
	return total
}
