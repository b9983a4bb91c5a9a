package cache

import "sync"

// Store is an unbounded in-process map cache without expiry.
type Store[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

var (
	_ Cache[int] = (*Store[int])(nil)
	_ Clearer    = (*Store[int])(nil)
)

// NewStore creates an empty store
func NewStore[T any]() *Store[T] {
	return &Store[T]{items: make(map[string]T)}
}

func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *Store[T]) Set(key string, data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = data
}

func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

func (s *Store[T]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear drops every entry and returns how many there were.
func (s *Store[T]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	s.items = make(map[string]T)
	return n
}
