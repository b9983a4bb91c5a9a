package cache

import (
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Memo memoizes a loader per key. Concurrent misses on the same key share
// one call; failed loads are not stored.
type Memo[T any] struct {
	store *Store[T]
	group singleflight.Group
}

func NewMemo[T any]() *Memo[T] {
	return &Memo[T]{store: NewStore[T]()}
}

// Do returns the memoized value for key, calling load on a miss.
func (m *Memo[T]) Do(key string, load func() (T, error)) (T, error) {
	if v, ok := m.store.Get(key); ok {
		return v, nil
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.store.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return v, err
		}
		m.store.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("memo %q: unexpected type %T", key, v)
	}
	return out, nil
}

// Clear forgets every memoized value.
func (m *Memo[T]) Clear() int {
	return m.store.Clear()
}

func (m *Memo[T]) Size() int {
	return m.store.Size()
}
