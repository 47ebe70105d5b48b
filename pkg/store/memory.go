package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store guarded by a RWMutex.
type Memory[T any] struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{items: make(map[string][]byte)}
}

func (m *Memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	data, ok := m.items[id]
	m.mu.RUnlock()

	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return decode[T](data)
}

func (m *Memory[T]) Put(_ context.Context, id string, v T) error {
	data, err := encode(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.items[id] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) Update(_ context.Context, id string, fn func(T) (T, error)) (T, error) {
	var zero T

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.items[id]
	if !ok {
		return zero, ErrNotFound
	}

	current, err := decode[T](data)
	if err != nil {
		return zero, err
	}

	next, err := fn(current)
	if err != nil {
		return zero, err
	}

	encoded, err := encode(next)
	if err != nil {
		return zero, err
	}

	m.items[id] = encoded
	return next, nil
}
