package store

import (
	"context"
	"sync"

	"batsim/model"
)

type memoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore(prefix string) *Store {
	if prefix == "" {
		prefix = "batsim"
	}
	return &Store{
		kv:     &memoryKV{data: make(map[string][]byte)},
		prefix: prefix,
	}
}

func (m *memoryKV) get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) close() error {
	return nil
}
