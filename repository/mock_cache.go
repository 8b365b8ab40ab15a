package repository

import (
	"context"
	"sync"
)

type MockCache struct {
	mu   sync.RWMutex
	Data map[string]string
	// SetErr, when set, is returned by every Set call.
	SetErr error
}

func NewMockCache() *MockCache {
	return &MockCache{
		Data: make(map[string]string),
	}
}

func (m *MockCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(_ context.Context, key string, value string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
	return nil
}
