package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrSessionMiss is returned by MemorySessionStore for unknown keys.
var ErrSessionMiss = errors.New("session not found")

// MockSessionStore is a function-based mock of service.SessionStore.
type MockSessionStore struct {
	GetFunc    func(ctx context.Context, key string, dest any) error
	SetFunc    func(ctx context.Context, key string, value any, expiration time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func (m *MockSessionStore) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	return ErrSessionMiss
}

func (m *MockSessionStore) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *MockSessionStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

// MemorySessionStore keeps JSON values in a map, mirroring the Redis store.
// Expiration is recorded but not enforced.
type MemorySessionStore struct {
	mu   sync.Mutex
	data map[string][]byte
	TTLs map[string]time.Duration
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (m *MemorySessionStore) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return ErrSessionMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *MemorySessionStore) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	m.TTLs[key] = expiration
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.TTLs, key)
	return nil
}

func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
