package storage

import (
	"context"
	"maps"
	"sync"
)

// Memory is a process-local backend. It is the default when no durable
// backend is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty Memory, optionally seeded.
func NewMemory(seed ...map[string]string) *Memory {
	m := &Memory{data: map[string]string{}}
	for _, s := range seed {
		maps.Copy(m.data, s)
	}
	return m
}

// Get returns the value stored under key
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	if err := ValidateKeys(key); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok, nil
}

// Set stores value under key
func (m *Memory) Set(_ context.Context, key, value string) error {
	if err := ValidateKeys(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete removes keys
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	if err := ValidateKeys(keys...); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Snapshot copies the current contents
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}
