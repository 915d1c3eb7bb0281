package secrets

import (
	"sync"

	"github.com/detectiq/workbench/internal/domain"
)

// Memory is an in-process SecretStore for tests and headless environments
// without an OS credential store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(ref domain.SecretRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[ref.Key()]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (m *Memory) Set(ref domain.SecretRef, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[ref.Key()] = value
	return nil
}

func (m *Memory) Delete(ref domain.SecretRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, ref.Key())
	return nil
}
