package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps objects in process memory. It backs development setups
// without an object server.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

var _ ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		objects: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, name string, file File) (string, error) {
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read object body: %w", err)
	}

	s.mu.Lock()
	s.objects[name] = data
	s.mu.Unlock()

	return s.baseURL + "/" + name, nil
}

func (s *MemoryStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()

	return nil
}

// Get returns the stored bytes of name.
func (s *MemoryStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[name]

	return data, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}
