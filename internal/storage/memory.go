package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/autostack/gateway/internal/metrics"
	appErr "github.com/autostack/gateway/pkg/errors"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps files in process memory. Content is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Backend() string { return "memory" }

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	s.mu.Lock()
	s.objects[key] = memoryObject{data: buf, contentType: contentType}
	s.mu.Unlock()
	metrics.RecordStorage(s.Backend(), "put", "success")
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordStorage(s.Backend(), "get", "not_found")
		return nil, "", appErr.New(appErr.CodeNotFound, "stored file not found").WithMeta("storage_key", key)
	}
	metrics.RecordStorage(s.Backend(), "get", "success")
	return obj.data, obj.contentType, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	metrics.RecordStorage(s.Backend(), "delete", "success")
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	n := 0
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
			n++
		}
	}
	s.mu.Unlock()
	metrics.RecordStorage(s.Backend(), "delete_prefix", "success")
	return n, nil
}

// Len reports how many objects are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
