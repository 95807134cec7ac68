package media

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStorage keeps objects in a map. Tests and S3-less deployments use it.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte), baseURL: baseURL}
}

func (m *MemoryStorage) Upload(_ context.Context, prefix, filename, _ string, body io.Reader) (string, error) {
	content, err := io.ReadAll(io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) > MaxImageSize {
		return "", fmt.Errorf("file exceeds %d bytes", MaxImageSize)
	}

	key := ObjectKey(prefix, filename, time.Now())
	m.mu.Lock()
	m.objects[key] = content
	m.mu.Unlock()
	return key, nil
}

func (m *MemoryStorage) PresignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object not found: %s", key)
	}
	return fmt.Sprintf("%s/%s?mock=true", m.baseURL, key), nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Exists reports whether key is stored.
func (m *MemoryStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}
