package objectstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibedata/platform/pkg/errors"
)

// Memory is an in-memory Client used in tests and local development.
// It honors the same overwrite and not_found semantics as the Azure
// implementation.
type Memory struct {
	mu         sync.RWMutex
	containers map[string]map[string][]byte
	modified   map[string]map[string]time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		containers: make(map[string]map[string][]byte),
		modified:   make(map[string]map[string]time.Time),
	}
}

// List returns objects in key order
func (m *Memory) List(_ context.Context, container string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make([]Object, 0, len(m.containers[container]))
	for key, data := range m.containers[container] {
		objects = append(objects, Object{
			Container:    container,
			Key:          key,
			Size:         int64(len(data)),
			LastModified: m.modified[container][key],
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Stat returns object metadata
func (m *Memory) Stat(_ context.Context, container, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.containers[container][key]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "object not found").
			WithDetail("container", container).
			WithDetail("key", key)
	}
	return &Object{
		Container:    container,
		Key:          key,
		Size:         int64(len(data)),
		LastModified: m.modified[container][key],
	}, nil
}

// Get returns a copy of the object content
func (m *Memory) Get(_ context.Context, container, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.containers[container][key]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "object not found").
			WithDetail("container", container).
			WithDetail("key", key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores a copy of data under key, replacing any existing object
func (m *Memory) Put(_ context.Context, container, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.containers[container] == nil {
		m.containers[container] = make(map[string][]byte)
		m.modified[container] = make(map[string]time.Time)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.containers[container][key] = stored
	m.modified[container][key] = time.Now().UTC()
	return nil
}
