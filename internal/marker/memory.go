package marker

import (
	"context"
	"sync"
)

// MemoryMarker lives as long as the process. It pairs with the in-memory
// index, whose documents are gone when the process exits.
type MemoryMarker struct {
	mu    sync.Mutex
	label string
	set   bool
}

// NewMemoryMarker creates an unset marker.
func NewMemoryMarker(label string) *MemoryMarker {
	return &MemoryMarker{label: label}
}

func (m *MemoryMarker) Exists(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set, nil
}

func (m *MemoryMarker) Set(_ context.Context) error {
	m.mu.Lock()
	m.set = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryMarker) Clear(_ context.Context) error {
	m.mu.Lock()
	m.set = false
	m.mu.Unlock()
	return nil
}

func (m *MemoryMarker) Location() string { return "memory://" + m.label }

func (m *MemoryMarker) Close() error { return nil }
