package store

import (
	"context"
	"slices"
	"sync"
)

// MemorySlot is an in-memory Slot. Data survives only as long as the
// process does.
type MemorySlot struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (m *MemorySlot) Load(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.set {
		return nil, nil
	}

	return slices.Clone(m.data), nil
}

func (m *MemorySlot) Store(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = slices.Clone(data)
	m.set = true

	return nil
}
