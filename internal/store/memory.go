package store

import (
	"context"
	"sync"

	"github.com/makeasinger/musicgen/internal/model"
)

// Memory keeps records in process memory. Used by the CLI and in tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]model.TaskRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]model.TaskRecord)}
}

// Save implements TaskStore.
func (m *Memory) Save(_ context.Context, rec *model.TaskRecord) error {
	m.mu.Lock()
	m.records[rec.TaskID] = *rec
	m.mu.Unlock()
	return nil
}

// Load implements TaskStore.
func (m *Memory) Load(_ context.Context, taskID string) (*model.TaskRecord, error) {
	m.mu.RLock()
	rec, ok := m.records[taskID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}
