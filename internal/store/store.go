// Package store persists finished task records.
package store

import (
	"context"
	"errors"

	"github.com/makeasinger/musicgen/internal/model"
)

// ErrNotFound is returned by Load when no record exists for a task.
var ErrNotFound = errors.New("task record not found")

// TaskStore saves and loads completed task records.
type TaskStore interface {
	Save(ctx context.Context, rec *model.TaskRecord) error
	Load(ctx context.Context, taskID string) (*model.TaskRecord, error)
}

// Nop discards every record.
type Nop struct{}

// Save implements TaskStore.
func (Nop) Save(context.Context, *model.TaskRecord) error { return nil }

// Load implements TaskStore. It always reports ErrNotFound.
func (Nop) Load(context.Context, string) (*model.TaskRecord, error) { return nil, ErrNotFound }
