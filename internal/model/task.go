package model

import (
	"encoding/json"
	"time"
)

// Upstream envelope codes
const (
	CodeSuccess = 200
)

// Envelope is the {code, msg, data} wrapper used by the upstream API and by
// the proxy routes
type Envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data,omitempty"`
}

// TaskCreated is the data of a successful creation call
type TaskCreated struct {
	TaskID string `json:"taskId"`
}

// TaskStatus is the normalized status of a remote task:
// {taskId, status, result?, error?}. Result keeps the upstream payload
// verbatim so field aliases survive until extraction
type TaskStatus struct {
	TaskID string          `json:"taskId"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Task is a remote job this service is tracking
type Task struct {
	ID        string    `json:"id"`
	Feature   Feature   `json:"feature"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskRecord is a completed task kept by the persistence collaborator
type TaskRecord struct {
	TaskID      string          `json:"taskId"`
	Feature     Feature         `json:"feature"`
	Status      string          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt time.Time       `json:"completedAt"`
}
