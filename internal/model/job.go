package model

import (
	"encoding/json"
	"time"
)

// Job is a background polling job: one remote task driven to completion by
// the worker on behalf of a user
type Job struct {
	ID      string    `json:"id"`
	Feature Feature   `json:"feature"`
	UserID  string    `json:"userId,omitempty"`
	Status  JobStatus `json:"status"`
	// TaskID is the remote task id, known once the task is created
	TaskID       string          `json:"taskId,omitempty"`
	RemoteStatus string          `json:"remoteStatus,omitempty"`
	Progress     Progress        `json:"progress"`
	Attempts     int             `json:"attempts"`
	Error        *JobError       `json:"error,omitempty"`
	Params       json.RawMessage `json:"params"`
	Result       json.RawMessage `json:"result,omitempty"`
	// Archived maps upstream media URLs to their archived copies
	Archived    map[string]string `json:"archived,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	RetryCount  int               `json:"retryCount"`
}

// JobError is the ApiError recorded on a failed job
type JobError struct {
	Kind    string `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// JobPayload is the asynq task payload of a job
type JobPayload struct {
	JobID   string          `json:"jobId"`
	Feature Feature         `json:"feature"`
	Params  json.RawMessage `json:"params"`
}

// JobStartResponse is returned when a job is queued
type JobStartResponse struct {
	JobID     string    `json:"jobId"`
	Feature   Feature   `json:"feature"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobCancelResponse is returned when a job is canceled
type JobCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}
