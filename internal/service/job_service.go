package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/model"
)

const (
	TaskTypePoll = "suno:poll"
	QueueTasks   = "tasks"
)

// Job lookup errors
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrJobNotCompleted = errors.New("job not completed")
	ErrJobFinished     = errors.New("job already completed")
	ErrJobCanceled     = errors.New("job canceled")
)

const jobTTL = 24 * time.Hour

// JobService queues remote tasks as background jobs and tracks them in
// Redis.
type JobService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	validator   *validator.Validate
}

func NewJobService(redisClient *redis.Client, asynqClient *asynq.Client, v *validator.Validate) *JobService {
	return &JobService{
		redis:       redisClient,
		asynqClient: asynqClient,
		validator:   v,
	}
}

// StartJob validates params for f and queues a job that drives the task
// to completion.
func (s *JobService) StartJob(ctx context.Context, f model.Feature, userID string, params []byte) (*model.JobStartResponse, error) {
	if _, err := feature.Prepare(s.validator, f, params); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now()
	job := &model.Job{
		ID:        jobID,
		Feature:   f,
		UserID:    userID,
		Status:    model.JobStatusQueued,
		Params:    json.RawMessage(params),
		CreatedAt: now,
	}

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := NewPollTask(model.JobPayload{JobID: jobID, Feature: f, Params: job.Params})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(QueueTasks),
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(jobTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.JobStartResponse{
		JobID:     jobID,
		Feature:   f,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetJob returns a job record.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	return s.getJob(ctx, jobID)
}

// GetResult returns the result of a succeeded job.
func (s *JobService) GetResult(ctx context.Context, jobID string) (json.RawMessage, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusSucceeded {
		return nil, ErrJobNotCompleted
	}
	return job.Result, nil
}

// CancelJob marks a queued or running job as canceled. The worker notices
// on its next progress update and stops polling.
func (s *JobService) CancelJob(ctx context.Context, jobID string) (*model.JobCancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrJobFinished
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now
	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	return &model.JobCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// UpdateJobProgress records the latest task status (called by worker).
// It returns ErrJobCanceled once the job was canceled.
func (s *JobService) UpdateJobProgress(ctx context.Context, jobID string, update func(*model.Job)) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobStatusCanceled {
		return ErrJobCanceled
	}

	update(job)
	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}
	return s.saveJob(ctx, job)
}

// CompleteJob marks job as completed (called by worker)
func (s *JobService) CompleteJob(ctx context.Context, jobID string, result interface{}, archived map[string]string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Result = resultBytes
	job.Archived = archived
	job.Error = nil
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *JobService) FailJob(ctx context.Context, jobID string, e *apierr.Error) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	jobErr := JobErrorFrom(e)
	job.Status = model.JobStatusFailed
	job.Error = &jobErr
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// IncrementRetry counts a new delivery of the job's task.
func (s *JobService) IncrementRetry(ctx context.Context, jobID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.RetryCount++
	return s.saveJob(ctx, job)
}

// JobErrorFrom converts an ApiError into its job record form.
func JobErrorFrom(e *apierr.Error) model.JobError {
	if e == nil {
		e = apierr.From(errors.New(apierr.DefaultMessage))
	}
	msg := e.Message
	if msg == "" {
		msg = apierr.DefaultMessage
	}
	return model.JobError{
		Kind:    string(e.Kind),
		Code:    e.Code,
		Message: msg,
		Status:  e.Status,
	}
}

func (s *JobService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err()
}

func (s *JobService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// NewPollTask builds the asynq task of a job.
func NewPollTask(payload model.JobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePoll, data), nil
}
