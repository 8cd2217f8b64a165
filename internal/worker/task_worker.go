package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/model"
	"github.com/makeasinger/musicgen/internal/service"
	"github.com/makeasinger/musicgen/internal/websocket"
)

// Jobs is the job bookkeeping used by the worker.
type Jobs interface {
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	UpdateJobProgress(ctx context.Context, jobID string, update func(*model.Job)) error
	CompleteJob(ctx context.Context, jobID string, result interface{}, archived map[string]string) error
	FailJob(ctx context.Context, jobID string, e *apierr.Error) error
	IncrementRetry(ctx context.Context, jobID string) error
}

// TaskWorker drives one remote task per job: it submits the job's params
// through a fresh adapter session, mirrors every status check into the job
// record and the WebSocket hub, and archives the finished media.
type TaskWorker struct {
	jobs    Jobs
	archive *service.ArchiveService
	hub     *websocket.Hub
	cfg     feature.Config
	logger  *log.Logger
}

// NewTaskWorker creates a task worker. cfg is shared by every adapter
// session; its Backend must be set.
func NewTaskWorker(jobs Jobs, archive *service.ArchiveService, hub *websocket.Hub, cfg feature.Config, logger *log.Logger) *TaskWorker {
	if logger == nil {
		logger = log.Default()
	}
	cfg.Logger = logger
	return &TaskWorker{
		jobs:    jobs,
		archive: archive,
		hub:     hub,
		cfg:     cfg,
		logger:  logger.WithPrefix("worker"),
	}
}

type configured interface {
	IsConfigured() bool
}

// ProcessTask handles a suno:poll task
func (w *TaskWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.JobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w: %w", err, asynq.SkipRetry)
	}
	jobID := payload.JobID

	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return fmt.Errorf("job %s: %w: %w", jobID, err, asynq.SkipRetry)
		}
		return err
	}
	if job.Status.IsTerminal() {
		w.logger.Info("skipping finished job", "job", jobID, "status", job.Status)
		return nil
	}
	if n, ok := asynq.GetRetryCount(ctx); ok && n > 0 {
		if err := w.jobs.IncrementRetry(ctx, jobID); err != nil {
			w.logger.Warn("failed to count retry", "job", jobID, "err", err)
		}
	}

	if c, ok := w.cfg.Backend.(configured); ok && !c.IsConfigured() {
		w.fail(ctx, jobID, apierr.Remote(apierr.CodeInternal, "upstream API key is not configured"))
		return fmt.Errorf("job %s: upstream not configured: %w", jobID, asynq.SkipRetry)
	}

	w.logger.Info("starting job", "job", jobID, "feature", payload.Feature)

	switch payload.Feature {
	case model.FeatureGenerate:
		return run(ctx, w, feature.NewGenerate(w.cfg), payload)
	case model.FeatureLyrics:
		return run(ctx, w, feature.NewLyrics(w.cfg), payload)
	case model.FeatureExtend:
		return run(ctx, w, feature.NewExtend(w.cfg), payload)
	case model.FeatureVocalSeparation:
		return run(ctx, w, feature.NewVocalSeparation(w.cfg), payload)
	case model.FeatureWav:
		return run(ctx, w, feature.NewWav(w.cfg), payload)
	case model.FeatureMp4:
		return run(ctx, w, feature.NewMp4(w.cfg), payload)
	}

	w.fail(ctx, jobID, apierr.Validation(map[string]string{"feature": "oneof"}))
	return fmt.Errorf("job %s: unknown feature %q: %w", jobID, payload.Feature, asynq.SkipRetry)
}

// run drives a single adapter session for a job until it settles.
func run[P, R any](ctx context.Context, w *TaskWorker, a *feature.Adapter[P, R], payload model.JobPayload) error {
	jobID := payload.JobID

	var params P
	if err := json.Unmarshal(payload.Params, &params); err != nil {
		w.fail(ctx, jobID, apierr.Validation(map[string]string{"body": "json"}))
		return fmt.Errorf("job %s: %w: %w", jobID, err, asynq.SkipRetry)
	}
	// The session must not outlive the job delivery, whatever way it ends.
	defer a.Reset()

	// Keep only the latest state; the listener runs on the poller goroutine.
	updates := make(chan feature.State[R], 1)
	unsubscribe := a.OnChange(func(st feature.State[R]) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- st:
		default:
		}
	})
	defer unsubscribe()

	type outcome struct {
		state feature.State[R]
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		if err := a.Submit(ctx, params); err != nil {
			done <- outcome{err: err}
			return
		}
		st, err := a.Wait(ctx)
		done <- outcome{state: st, err: err}
	}()

	var (
		lastAttempts = -1
		lastStatus   string
		canceled     bool
	)
	report := func(st feature.State[R]) {
		if canceled || st.TaskID == "" {
			return
		}
		if st.Attempts == lastAttempts && st.Progress.Status == lastStatus {
			return
		}
		lastAttempts, lastStatus = st.Attempts, st.Progress.Status

		err := w.jobs.UpdateJobProgress(ctx, jobID, func(job *model.Job) {
			job.TaskID = st.TaskID
			job.RemoteStatus = st.Progress.Status
			job.Progress = st.Progress
			job.Attempts = st.Attempts
		})
		if errors.Is(err, service.ErrJobCanceled) {
			canceled = true
			w.logger.Info("job canceled, stopping", "job", jobID, "task", st.TaskID)
			a.Stop()
			return
		}
		if err != nil {
			w.logger.Warn("failed to update progress", "job", jobID, "err", err)
		}

		msg := model.WSProgressMessage{
			JobID:        jobID,
			TaskID:       st.TaskID,
			Status:       model.JobStatusRunning,
			RemoteStatus: st.Progress.Status,
			Attempts:     st.Attempts,
			ElapsedMs:    st.Elapsed.Milliseconds(),
			Progress:     st.Progress,
		}
		if st.IsLoading && st.HasData {
			msg.Partial = st.Data
		}
		w.hub.BroadcastProgress(msg)
	}

	for {
		select {
		case st := <-updates:
			report(st)

		case out := <-done:
			select {
			case st := <-updates:
				report(st)
			default:
			}
			if canceled {
				return nil
			}
			return settle(ctx, w, payload, out.state, out.err)
		}
	}
}

// settle records the outcome of a finished session. Retryable failures are
// handed back to asynq while deliveries remain.
func settle[R any](ctx context.Context, w *TaskWorker, payload model.JobPayload, st feature.State[R], err error) error {
	jobID := payload.JobID

	if err != nil {
		e := apierr.From(err)
		if e.IsValidation() {
			w.fail(ctx, jobID, e)
			return fmt.Errorf("job %s: %w: %w", jobID, e, asynq.SkipRetry)
		}
		// ctx ended: the server is shutting down or the task timed out.
		return fmt.Errorf("job %s interrupted: %w", jobID, err)
	}

	if st.IsError {
		e := st.Error
		if e == nil {
			e = apierr.From(errors.New(apierr.DefaultMessage))
		}
		if e.Retryable() && retriesLeft(ctx) {
			w.logger.Warn("job attempt failed, will retry", "job", jobID, "task", st.TaskID, "err", e)
			return fmt.Errorf("job %s: %w", jobID, e)
		}
		w.fail(ctx, jobID, e)
		return fmt.Errorf("job %s: %w: %w", jobID, e, asynq.SkipRetry)
	}

	if !st.IsSuccess {
		return fmt.Errorf("job %s: session ended without a result", jobID)
	}

	var result interface{} = st.Data
	archived, aerr := w.archive.Archive(ctx, payload.Feature, jobID, result)
	if aerr != nil {
		w.logger.Warn("media archive incomplete", "job", jobID, "err", aerr)
	}

	if err := w.jobs.CompleteJob(ctx, jobID, result, archived); err != nil {
		w.fail(ctx, jobID, apierr.From(fmt.Errorf("failed to save result: %w", err)))
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	w.logger.Info("job completed", "job", jobID, "task", st.TaskID, "attempts", st.Attempts)
	return nil
}

func retriesLeft(ctx context.Context) bool {
	n, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	max, ok := asynq.GetMaxRetry(ctx)
	return ok && n < max
}

func (w *TaskWorker) fail(ctx context.Context, jobID string, e *apierr.Error) {
	if err := w.jobs.FailJob(ctx, jobID, e); err != nil {
		w.logger.Error("failed to mark job as failed", "job", jobID, "err", err)
	}
	w.hub.BroadcastError(jobID, service.JobErrorFrom(e))
	w.logger.Warn("job failed", "job", jobID, "kind", e.Kind, "err", e.Message)
}
