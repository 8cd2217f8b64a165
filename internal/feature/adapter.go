// Package feature binds the remote task API to polling sessions, one
// adapter per feature: music generation, lyrics, extension, vocal
// separation, WAV conversion and MP4 generation.
//
// An adapter validates its parameters, creates the remote task, polls its
// status with its own poller.Engine and shapes the final payload into a
// typed result. Every failure after validation is reported through State.
package feature

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/extract"
	"github.com/makeasinger/musicgen/internal/model"
	"github.com/makeasinger/musicgen/internal/poller"
	"github.com/makeasinger/musicgen/internal/store"
)

// Backend creates remote tasks and reads their status.
type Backend interface {
	CreateTask(ctx context.Context, f model.Feature, body interface{}) (string, error)
	TaskStatus(ctx context.Context, f model.Feature, taskID string) (*model.TaskStatus, error)
}

// Config holds the collaborators shared by adapters.
type Config struct {
	Backend Backend
	// Store persists finished tasks. Nil means store.Nop.
	Store store.TaskStore
	// Poll is the base timing policy. Nil means poller.DefaultOptions. A
	// zero GrowthEvery takes the feature's own cadence.
	Poll      *poller.Options
	Validator *validator.Validate
	Logger    *log.Logger
}

// State is the observable state of an adapter.
type State[R any] struct {
	Feature model.Feature
	TaskID  string
	Status  poller.Status
	// IsLoading is true while the task is being created or polled.
	IsLoading bool
	IsSuccess bool
	IsError   bool
	// Data is the final result on success. Generation and extension also
	// expose partial tracks once the first song is ready.
	Data     R
	HasData  bool
	Error    *apierr.Error
	Attempts int
	Elapsed  time.Duration
	Progress model.Progress
}

// spec describes one feature.
type spec[P, R any] struct {
	feature     model.Feature
	vocab       extract.Vocabulary
	growthEvery int
	body        func(P) interface{}
	extract     func(json.RawMessage) (R, error)
	// partial returns intermediate data for a running task, if any.
	partial func(json.RawMessage) (R, bool)
}

// Adapter submits tasks of one feature and tracks the latest one.
type Adapter[P, R any] struct {
	spec      spec[P, R]
	backend   Backend
	store     store.TaskStore
	validator *validator.Validate
	logger    *log.Logger
	engine    *poller.Engine[*model.TaskStatus, R]

	mu         sync.Mutex
	submission uint64
	creating   bool
	created    chan struct{}
	cancel     context.CancelFunc
	createErr  *apierr.Error
	task       *model.Task
	lastParams *P
	progress   model.Progress
	partial    R
	hasPartial bool
	listeners  map[int]func(State[R])
	nextID     int
}

func newAdapter[P, R any](cfg Config, s spec[P, R]) *Adapter[P, R] {
	if cfg.Backend == nil {
		panic("feature: backend is required")
	}
	a := &Adapter[P, R]{
		spec:      s,
		backend:   cfg.Backend,
		store:     cfg.Store,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		listeners: make(map[int]func(State[R])),
	}
	if a.store == nil {
		a.store = store.Nop{}
	}
	if a.validator == nil {
		a.validator = defaultValidator
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	a.logger = a.logger.WithPrefix(s.feature.Slug())

	opts := poller.DefaultOptions()
	if cfg.Poll != nil {
		opts = *cfg.Poll
	}
	if opts.GrowthEvery == 0 {
		opts.GrowthEvery = s.growthEvery
	}
	if opts.Logger == nil {
		opts.Logger = a.logger
	}

	a.engine = poller.New(a.fetch, a.complete, a.finish, opts)
	a.engine.OnChange(func(poller.Snapshot[R]) { a.emit() })
	return a
}

// Feature returns the feature served by a.
func (a *Adapter[P, R]) Feature() model.Feature {
	return a.spec.feature
}

// PollOptions returns the timing policy of a's sessions.
func (a *Adapter[P, R]) PollOptions() poller.Options {
	return a.engine.Options()
}

// Submit validates params, creates a remote task and starts polling it.
// Any session in progress is cancelled first. Only validation errors are
// returned; creation and polling failures are reported through State.
// Submit blocks until the creation call returns.
func (a *Adapter[P, R]) Submit(ctx context.Context, params P) error {
	if err := Validate(a.validator, params); err != nil {
		return err
	}
	body := a.spec.body(params)

	ctx, cancel := context.WithCancel(ctx)
	created := make(chan struct{})

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.submission++
	sub := a.submission
	p := params
	a.lastParams = &p
	a.creating = true
	a.created = created
	a.cancel = cancel
	a.createErr = nil
	a.task = nil
	a.clearProgressLocked()
	a.mu.Unlock()

	a.engine.Reset()

	defer close(created)
	defer cancel()

	taskID, err := a.backend.CreateTask(ctx, a.spec.feature, body)

	a.mu.Lock()
	if a.submission != sub {
		a.mu.Unlock()
		return nil
	}
	a.creating = false
	a.cancel = nil
	if err == nil && taskID == "" {
		err = apierr.Extraction("taskId")
	}
	if err != nil {
		a.createErr = apierr.From(err)
		a.mu.Unlock()
		a.logger.Warn("task creation failed", "err", err)
		a.emit()
		return nil
	}
	a.task = &model.Task{ID: taskID, Feature: a.spec.feature, CreatedAt: time.Now()}
	a.mu.Unlock()

	a.logger.Info("task created", "task", taskID)
	if err := a.engine.Start(taskID); err != nil {
		a.mu.Lock()
		a.createErr = apierr.From(err)
		a.mu.Unlock()
		a.emit()
	}
	return nil
}

// Retry resubmits the last parameters passed to Submit. It is a no-op when
// Submit was never called.
func (a *Adapter[P, R]) Retry(ctx context.Context) error {
	a.mu.Lock()
	last := a.lastParams
	a.mu.Unlock()
	if last == nil {
		return nil
	}
	return a.Submit(ctx, *last)
}

// Stop cancels a pending creation call and stops polling. Collected
// results and errors are kept.
func (a *Adapter[P, R]) Stop() {
	a.mu.Lock()
	a.cancelCreationLocked()
	a.mu.Unlock()
	a.engine.Stop()
	a.emit()
}

// Reset cancels everything and clears the state. The last parameters are
// kept for Retry.
func (a *Adapter[P, R]) Reset() {
	a.mu.Lock()
	a.cancelCreationLocked()
	a.createErr = nil
	a.task = nil
	a.clearProgressLocked()
	a.mu.Unlock()
	a.engine.Reset()
}

// Wait blocks until the latest submission is no longer loading or ctx is
// done, and returns the state at that moment.
func (a *Adapter[P, R]) Wait(ctx context.Context) (State[R], error) {
	a.mu.Lock()
	created := a.created
	a.mu.Unlock()

	if created != nil {
		select {
		case <-created:
		case <-ctx.Done():
			return a.State(), ctx.Err()
		}
	}
	if _, err := a.engine.Wait(ctx); err != nil {
		return a.State(), err
	}
	return a.State(), nil
}

// State returns the current state.
func (a *Adapter[P, R]) State() State[R] {
	snap := a.engine.Snapshot()

	a.mu.Lock()
	defer a.mu.Unlock()

	st := State[R]{
		Feature:  a.spec.feature,
		TaskID:   snap.TaskID,
		Status:   snap.Status,
		Attempts: snap.Attempts,
		Elapsed:  snap.Elapsed,
		Progress: a.progress,
	}
	if st.TaskID == "" && a.task != nil {
		st.TaskID = a.task.ID
	}

	switch {
	case a.creating:
		st.Status = poller.StatusIdle
		st.IsLoading = true
		return st
	case a.createErr != nil:
		st.Status = poller.StatusError
		st.IsError = true
		st.Error = a.createErr
		return st
	}

	switch snap.Status {
	case poller.StatusPolling:
		st.IsLoading = true
		if a.hasPartial {
			st.Data, st.HasData = a.partial, true
		}
	case poller.StatusSuccess:
		st.IsSuccess = true
		st.Data, st.HasData = snap.Result, snap.HasResult
	case poller.StatusError, poller.StatusTimeout:
		st.IsError = true
		st.Error = a.sessionError(snap)
	case poller.StatusIdle:
		if snap.HasResult {
			st.Data, st.HasData = snap.Result, true
		}
		if snap.Err != nil {
			st.Error = a.sessionError(snap)
		}
	}
	return st
}

// OnChange registers fn to be called after every state change. The
// returned func unregisters it.
func (a *Adapter[P, R]) OnChange(fn func(State[R])) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Adapter[P, R]) sessionError(snap poller.Snapshot[R]) *apierr.Error {
	if snap.Err == nil {
		return nil
	}
	if errors.Is(snap.Err, poller.ErrTimeout) {
		return apierr.Timeout(snap.Attempts, snap.Err)
	}
	return apierr.From(snap.Err)
}

// fetch reads the status of taskID and records the progress signals it
// carries.
func (a *Adapter[P, R]) fetch(ctx context.Context, taskID string) (*model.TaskStatus, error) {
	st, err := a.backend.TaskStatus(ctx, a.spec.feature, taskID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &model.TaskStatus{TaskID: taskID}
	}

	view := extract.Project(a.spec.vocab, st)
	a.mu.Lock()
	if view.Status != "" {
		a.progress = view.Progress()
	}
	if view.Phase == extract.PhaseProgress && view.FirstGenerated && a.spec.partial != nil {
		if data, ok := a.spec.partial(st.Result); ok {
			a.partial, a.hasPartial = data, true
		}
	}
	a.mu.Unlock()
	return st, nil
}

func (a *Adapter[P, R]) complete(st *model.TaskStatus) bool {
	return a.spec.vocab.IsTerminal(st.Status)
}

// finish turns a terminal status into the result and persists the outcome.
func (a *Adapter[P, R]) finish(st *model.TaskStatus) (R, error) {
	var (
		res R
		err error
	)
	view := extract.Project(a.spec.vocab, st)
	if view.Phase == extract.PhaseFailure {
		err = apierr.RemoteStatus(view.Status, view.Error)
	} else {
		res, err = a.spec.extract(st.Result)
	}
	a.persist(st, res, err)
	return res, err
}

func (a *Adapter[P, R]) persist(st *model.TaskStatus, res R, err error) {
	rec := &model.TaskRecord{
		TaskID:      st.TaskID,
		Feature:     a.spec.feature,
		Status:      st.Status,
		Attempts:    a.engine.Snapshot().Attempts,
		CompletedAt: time.Now(),
	}
	if rec.TaskID == "" {
		rec.TaskID = a.engine.Snapshot().TaskID
	}

	a.mu.Lock()
	if a.task != nil && a.task.ID == rec.TaskID {
		rec.CreatedAt = a.task.CreatedAt
	}
	a.mu.Unlock()

	if err != nil {
		rec.Error = apierr.From(err).Message
	} else if data, merr := json.Marshal(res); merr == nil {
		rec.Result = data
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := a.store.Save(ctx, rec); serr != nil {
		a.logger.Warn("failed to persist task", "task", rec.TaskID, "err", serr)
	}
}

func (a *Adapter[P, R]) cancelCreationLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.creating {
		a.submission++
		a.creating = false
	}
}

func (a *Adapter[P, R]) clearProgressLocked() {
	var zero R
	a.progress = model.Progress{}
	a.partial, a.hasPartial = zero, false
}

func (a *Adapter[P, R]) emit() {
	st := a.State()

	a.mu.Lock()
	fns := make([]func(State[R]), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
