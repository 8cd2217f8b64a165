// Package poller drives repeated status checks for one asynchronous remote
// task until it completes, fails or runs out of attempts.
//
// An Engine owns at most one session at a time. Ticks of a session are
// strictly sequential: the next status check is only scheduled once the
// previous fetch, completion check and extraction have returned. Every
// callback carries the generation of the session that scheduled it, so a
// callback belonging to a stopped, reset or superseded session never
// touches the current state.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// FetchFunc retrieves the raw status of a task.
type FetchFunc[T any] func(ctx context.Context, taskID string) (T, error)

// CompleteFunc reports whether a raw status is terminal.
type CompleteFunc[T any] func(resp T) bool

// ExtractFunc turns a terminal raw status into the session result. A
// returned error ends the session in StatusError.
type ExtractFunc[T, R any] func(resp T) (R, error)

// Snapshot is a copy of the observable session state.
type Snapshot[R any] struct {
	TaskID   string
	Status   Status
	Attempts int
	Elapsed  time.Duration
	// Interval is the delay scheduled after the latest attempt.
	Interval  time.Duration
	Result    R
	HasResult bool
	Err       error

	seq uint64
}

// Engine is a polling session state machine. The zero value is not usable;
// construct one with New.
type Engine[T, R any] struct {
	opts     Options
	fetch    FetchFunc[T]
	complete CompleteFunc[T]
	extract  ExtractFunc[T, R]
	logger   *log.Logger
	now      func() time.Time

	mu          sync.Mutex
	snap        Snapshot[R]
	startedAt   time.Time
	gen         uint64
	timer       *time.Timer
	cancel      context.CancelFunc
	stopElapsed chan struct{}
	done        chan struct{}
	listeners   map[int]func(Snapshot[R])
	nextID      int

	// seq stamps published snapshots; queued is the newest one accepted for
	// delivery and pending holds those not yet handed to listeners.
	seq        uint64
	queued     uint64
	pending    []Snapshot[R]
	delivering bool
}

// New creates an idle engine. fetch, complete and extract are required.
func New[T, R any](fetch FetchFunc[T], complete CompleteFunc[T], extract ExtractFunc[T, R], opts Options) *Engine[T, R] {
	if fetch == nil || complete == nil || extract == nil {
		panic("poller: fetch, complete and extract functions are required")
	}
	opts = opts.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine[T, R]{
		opts:      opts,
		fetch:     fetch,
		complete:  complete,
		extract:   extract,
		logger:    logger,
		now:       time.Now,
		snap:      Snapshot[R]{Status: StatusIdle},
		listeners: make(map[int]func(Snapshot[R])),
	}
}

// Options returns the effective timing policy.
func (e *Engine[T, R]) Options() Options {
	return e.opts
}

// OnChange registers fn to be called with a fresh snapshot after every
// transition and every attempt. Listeners run outside the engine lock and
// see snapshots in publication order, never an older one after a newer one.
// A change made while another goroutine is delivering is handed to the
// listeners by that goroutine. The returned func unregisters fn.
func (e *Engine[T, R]) OnChange(fn func(Snapshot[R])) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Snapshot returns the current session state.
func (e *Engine[T, R]) Snapshot() Snapshot[R] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Start begins a new session for taskID. Any session in progress is
// cancelled first and all counters, results and errors are cleared. The
// first status check runs immediately on its own goroutine; Start itself
// never blocks on the network.
func (e *Engine[T, R]) Start(taskID string) error {
	if taskID == "" {
		return ErrEmptyTaskID
	}

	e.mu.Lock()
	e.releaseLocked()
	e.gen++
	gen := e.gen
	e.snap = Snapshot[R]{TaskID: taskID, Status: StatusIdle}
	e.setStatusLocked(StatusPolling)
	e.startedAt = e.now()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	stop := make(chan struct{})
	e.stopElapsed = stop
	snap := e.publishLocked()
	e.mu.Unlock()

	e.logger.Debug("polling started", "task", taskID, "maxAttempts", e.opts.MaxAttempts)
	e.emit(snap)

	go e.trackElapsed(gen, stop)
	go e.tick(ctx, gen)
	return nil
}

// Stop cancels the pending status check and returns a polling session to
// idle. Result and error are left as they are. Stop is a no-op unless the
// session is polling.
func (e *Engine[T, R]) Stop() {
	e.mu.Lock()
	if e.snap.Status != StatusPolling {
		e.mu.Unlock()
		return
	}
	e.snap.Elapsed = e.now().Sub(e.startedAt)
	e.setStatusLocked(StatusIdle)
	e.releaseLocked()
	snap := e.publishLocked()
	e.mu.Unlock()

	e.logger.Debug("polling stopped", "task", snap.TaskID, "attempts", snap.Attempts)
	e.emit(snap)
}

// Reset cancels everything and clears the session back to a pristine idle
// state.
func (e *Engine[T, R]) Reset() {
	e.mu.Lock()
	e.releaseLocked()
	e.gen++
	e.setStatusLocked(StatusIdle)
	e.snap = Snapshot[R]{Status: StatusIdle}
	e.startedAt = time.Time{}
	snap := e.publishLocked()
	e.mu.Unlock()

	e.emit(snap)
}

// Wait blocks until the session observed at call time leaves the polling
// state, or ctx is done. It returns the snapshot at that moment.
func (e *Engine[T, R]) Wait(ctx context.Context) (Snapshot[R], error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return e.Snapshot(), ctx.Err()
		}
	}
	return e.Snapshot(), nil
}

// tick performs one status check of session gen.
func (e *Engine[T, R]) tick(ctx context.Context, gen uint64) {
	e.mu.Lock()
	if !e.activeLocked(gen) {
		e.mu.Unlock()
		return
	}
	e.timer = nil

	if max := e.opts.MaxAttempts; max > 0 && e.snap.Attempts >= max {
		e.finishLocked(StatusTimeout, fmt.Errorf("%w: %d status checks for task %s", ErrTimeout, e.snap.Attempts, e.snap.TaskID))
		snap := e.publishLocked()
		e.mu.Unlock()
		e.logger.Warn("polling timed out", "task", snap.TaskID, "attempts", snap.Attempts, "elapsed", snap.Elapsed)
		e.emit(snap)
		return
	}

	e.snap.Attempts++
	attempt := e.snap.Attempts
	taskID := e.snap.TaskID
	snap := e.publishLocked()
	e.mu.Unlock()
	e.emit(snap)

	if ctx.Err() != nil {
		return
	}
	resp, err := e.fetch(ctx, taskID)

	var (
		completed bool
		result    R
		xerr      error
	)
	if err == nil {
		completed = e.complete(resp)
		if completed {
			result, xerr = e.extract(resp)
		}
	}

	e.mu.Lock()
	if !e.activeLocked(gen) {
		e.mu.Unlock()
		return
	}

	switch {
	case err != nil:
		e.finishLocked(StatusError, err)
	case completed && xerr != nil:
		e.finishLocked(StatusError, xerr)
	case completed:
		e.snap.Result = result
		e.snap.HasResult = true
		e.finishLocked(StatusSuccess, nil)
	default:
		interval := e.opts.Interval(attempt)
		e.snap.Interval = interval
		e.timer = time.AfterFunc(interval, func() { e.tick(ctx, gen) })
	}
	snap = e.publishLocked()
	e.mu.Unlock()

	switch snap.Status {
	case StatusPolling:
		e.logger.Debug("task pending", "task", taskID, "attempt", attempt, "next", snap.Interval)
	case StatusSuccess:
		e.logger.Debug("task completed", "task", taskID, "attempts", attempt, "elapsed", snap.Elapsed)
	case StatusError:
		e.logger.Debug("task failed", "task", taskID, "attempts", attempt, "err", snap.Err)
	}
	e.emit(snap)
}

// trackElapsed refreshes the elapsed time of session gen until stop closes.
func (e *Engine[T, R]) trackElapsed(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(e.opts.ElapsedTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.activeLocked(gen) {
				e.snap.Elapsed = e.now().Sub(e.startedAt)
			}
			e.mu.Unlock()
		}
	}
}

func (e *Engine[T, R]) activeLocked(gen uint64) bool {
	return e.gen == gen && e.snap.Status == StatusPolling
}

// finishLocked moves a polling session to a terminal status.
func (e *Engine[T, R]) finishLocked(to Status, err error) {
	if !e.setStatusLocked(to) {
		return
	}
	e.snap.Err = err
	e.snap.Elapsed = e.now().Sub(e.startedAt)
	e.releaseLocked()
}

func (e *Engine[T, R]) setStatusLocked(to Status) bool {
	if err := checkTransition(e.snap.Status, to); err != nil {
		e.logger.Error("rejected state change", "task", e.snap.TaskID, "err", err)
		return false
	}
	e.snap.Status = to
	return true
}

// releaseLocked cancels the timer, the in-flight fetch and the elapsed
// ticker of the current session and wakes up waiters.
func (e *Engine[T, R]) releaseLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.stopElapsed != nil {
		close(e.stopElapsed)
		e.stopElapsed = nil
	}
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

// publishLocked stamps the current state with the next sequence number and
// returns a copy of it for emit.
func (e *Engine[T, R]) publishLocked() Snapshot[R] {
	e.seq++
	e.snap.seq = e.seq
	return e.snap
}

// emit hands snap to the listeners. Snapshots reach listeners in the order
// they were published; one that was overtaken by a newer snapshot is
// dropped. Only one goroutine delivers at a time, the others queue their
// snapshot and return, so a listener may safely call back into the engine.
func (e *Engine[T, R]) emit(snap Snapshot[R]) {
	e.mu.Lock()
	if snap.seq <= e.queued {
		e.mu.Unlock()
		return
	}
	e.queued = snap.seq
	e.pending = append(e.pending, snap)
	if e.delivering {
		e.mu.Unlock()
		return
	}

	e.delivering = true
	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending = e.pending[1:]
		fns := make([]func(Snapshot[R]), 0, len(e.listeners))
		for _, fn := range e.listeners {
			fns = append(fns, fn)
		}
		e.mu.Unlock()

		for _, fn := range fns {
			fn(next)
		}
		e.mu.Lock()
	}
	e.pending = nil
	e.delivering = false
	e.mu.Unlock()
}
