// Package command implements the gateway's write-side pipeline: every
// mutation (creating an archive, updating a pointer, appending to a
// register) is submitted as a Command, deduplicated by action hash,
// and run through a bounded two-stage executor - ingest then execute -
// so a burst of identical requests collapses into one network write.
//
// Grounded on the teacher's channel-plus-goroutine composition style
// seen throughout semaphore/ and atomic/ (bounded channel as the
// backpressure primitive, a single owning goroutine draining it), and
// on google/uuid for command identifiers and hashicorp/go-multierror
// for reporting a batch submission's per-command failures together.
package command

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/traktion/anttp/internal/apperr"
	"github.com/traktion/anttp/internal/hashutil"
	"github.com/traktion/anttp/internal/logger"
	"github.com/traktion/anttp/internal/metrics"
)

// State is a command's lifecycle state.
type State int

const (
	StateWaiting State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Command is a single unit of write work. Kind and Parts together
// define its action hash: two commands with the same Kind and Parts
// are the same network action and will be deduplicated.
type Command interface {
	Kind() string
	Parts() []string
	Run(ctx context.Context) error
}

// CommandError classifies a Command.Run failure as retryable or not.
// Run can still return a plain error, which execute treats as
// recoverable - the prior behaviour of retrying every failure alike -
// but wrapping it with Unrecoverable makes the retry loop break on the
// first occurrence instead of spending the remaining attempts on a
// failure that a retry can't fix (a malformed request body, a rejected
// derivation guard).
type CommandError struct {
	Err           error
	Unrecoverable bool
}

func (e *CommandError) Error() string { return e.Err.Error() }
func (e *CommandError) Unwrap() error { return e.Err }

// Unrecoverable wraps err so execute's retry loop breaks immediately
// instead of spending the remaining attempts on it. A nil err wraps to
// nil, so a Command.Run can unconditionally call
// command.Unrecoverable(err) on its error return.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Err: err, Unrecoverable: true}
}

// Recoverable wraps err to mark it explicitly retryable. Equivalent to
// returning err unwrapped - every error is recoverable unless marked
// otherwise - but useful where a Command wants its intent readable at
// the call site.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Err: err, Unrecoverable: false}
}

// isUnrecoverable reports whether err, or any error it wraps, is a
// *CommandError marked Unrecoverable.
func isUnrecoverable(err error) bool {
	for err != nil {
		if ce, ok := err.(*CommandError); ok {
			return ce.Unrecoverable
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Status is the externally observable state of a submitted command,
// returned to HTTP callers polling for completion.
type Status struct {
	ID         string
	ActionHash string
	State      State
	Err        error
	Attempts   int
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// quadraticBackoff is the fixed retry delay schedule: 1,4,9,16,25
// seconds for attempts 1 through 5. It is intentionally not
// jpillora/backoff's jittered exponential curve - the command retry
// policy is a deliberately exact, testable sequence, kept distinct
// from the harness reconnect backoff in internal/netclient.
func quadraticBackoff(attempt int) time.Duration {
	n := time.Duration(attempt)
	return n * n * time.Second
}

type job struct {
	id   string
	hash string
	cmd  Command
}

// Executor runs submitted commands through a bounded ingest channel
// and a single execute goroutine, retrying failures on the quadratic
// schedule up to maxAttempts times, and evicting old status entries
// once statusCap is exceeded so long-running processes don't leak
// memory over a command history that grows without bound. Dedup
// covers two windows: inFlight rejects a duplicate submitted while its
// original is still queued or running, and lastCompleted rejects one
// submitted after the original reached Completed (whether it succeeded
// or stopped retrying after a failure) - the
// latter never reaches the queue at all, it is marked Aborted on the
// spot.
type Executor struct {
	queue       chan job
	maxAttempts int
	statusCap   int
	log         *logger.Logger
	metrics     *metrics.Registry

	mu            sync.Mutex
	status        map[string]*Status
	order         []string
	inFlight      map[string]string // actionHash -> command id, for in-flight dedup
	lastCompleted map[string]string // actionHash -> command id of its most recent Completed run

	wg   sync.WaitGroup
	done chan struct{}
}

// NewExecutor starts the executor's background worker. bufferSize
// bounds the ingest channel (internal/config's queue_buffer_size);
// maxAttempts bounds retries (max_retry_attempts); statusCap bounds
// how many completed/aborted statuses are retained for polling.
func NewExecutor(bufferSize, maxAttempts, statusCap int) *Executor {
	e := &Executor{
		queue:         make(chan job, bufferSize),
		maxAttempts:   maxAttempts,
		statusCap:     statusCap,
		log:           logger.Named("command.executor"),
		status:        make(map[string]*Status),
		inFlight:      make(map[string]string),
		lastCompleted: make(map[string]string),
		done:          make(chan struct{}),
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// WithMetrics attaches a metrics registry to an already-running
// executor, the same post-construction-attach idiom
// internal/cache/hybrid.Cache uses, so cmd/anttp can wire metrics in
// without every other caller (tests, anything not built with a
// registry) needing to pass a nil. Returns e for chaining.
func (e *Executor) WithMetrics(m *metrics.Registry) *Executor {
	e.metrics = m
	return e
}

// ErrDuplicateAction is the Status.Err of a submission whose action
// hash matches the most recently completed run of the same action -
// the post-completion half of Submit/TrySubmit's dedup contract.
var ErrDuplicateAction = apperr.New(apperr.PhaseCreate, apperr.ReasonConflict, "command.submit", nil)

// Submit enqueues cmd for execution and returns its command ID and a
// bool reporting whether this call deduplicated against an already
// in-flight or recently-completed identical action. A post-completion
// duplicate is marked Aborted immediately and never reaches the queue.
func (e *Executor) Submit(cmd Command) (id string, deduped bool) {
	hash := hashutil.ActionHash(cmd.Kind(), cmd.Parts()...)

	e.mu.Lock()
	if existingID, ok := e.inFlight[hash]; ok {
		e.mu.Unlock()
		return existingID, true
	}
	if _, ok := e.lastCompleted[hash]; ok {
		id = e.newAbortedDuplicateLocked(hash)
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.CommandsAborted.Inc()
		}
		return id, true
	}

	id = uuid.NewString()
	now := time.Now()
	e.status[id] = &Status{ID: id, ActionHash: hash, State: StateWaiting, SubmittedAt: now, UpdatedAt: now}
	e.inFlight[hash] = id
	e.appendOrderLocked(id)
	e.mu.Unlock()

	e.queue <- job{id: id, hash: hash, cmd: cmd}
	if e.metrics != nil {
		e.metrics.CommandsSubmitted.Inc()
		e.metrics.QueueDepth.Set(float64(len(e.queue)))
	}
	return id, false
}

// newAbortedDuplicateLocked records a fresh, already-Aborted status
// entry for a submission whose action hash matches a prior completed
// run. Caller must hold e.mu.
func (e *Executor) newAbortedDuplicateLocked(hash string) string {
	id := uuid.NewString()
	now := time.Now()
	e.status[id] = &Status{
		ID:          id,
		ActionHash:  hash,
		State:       StateAborted,
		Err:         ErrDuplicateAction,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	e.appendOrderLocked(id)
	return id
}

func (e *Executor) appendOrderLocked(id string) {
	e.order = append(e.order, id)
	for len(e.order) > e.statusCap {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.status, oldest)
	}
}

// Status returns the current status of a submitted command.
func (e *Executor) Status(id string) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.status[id]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

func (e *Executor) setState(id string, mutate func(*Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.status[id]; ok {
		mutate(s)
		s.UpdatedAt = time.Now()
	}
}

func (e *Executor) run() {
	defer e.wg.Done()

	for {
		select {
		case j := <-e.queue:
			if e.metrics != nil {
				e.metrics.QueueDepth.Set(float64(len(e.queue)))
			}
			e.execute(j)
		case <-e.done:
			return
		}
	}
}

func (e *Executor) execute(j job) {
	e.setState(j.id, func(s *Status) { s.State = StateRunning })

	var attempt int
	for attempt = 1; attempt <= e.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := j.cmd.Run(ctx)
		cancel()

		e.setState(j.id, func(s *Status) { s.Attempts = attempt })

		if err == nil {
			e.finish(j, StateCompleted, nil)
			return
		}

		e.log.WithError(err).Warnf("command %s attempt %d/%d failed", j.id, attempt, e.maxAttempts)

		if isUnrecoverable(err) || attempt == e.maxAttempts {
			// REDESIGN NOTE: the upstream gateway this module
			// generalizes treats a failure that stops retrying -
			// whether unrecoverable or simply out of attempts - as
			// Completed rather than Aborted, so a client polling
			// status sees success even though the write never
			// reached the network. Reproduced as-is rather than
			// "fixed", since changing it changes what an
			// already-deployed client observes.
			e.finish(j, StateCompleted, multierror.Append(nil, err).ErrorOrNil())
			return
		}

		time.Sleep(quadraticBackoff(attempt))
	}
}

func (e *Executor) finish(j job, state State, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.status[j.id]; ok {
		s.State = state
		s.Err = err
		s.UpdatedAt = time.Now()
	}
	delete(e.inFlight, j.hash)
	if state == StateCompleted {
		e.lastCompleted[j.hash] = j.id
	}

	if e.metrics != nil {
		switch state {
		case StateCompleted:
			e.metrics.CommandsCompleted.Inc()
		case StateAborted:
			e.metrics.CommandsAborted.Inc()
		}
	}
}

// Close stops the executor's worker goroutine and waits for the
// current job, if any, to finish.
func (e *Executor) Close() {
	close(e.done)
	e.wg.Wait()
}

// ErrQueueFull is returned by callers using TrySubmit when the ingest
// channel is at capacity.
var ErrQueueFull = apperr.New(apperr.PhaseCreate, apperr.ReasonQuotaExceeded, "command.submit", nil)

// TrySubmit is the non-blocking counterpart to Submit: it fails with
// ErrQueueFull instead of blocking when the ingest channel is full,
// used by HTTP handlers that must not stall a request indefinitely on
// backpressure.
func (e *Executor) TrySubmit(cmd Command) (id string, deduped bool, err error) {
	hash := hashutil.ActionHash(cmd.Kind(), cmd.Parts()...)

	e.mu.Lock()
	if existingID, ok := e.inFlight[hash]; ok {
		e.mu.Unlock()
		return existingID, true, nil
	}
	if _, ok := e.lastCompleted[hash]; ok {
		id = e.newAbortedDuplicateLocked(hash)
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.CommandsAborted.Inc()
		}
		return id, true, nil
	}

	id = uuid.NewString()
	now := time.Now()
	e.status[id] = &Status{ID: id, ActionHash: hash, State: StateWaiting, SubmittedAt: now, UpdatedAt: now}
	e.inFlight[hash] = id
	e.appendOrderLocked(id)
	e.mu.Unlock()

	select {
	case e.queue <- job{id: id, hash: hash, cmd: cmd}:
		if e.metrics != nil {
			e.metrics.CommandsSubmitted.Inc()
			e.metrics.QueueDepth.Set(float64(len(e.queue)))
		}
		return id, false, nil
	default:
		e.finish(job{id: id, hash: hash}, StateAborted, ErrQueueFull)
		return id, false, ErrQueueFull
	}
}
