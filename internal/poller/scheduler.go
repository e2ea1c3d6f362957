package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

const defaultStopTimeout = 10 * time.Second

// Job is a named unit of periodic work, typically one sensor refresh.
type Job[T any] struct {
	// Name identifies the job in logs and results. Must be unique per scheduler.
	Name string

	// Run performs one cycle and returns its value. Run is never invoked
	// concurrently with itself.
	Run func(ctx context.Context) T
}

// Result holds the outcome of one [Job] run.
type Result[T any] struct {
	// Name is the job name.
	Name string

	// Value is what Run returned. Zero if Run panicked.
	Value T

	// StartedAt is when the run began.
	StartedAt time.Time

	// Duration is how long Run took.
	Duration time.Duration

	// Err is set when Run panicked; it carries a correlation id that matches
	// the server-side log entry holding the stack trace.
	Err error
}

// Scheduler runs jobs at a fixed interval on a gocron scheduler.
//
// Every job runs once immediately on start and then every interval. Jobs use
// gocron's reschedule singleton mode: a run that is still in flight when the
// next tick fires causes that tick to be skipped, so no job ever overlaps
// itself. Results are emitted on the channel returned by [Scheduler.Results].
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler[T any] struct {
	jobs        []Job[T]
	interval    time.Duration
	stopTimeout time.Duration
	results     chan Result[T]
	logger      *slog.Logger

	mu      sync.Mutex
	cron    gocron.Scheduler
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool

	stopOnce sync.Once

	// sendMu guards results against a close racing with an in-flight send
	sendMu sync.RWMutex
	closed bool
}

// NewScheduler creates a new [Scheduler] for the given jobs.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler[T any](jobs []Job[T], interval time.Duration, logger *slog.Logger) *Scheduler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler[T]{
		jobs:        jobs,
		interval:    interval,
		stopTimeout: defaultStopTimeout,
		results:     make(chan Result[T], len(jobs)),
		logger:      logger,
	}
}

// Results returns a receive-only channel that emits [Result] values.
//
// The channel is closed when the scheduler stops, either through
// [Scheduler.Stop] or cancellation of the context passed to Start.
func (s *Scheduler[T]) Results() <-chan Result[T] {
	return s.results
}

// Start registers every job with gocron and starts it. Start is non-blocking.
//
// If ctx is nil, context.Background() is used. Cancelling ctx stops the
// scheduler. Start is idempotent; calls after the first, or after Stop,
// are no-ops.
func (s *Scheduler[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", s.interval)
	}

	cron, err := gocron.NewScheduler(gocron.WithStopTimeout(s.stopTimeout))
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	for _, job := range s.jobs {
		_, err := cron.NewJob(
			gocron.DurationJob(s.interval),
			gocron.NewTask(s.run, job),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = cron.Shutdown()
			return fmt.Errorf("failed to schedule job %q: %w", job.Name, err)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron
	s.started = true

	cron.Start()

	runCtx := s.ctx
	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the scheduler, waits for in-flight runs and closes the results
// channel.
//
// Stop is idempotent and safe to call before Start.
func (s *Scheduler[T]) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		cancel := s.cancel
		cron := s.cron
		s.mu.Unlock()

		// cancel first so runs blocked on a full results channel give up
		if cancel != nil {
			cancel()
		}
		if cron != nil {
			if err := cron.Shutdown(); err != nil && !errors.Is(err, gocron.ErrStopSchedulerTimedOut) {
				s.logger.Warn("scheduler shutdown failed", "error", err)
			} else if err != nil {
				s.logger.Warn("scheduler shutdown timed out", "timeout", s.stopTimeout.String())
			}
		}

		s.sendMu.Lock()
		s.closed = true
		close(s.results)
		s.sendMu.Unlock()
	})
}

// run executes one job cycle and publishes the result.
func (s *Scheduler[T]) run(job Job[T]) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	result := s.safeRun(ctx, job)

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.results <- result:
	case <-ctx.Done():
	}
}

// safeRun calls the job with panic recovery.
// A panic is logged with its stack trace under a correlation id, and the
// returned result carries an error naming that id.
func (s *Scheduler[T]) safeRun(ctx context.Context, job Job[T]) (result Result[T]) {
	result.Name = job.Name
	result.StartedAt = time.Now()

	defer func() {
		result.Duration = time.Since(result.StartedAt)
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("job panic",
				"job", job.Name,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			var zero T
			result.Value = zero
			result.Err = fmt.Errorf("job panic (correlation_id: %s)", correlationID)
		}
	}()

	result.Value = job.Run(ctx)
	return result
}
