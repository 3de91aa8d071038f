package batch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockmeta/internal/fileprep"
	"stockmeta/internal/generator"
	"stockmeta/internal/logging"
	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/queue"
)

// ErrBatchRunning is returned by Start while another run is active.
var ErrBatchRunning = errors.New("batch already running")

const (
	DefaultGroupSize   = 5
	DefaultPausePoll   = 200 * time.Millisecond
	DefaultSettleDelay = 100 * time.Millisecond
)

// Preparer builds a generator payload from a queued file.
type Preparer interface {
	Prepare(ctx context.Context, file queue.File) (fileprep.Payload, error)
}

// Generator produces a result for one payload.
type Generator interface {
	Generate(ctx context.Context, in generator.Input) (metadata.Result, error)
}

// Job is the configuration captured when a run starts.
type Job struct {
	Mode     metadata.Mode
	Platform platform.Platform
	Settings metadata.Settings
	APIKey   string
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithGroupSize sets how many items run concurrently per group.
func WithGroupSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.groupSize = n
		}
	}
}

// WithPausePoll sets how often a paused run re-checks its flags.
func WithPausePoll(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pausePoll = d
		}
	}
}

// WithSettleDelay sets the wait between groups.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithClock overrides the time source used for summaries.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler runs batches over a queue store.
type Scheduler struct {
	store     *queue.Store
	prep      Preparer
	gen       Generator
	groupSize int
	pausePoll time.Duration
	settle    time.Duration
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time

	mu      sync.Mutex
	current *Run
}

// NewScheduler constructs a Scheduler.
func NewScheduler(store *queue.Store, prep Preparer, gen Generator, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     store,
		prep:      prep,
		gen:       gen,
		groupSize: DefaultGroupSize,
		pausePoll: DefaultPausePoll,
		settle:    DefaultSettleDelay,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "batch")
	return s
}

// GroupSize reports the configured group size.
func (s *Scheduler) GroupSize() int { return s.groupSize }

// Running reports whether a run is active.
func (s *Scheduler) Running() bool {
	return s.Current() != nil
}

// Current returns the active run, or nil.
func (s *Scheduler) Current() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Start snapshots the eligible items and processes them in the background.
// It fails with generator.ErrMissingCredential when job has no key and with
// ErrBatchRunning when a run is already active.
func (s *Scheduler) Start(ctx context.Context, job Job) (*Run, error) {
	if strings.TrimSpace(job.APIKey) == "" {
		return nil, generator.ErrMissingCredential
	}
	if job.Mode == "" {
		job.Mode = metadata.ModeMetadata
	}
	if job.Platform == "" {
		job.Platform = platform.Default
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return nil, ErrBatchRunning
	}
	run := &Run{
		ID:      uuid.NewString(),
		job:     job,
		ids:     s.store.Snapshot().EligibleIDs(),
		started: s.now(),
		done:    make(chan struct{}),
	}
	s.current = run
	s.mu.Unlock()

	info := RunInfo{
		ID:        run.ID,
		Mode:      job.Mode,
		Platform:  job.Platform.String(),
		Items:     len(run.ids),
		GroupSize: s.groupSize,
		StartedAt: run.started,
	}
	s.logger.Info("batch started",
		logging.String(logging.FieldRunID, run.ID),
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("items", info.Items),
		logging.Int("group_size", info.GroupSize),
		logging.String("mode", string(job.Mode)),
		logging.String("platform", info.Platform),
	)
	for _, o := range s.observers {
		o.RunStarted(info)
	}

	go s.execute(ctx, run)
	return run, nil
}

func (s *Scheduler) execute(ctx context.Context, run *Run) {
	summary := s.loop(ctx, run)
	summary.Duration = s.now().Sub(run.started)

	s.mu.Lock()
	run.summary = summary
	s.current = nil
	s.mu.Unlock()

	s.logger.Info("batch finished",
		logging.String(logging.FieldRunID, run.ID),
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("cancelled", summary.Cancelled),
		logging.Int("skipped", summary.Skipped),
		logging.Int("groups", summary.Groups),
		logging.Bool("stopped", summary.Stopped),
		logging.Duration("duration", summary.Duration),
	)
	for _, o := range s.observers {
		o.RunFinished(summary)
	}
	close(run.done)
}
