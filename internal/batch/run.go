package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stockmeta/internal/fileprep"
	"stockmeta/internal/generator"
	"stockmeta/internal/logging"
	"stockmeta/internal/queue"
	"stockmeta/internal/services"
)

// Summary reports how a run ended.
type Summary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Cancelled int           `json:"cancelled"`
	Skipped   int           `json:"skipped"`
	Groups    int           `json:"groups"`
	Stopped   bool          `json:"stopped"`
	Duration  time.Duration `json:"duration"`
}

// Run is a single active batch.
type Run struct {
	ID string

	ctrl    Control
	job     Job
	ids     []string
	started time.Time
	done    chan struct{}
	summary Summary
}

// Pause holds the run before its next group.
func (r *Run) Pause() { r.ctrl.Pause() }

// Resume releases a pause.
func (r *Run) Resume() { r.ctrl.Resume() }

// Stop ends the run at its next checkpoint.
func (r *Run) Stop() { r.ctrl.Stop() }

// Paused reports whether a pause is pending.
func (r *Run) Paused() bool { return r.ctrl.Paused() }

// Stopped reports whether Stop was requested.
func (r *Run) Stopped() bool { return r.ctrl.Stopped() }

// Items returns the ids captured when the run started.
func (r *Run) Items() []string { return append([]string(nil), r.ids...) }

// Done is closed once the run has fully exited.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run exits and returns its summary.
func (r *Run) Wait() Summary {
	<-r.done
	return r.summary
}

func (s *Scheduler) loop(ctx context.Context, run *Run) Summary {
	summary := Summary{RunID: run.ID, Total: len(run.ids)}
	var mu sync.Mutex
	record := func(outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case OutcomeSucceeded:
			summary.Succeeded++
		case OutcomeFailed:
			summary.Failed++
		case OutcomeCancelled:
			summary.Cancelled++
		case OutcomeSkipped:
			summary.Skipped++
		}
	}
	stopped := func() bool { return run.ctrl.Stopped() || ctx.Err() != nil }
	logger := s.logger.With(logging.String(logging.FieldRunID, run.ID))

	for start := 0; start < len(run.ids); start += s.groupSize {
		if stopped() {
			break
		}
		for run.ctrl.Paused() && !stopped() {
			if err := sleepCtx(ctx, s.pausePoll); err != nil {
				break
			}
		}
		if stopped() {
			break
		}

		end := min(start+s.groupSize, len(run.ids))
		group := run.ids[start:end]
		index := summary.Groups
		summary.Groups++
		logger.Debug("dispatching group",
			logging.Int(logging.FieldGroup, index),
			logging.Int("size", len(group)),
		)
		for _, o := range s.observers {
			o.GroupDispatched(run.ID, index, append([]string(nil), group...))
		}

		var g errgroup.Group
		g.SetLimit(s.groupSize)
		for _, id := range group {
			g.Go(func() error {
				ev := s.processItem(ctx, run, id, stopped)
				record(ev.Outcome)
				for _, o := range s.observers {
					o.ItemFinished(ev)
				}
				return nil
			})
		}
		_ = g.Wait()

		if end < len(run.ids) {
			_ = sleepCtx(ctx, s.settle)
		}
	}

	processed := summary.Succeeded + summary.Failed + summary.Cancelled + summary.Skipped
	summary.Cancelled += summary.Total - processed
	summary.Stopped = stopped()
	return summary
}

func (s *Scheduler) processItem(ctx context.Context, run *Run, id string, stopped func() bool) ItemEvent {
	ev := ItemEvent{RunID: run.ID, ItemID: id}
	if stopped() {
		ev.Outcome = OutcomeCancelled
		ev.Status = queue.StatusIdle
		return ev
	}
	if err := s.store.MarkProcessing(id); err != nil {
		// Removed or already handled since the run started.
		ev.Outcome = OutcomeSkipped
		return ev
	}
	item, ok := s.store.Get(id)
	if !ok {
		ev.Outcome = OutcomeSkipped
		return ev
	}
	ev.Name = item.File.Name
	logger := s.logger.With(
		logging.String(logging.FieldRunID, run.ID),
		logging.String(logging.FieldItemID, id),
		logging.String("file", item.File.Name),
	)

	payload, err := s.prep.Prepare(ctx, item.File)
	if stopped() {
		return s.rollback(ev, logger)
	}
	if err != nil {
		return s.fail(ev, err, logger)
	}
	logger.Debug("dispatching item", logging.String("payload", fileprep.Describe(payload)))

	job := run.job
	result, err := s.gen.Generate(ctx, generator.Input{
		Payload:  payload,
		Mode:     job.Mode,
		Platform: job.Platform,
		Settings: job.Settings,
		APIKey:   job.APIKey,
		Name:     item.File.Name,
	})
	if stopped() {
		return s.rollback(ev, logger)
	}
	if err != nil {
		return s.fail(ev, err, logger)
	}
	if err := s.store.MarkSuccess(id, result); err != nil {
		ev.Outcome = OutcomeSkipped
		return ev
	}
	ev.Outcome = OutcomeSucceeded
	ev.Status = queue.StatusSuccess
	return ev
}

func (s *Scheduler) rollback(ev ItemEvent, logger *slog.Logger) ItemEvent {
	if err := s.store.MarkIdle(ev.ItemID); err != nil {
		ev.Outcome = OutcomeSkipped
		return ev
	}
	logger.Debug("item rolled back after stop")
	ev.Outcome = OutcomeCancelled
	ev.Status = queue.StatusIdle
	return ev
}

func (s *Scheduler) fail(ev ItemEvent, err error, logger *slog.Logger) ItemEvent {
	msg := services.FailureMessage(err)
	if markErr := s.store.MarkError(ev.ItemID, msg); markErr != nil {
		ev.Outcome = OutcomeSkipped
		return ev
	}
	logger.Warn("item failed",
		logging.String(logging.FieldEventType, "item_failed"),
		logging.String(logging.FieldErrorHint, "retry the item or check the api key and quota"),
		logging.String(logging.FieldImpact, "item left in error state"),
		logging.Error(err),
	)
	ev.Outcome = OutcomeFailed
	ev.Status = queue.StatusError
	ev.Error = msg
	return ev
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
