package notifications

import (
	"context"
	"log/slog"
	"time"

	"stockmeta/internal/batch"
	"stockmeta/internal/config"
	"stockmeta/internal/logging"
)

const observerTimeout = 15 * time.Second

// BatchObserver forwards scheduler events to a Service. Sends run in the
// background so a slow ntfy endpoint never holds up a group.
type BatchObserver struct {
	svc       Service
	logger    *slog.Logger
	runEvents bool
	errors    bool
}

// NewBatchObserver wires svc according to the notification toggles in cfg.
func NewBatchObserver(cfg *config.Config, svc Service, logger *slog.Logger) *BatchObserver {
	o := &BatchObserver{
		svc:       svc,
		logger:    logging.NewComponentLogger(logger, "notifications"),
		runEvents: true,
		errors:    true,
	}
	if cfg != nil {
		o.runEvents = cfg.Notifications.Batch
		o.errors = cfg.Notifications.Errors
	}
	return o
}

var _ batch.Observer = (*BatchObserver)(nil)

func (o *BatchObserver) RunStarted(info batch.RunInfo) {
	if !o.runEvents || info.Items == 0 {
		return
	}
	o.dispatch("batch_started", func(ctx context.Context) error {
		return o.svc.NotifyBatchStarted(ctx, info.Items, info.Mode.Label(), info.Platform)
	})
}

func (o *BatchObserver) GroupDispatched(string, int, []string) {}

func (o *BatchObserver) ItemFinished(ev batch.ItemEvent) {
	if !o.errors || ev.Outcome != batch.OutcomeFailed {
		return
	}
	o.dispatch("item_failed", func(ctx context.Context) error {
		return o.svc.NotifyItemFailed(ctx, ev.Name, ev.Error)
	})
}

func (o *BatchObserver) RunFinished(summary batch.Summary) {
	if !o.runEvents || summary.Total == 0 {
		return
	}
	o.dispatch("batch_completed", func(ctx context.Context) error {
		return o.svc.NotifyBatchCompleted(ctx, summary.Succeeded, summary.Failed, summary.Stopped, summary.Duration)
	})
}

func (o *BatchObserver) dispatch(event string, send func(ctx context.Context) error) {
	if o.svc == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logging.WarnWithContext(o.logger, "notification failed", "notification_failed",
				logging.String("event", event),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "batch continues without this notification"),
			)
		}
	}()
}
