package batch

import (
	"time"

	"stockmeta/internal/metadata"
	"stockmeta/internal/queue"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID        string
	Mode      metadata.Mode
	Platform  string
	Items     int
	GroupSize int
	StartedAt time.Time
}

// Outcome is how a single item left the pipeline.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSkipped   Outcome = "skipped"
)

// ItemEvent reports one finished item.
type ItemEvent struct {
	RunID   string
	ItemID  string
	Name    string
	Outcome Outcome
	Error   string
	Status  queue.Status
}

// Observer receives run lifecycle callbacks. Calls for items in the same
// group may arrive concurrently.
type Observer interface {
	RunStarted(info RunInfo)
	GroupDispatched(runID string, index int, ids []string)
	ItemFinished(ev ItemEvent)
	RunFinished(summary Summary)
}

// ObserverFuncs adapts optional funcs to Observer.
type ObserverFuncs struct {
	OnRunStarted      func(RunInfo)
	OnGroupDispatched func(runID string, index int, ids []string)
	OnItemFinished    func(ItemEvent)
	OnRunFinished     func(Summary)
}

func (o ObserverFuncs) RunStarted(info RunInfo) {
	if o.OnRunStarted != nil {
		o.OnRunStarted(info)
	}
}

func (o ObserverFuncs) GroupDispatched(runID string, index int, ids []string) {
	if o.OnGroupDispatched != nil {
		o.OnGroupDispatched(runID, index, ids)
	}
}

func (o ObserverFuncs) ItemFinished(ev ItemEvent) {
	if o.OnItemFinished != nil {
		o.OnItemFinished(ev)
	}
}

func (o ObserverFuncs) RunFinished(summary Summary) {
	if o.OnRunFinished != nil {
		o.OnRunFinished(summary)
	}
}
