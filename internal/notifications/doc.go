// Package notifications delivers batch events via ntfy.
//
// NewService returns an ntfy-backed Service when a topic is configured and a
// no-op otherwise. BatchObserver adapts a Service to the batch scheduler's
// observer hooks so runs report their start, completion and item failures
// without the scheduler knowing about HTTP.
package notifications
