package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stockmeta/internal/batch"
	"stockmeta/internal/config"
	"stockmeta/internal/metadata"
	"stockmeta/internal/notifications"
)

type captured struct {
	title, tags, priority, body string
}

func captureServer(t *testing.T) (*httptest.Server, <-chan captured) {
	t.Helper()
	ch := make(chan captured, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
	}))
	t.Cleanup(server.Close)
	return server, ch
}

func configWithTopic(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.Batch = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configWithTopic(""))
	if err := svc.NotifyBatchStarted(context.Background(), 3, "Metadata", "AdobeStock"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("nil config should yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	server, ch := captureServer(t)
	svc := notifications.NewService(configWithTopic(server.URL))
	ctx := context.Background()

	tests := []struct {
		name   string
		send   func() error
		expect captured
	}{
		{
			name:   "started",
			send:   func() error { return svc.NotifyBatchStarted(ctx, 7, "Metadata", "Shutterstock") },
			expect: captured{title: "stockmeta - Batch Started", tags: "stockmeta,batch,started", body: "Started Metadata batch: 7 items for Shutterstock"},
		},
		{
			name:   "completed clean",
			send:   func() error { return svc.NotifyBatchCompleted(ctx, 5, 0, false, 61400*time.Millisecond) },
			expect: captured{title: "stockmeta - Batch Complete", tags: "stockmeta,batch,completed", body: "Batch complete: 5 items processed in 1m1s"},
		},
		{
			name:   "completed with errors",
			send:   func() error { return svc.NotifyBatchCompleted(ctx, 4, 1, false, time.Second) },
			expect: captured{title: "stockmeta - Batch Complete (with errors)", tags: "stockmeta,batch,completed", body: "Batch complete: 4 succeeded, 1 failed in 1s"},
		},
		{
			name:   "stopped",
			send:   func() error { return svc.NotifyBatchCompleted(ctx, 2, 0, true, 0) },
			expect: captured{title: "stockmeta - Batch Stopped", tags: "stockmeta,batch,completed", body: "Batch stopped: 2 succeeded, 0 failed in 0s"},
		},
		{
			name:   "item failed",
			send:   func() error { return svc.NotifyItemFailed(ctx, "cat.jpg", "quota exhausted") },
			expect: captured{title: "stockmeta - Item Failed", tags: "stockmeta,item,failed", body: "Failed: cat.jpg\nquota exhausted"},
		},
		{
			name:   "error",
			send:   func() error { return svc.NotifyError(ctx, errors.New("boom"), "export") },
			expect: captured{title: "stockmeta - Error", tags: "stockmeta,error,alert", priority: "high", body: "❌ Error with export: boom"},
		},
	}
	for _, tc := range tests {
		if err := tc.send(); err != nil {
			t.Fatalf("%s: send: %v", tc.name, err)
		}
		got := <-ch
		if got != tc.expect {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.expect)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer server.Close()

	err := notifications.NewService(configWithTopic(server.URL)).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected status error, got %v", err)
	}
}

type recordingService struct {
	mu     sync.Mutex
	events []string
	done   chan struct{}
}

func (r *recordingService) record(event string) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingService) NotifyBatchStarted(context.Context, int, string, string) error {
	return r.record("started")
}

func (r *recordingService) NotifyBatchCompleted(context.Context, int, int, bool, time.Duration) error {
	return r.record("completed")
}

func (r *recordingService) NotifyItemFailed(_ context.Context, name, _ string) error {
	return r.record("failed:" + name)
}

func (r *recordingService) NotifyError(context.Context, error, string) error { return nil }
func (r *recordingService) TestNotification(context.Context) error           { return nil }

func TestBatchObserverRespectsToggles(t *testing.T) {
	svc := &recordingService{done: make(chan struct{}, 8)}
	cfg := configWithTopic("unused")
	cfg.Notifications.Batch = false
	obs := notifications.NewBatchObserver(cfg, svc, nil)

	obs.RunStarted(batch.RunInfo{Items: 3, Mode: metadata.ModeMetadata})
	obs.ItemFinished(batch.ItemEvent{Name: "ok.jpg", Outcome: batch.OutcomeSucceeded})
	obs.ItemFinished(batch.ItemEvent{Name: "bad.jpg", Outcome: batch.OutcomeFailed, Error: "x"})
	obs.RunFinished(batch.Summary{Total: 3, Succeeded: 2, Failed: 1})

	select {
	case <-svc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected failure notification")
	}
	select {
	case <-svc.done:
		t.Fatalf("unexpected extra notification: %v", svc.events)
	case <-time.After(50 * time.Millisecond):
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.events) != 1 || svc.events[0] != "failed:bad.jpg" {
		t.Fatalf("unexpected events %v", svc.events)
	}
}
