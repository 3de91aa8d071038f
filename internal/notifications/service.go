package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockmeta/internal/config"
)

const userAgent = "stockmeta/0.1.0"

// Service defines the notification surface exposed to batch components.
type Service interface {
	NotifyBatchStarted(ctx context.Context, count int, mode, platform string) error
	NotifyBatchCompleted(ctx context.Context, succeeded, failed int, stopped bool, duration time.Duration) error
	NotifyItemFailed(ctx context.Context, filename, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, count int, mode, platform string) error {
	message := fmt.Sprintf("Started %s batch: %d items", strings.TrimSpace(mode), count)
	if platform = strings.TrimSpace(platform); platform != "" {
		message += fmt.Sprintf(" for %s", platform)
	}
	return n.send(ctx, payload{
		title:   "stockmeta - Batch Started",
		message: message,
		tags:    []string{"stockmeta", "batch", "started"},
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, succeeded, failed int, stopped bool, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()

	title := "stockmeta - Batch Complete"
	message := fmt.Sprintf("Batch complete: %d items processed in %s", succeeded, durationText)
	switch {
	case stopped:
		title = "stockmeta - Batch Stopped"
		message = fmt.Sprintf("Batch stopped: %d succeeded, %d failed in %s", succeeded, failed, durationText)
	case failed > 0:
		title = "stockmeta - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch complete: %d succeeded, %d failed in %s", succeeded, failed, durationText)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"stockmeta", "batch", "completed"},
	})
}

func (n *ntfyService) NotifyItemFailed(ctx context.Context, filename, reason string) error {
	message := fmt.Sprintf("Failed: %s", strings.TrimSpace(filename))
	if reason = strings.TrimSpace(reason); reason != "" {
		message += "\n" + reason
	}
	return n.send(ctx, payload{
		title:   "stockmeta - Item Failed",
		message: message,
		tags:    []string{"stockmeta", "item", "failed"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "stockmeta - Error",
		message:  builder.String(),
		tags:     []string{"stockmeta", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "stockmeta - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"stockmeta", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int, string, string) error { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, bool, time.Duration) error {
	return nil
}
func (noopService) NotifyItemFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error       { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
