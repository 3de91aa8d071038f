package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"stockmeta/internal/config"
	"stockmeta/internal/services/gemini"
)

const geminiCheckTimeout = 15 * time.Second

// CheckGemini verifies that the Gemini API is reachable and the key is valid.
// It makes a single attempt without retries.
func CheckGemini(ctx context.Context, cfg config.Gemini, apiKey string) Result {
	const name = "Gemini API"
	if apiKey == "" {
		return Result{Name: name, Detail: "API key missing (set one with `stockmeta session set-key`)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, geminiCheckTimeout)
	defer cancel()

	client := gemini.NewClient(gemini.Config{
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: int(geminiCheckTimeout / time.Second),
	})
	if err := client.HealthCheck(checkCtx, apiKey); err != nil {
		return Result{Name: name, Detail: summarizeGeminiError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("model %s reachable", client.Model())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeGeminiError produces a human-readable summary for health check failures.
func summarizeGeminiError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (Gemini API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (Gemini API unreachable)"
	}
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return "auth failed (invalid API key)"
		case http.StatusNotFound:
			return "model not found"
		}
		if gemini.IsRateLimit(err) {
			return "rate limited (quota exhausted)"
		}
	}
	return err.Error()
}
