package daemon_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"stockmeta/internal/daemon"
	"stockmeta/internal/logging"
	"stockmeta/internal/testsupport"
	"stockmeta/internal/workspace"
)

type countingRunner struct {
	started atomic.Int32
	stopped atomic.Int32
}

func (r *countingRunner) Run(ctx context.Context) error {
	r.started.Add(1)
	<-ctx.Done()
	r.stopped.Add(1)
	return ctx.Err()
}

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws := workspace.New(workspace.Deps{Logger: logging.NewNop()}, workspace.Options{})
	t.Cleanup(ws.Close)
	return ws
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}
	d, err := daemon.New(cfg, newWorkspace(t), okHandler(), logging.NewNop(), runner)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || status.Addr == "" || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status %+v", status)
	}

	resp, err := http.Get("http://" + d.Addr() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if runner.started.Load() != 1 || runner.stopped.Load() != 1 {
		t.Fatalf("runner lifecycle: started=%d stopped=%d", runner.started.Load(), runner.stopped.Load())
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := daemon.New(cfg, newWorkspace(t), okHandler(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, newWorkspace(t), okHandler(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(first.Stop)

	if err := second.Start(ctx); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	first.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := second.Start(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("second Start after release: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	second.Stop()
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
