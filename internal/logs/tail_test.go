package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stockmeta/internal/logging"
	"stockmeta/internal/logs"
)

func writeRunLog(t *testing.T, format string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockmeta.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: format, OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "batch")
	logger.Info("run started", logging.String(logging.FieldRunID, "run-1"), logging.String(logging.FieldEventType, "run_started"))
	logger.Info("item finished", logging.String(logging.FieldRunID, "run-1"), logging.String(logging.FieldItemID, "item-a"))
	logger.Info("run started", logging.String(logging.FieldRunID, "run-2"), logging.String(logging.FieldEventType, "run_started"))
	logger.Warn("item failed", logging.String(logging.FieldRunID, "run-2"), logging.String(logging.FieldItemID, "item-b"),
		logging.Error(os.ErrPermission))
	return path
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockmeta.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("offset = %d, want 6", result.Offset)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result for missing file: %#v", result)
	}
}

func TestTailLeavesPartialLineForNextRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockmeta.log")
	if err := os.WriteFile(path, []byte("done\npart"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "done" || result.Offset != 5 {
		t.Fatalf("unexpected result: %#v", result)
	}

	appendLog(t, path, "ial\n")
	result, err = logs.Tail(context.Background(), path, logs.TailOptions{Offset: result.Offset})
	if err != nil {
		t.Fatalf("tail from offset: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "partial" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
}

func TestTailFiltersConsoleLines(t *testing.T) {
	path := writeRunLog(t, "console")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1, Limit: 10, Filter: logs.Filter{RunID: "run-2"},
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected two run-2 lines, got %#v", result.Lines)
	}
	for _, line := range result.Lines {
		if !strings.Contains(line, "run_id=run-2") {
			t.Fatalf("line from another run: %q", line)
		}
	}

	result, err = logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1, Limit: 10, Filter: logs.Filter{ItemID: "item-a"},
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || !strings.Contains(result.Lines[0], "item finished") {
		t.Fatalf("unexpected item lines: %#v", result.Lines)
	}
}

func TestTailFiltersJSONLines(t *testing.T) {
	path := writeRunLog(t, "json")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1, Limit: 1, Filter: logs.Filter{EventType: "run_started"},
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || !strings.Contains(result.Lines[0], `"run-2"`) {
		t.Fatalf("expected the last run_started line, got %#v", result.Lines)
	}
}

func TestFieldsParsesQuotedConsoleValues(t *testing.T) {
	line := `2026-01-02T03:04:05Z WARN batch: item failed run_id=r1 error="open a=b: denied" item_id=x`
	fields := logs.Fields(line)
	if fields["run_id"] != "r1" || fields["error"] != "open a=b: denied" || fields["item_id"] != "x" {
		t.Fatalf("unexpected fields: %#v", fields)
	}
	if !(logs.Filter{}).Match("anything") {
		t.Fatal("zero filter should match every line")
	}
	if (logs.Filter{RunID: "r1", ItemID: "y"}).Match(line) {
		t.Fatal("filter matched a line with a different item")
	}
}

func TestTailFollowSkipsUnmatchedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockmeta.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	initial, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	done := make(chan logs.TailResult, 1)
	go func() {
		res, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset: initial.Offset, Follow: true, Wait: 5 * time.Second,
			Filter: logs.Filter{ItemID: "keep"},
		})
		if err != nil {
			t.Errorf("follow tail: %v", err)
		}
		done <- res
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "x INFO other item_id=drop\n")
	time.Sleep(400 * time.Millisecond)
	appendLog(t, path, "x INFO wanted item_id=keep\n")

	select {
	case res := <-done:
		if len(res.Lines) != 1 || !strings.Contains(res.Lines[0], "wanted") {
			t.Fatalf("unexpected follow lines: %#v", res.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func appendLog(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("append log: %v", err)
	}
}
