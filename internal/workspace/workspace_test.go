package workspace

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"stockmeta/internal/batch"
	"stockmeta/internal/export"
	"stockmeta/internal/generator"
	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/queue"
	"stockmeta/internal/session"
	"stockmeta/internal/upload"
)

type memorySession struct {
	mu   sync.Mutex
	user *session.User
	key  string
}

func (m *memorySession) User(context.Context) (session.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return session.User{}, session.ErrNoSession
	}
	return *m.user, nil
}

func (m *memorySession) SaveUser(_ context.Context, u session.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &u
	return nil
}

func (m *memorySession) Logout(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

func (m *memorySession) APIKey(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key, nil
}

func (m *memorySession) SetAPIKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}

type echoGenerator struct {
	gate chan struct{}
}

func (g *echoGenerator) Generate(ctx context.Context, in generator.Input) (metadata.Result, error) {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if in.Mode == metadata.ModeImageToPrompt {
		return metadata.PromptResult{Text: "prompt " + in.Name}, nil
	}
	return metadata.MetadataResult{Title: "title " + in.Name, Description: "desc", Keywords: []string{"a", "b"}}, nil
}

func newTestWorkspace(t *testing.T, gen batch.Generator, sess *memorySession) *Workspace {
	t.Helper()
	if sess == nil {
		sess = &memorySession{key: "key"}
	}
	ws := New(Deps{Generator: gen, Session: sess}, Options{
		PausePoll:       time.Millisecond,
		PreviewMaxEdge:  32,
		ExportDir:       t.TempDir(),
		DeveloperEmails: []string{"dev@example.com"},
	})
	t.Cleanup(ws.Close)
	return ws
}

func pngFile(t *testing.T, name string) queue.File {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return queue.NewMemoryFile(name, "image/png", buf.Bytes())
}

func waitDone(t *testing.T, run *batch.Run) batch.Summary {
	t.Helper()
	select {
	case <-run.Done():
		return run.Wait()
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
		return batch.Summary{}
	}
}

func TestNewAppliesDefaultPlatformPreset(t *testing.T) {
	ws := newTestWorkspace(t, &echoGenerator{}, nil)
	st := ws.State(context.Background())
	if st.Platform != platform.AdobeStock || st.Mode != metadata.ModeMetadata || st.UploadMode != upload.Images {
		t.Fatalf("unexpected defaults %+v", st)
	}
	if st.Settings.MaxKeywords != 49 || !st.HasAPIKey {
		t.Fatalf("adobe preset not applied: %+v", st.Settings)
	}

	ws.SetPlatform(platform.Shutterstock)
	if got := ws.State(context.Background()).Settings; got.SingleWordKeywords || got.MaxKeywords != 50 {
		t.Fatalf("shutterstock preset not applied: %+v", got)
	}
}

func TestAddFilesFiltersAndBuildsPreviews(t *testing.T) {
	ws := newTestWorkspace(t, &echoGenerator{}, nil)
	items, err := ws.AddFiles(
		pngFile(t, "a.png"),
		queue.NewMemoryFile("clip.mp4", "video/mp4", []byte("x")),
		queue.NewMemoryFile("art.eps", "", []byte("%!PS")),
	)
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if len(items) != 1 || items[0].File.Name != "a.png" {
		t.Fatalf("expected only the image, got %+v", items)
	}
	ws.WaitPreviews()
	got, _ := ws.Store().Get(items[0].ID)
	if got.PreviewURL == "" {
		t.Fatal("expected preview to be attached")
	}
	mimeType, rc, err := ws.Previews().Open(got.PreviewURL)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	rc.Close()
	if mimeType != "image/png" {
		t.Fatalf("unexpected preview type %s", mimeType)
	}

	if err := ws.Remove(items[0].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ws.Previews().Len() != 0 {
		t.Fatal("preview should be released on remove")
	}
	if err := ws.Remove(items[0].ID); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVectorUploadMode(t *testing.T) {
	ws := newTestWorkspace(t, &echoGenerator{}, nil)
	ws.SetUploadMode(upload.Vectors)
	items, _ := ws.AddFiles(pngFile(t, "a.png"), queue.NewMemoryFile("art.EPS", "", []byte("%!PS")))
	if len(items) != 1 || items[0].File.Name != "art.EPS" {
		t.Fatalf("expected only the eps, got %+v", items)
	}
}

func TestRunEndToEndAndExport(t *testing.T) {
	ws := newTestWorkspace(t, &echoGenerator{}, nil)
	ws.AddFiles(pngFile(t, "a.png"), pngFile(t, "b.png"))

	run, err := ws.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	summary := waitDone(t, run)
	if summary.Succeeded != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if stats := ws.Stats(); stats.Completed != 2 || stats.Pending != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	path, err := ws.ExportCSV("")
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `a.png,"title a.png","desc","a, b"`) {
		t.Fatalf("unexpected csv:\n%s", data)
	}
	if _, err := ws.ExportPrompts(""); !errors.Is(err, export.ErrNothingToExport) {
		t.Fatalf("expected nothing to export, got %v", err)
	}

	text, err := ws.CopyText(ws.Items()[0].ID)
	if err != nil || !strings.HasPrefix(text, "Title: title ") {
		t.Fatalf("unexpected copy text %q %v", text, err)
	}
}

func TestStartWithoutKeyLeavesQueueUntouched(t *testing.T) {
	ws := newTestWorkspace(t, &echoGenerator{}, &memorySession{})
	ws.AddFiles(pngFile(t, "a.png"))
	if _, err := ws.Start(context.Background()); !errors.Is(err, generator.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if stats := ws.Stats(); stats.Pending != 1 {
		t.Fatalf("queue should be untouched: %+v", stats)
	}
}

func TestFallbackKeyUsedWhenSessionEmpty(t *testing.T) {
	sess := &memorySession{}
	ws := New(Deps{Generator: &echoGenerator{}, Session: sess}, Options{FallbackAPIKey: " env-key "})
	defer ws.Close()
	if key, _ := ws.APIKey(context.Background()); key != "env-key" {
		t.Fatalf("expected fallback key, got %q", key)
	}
	_ = ws.SetAPIKey(context.Background(), "stored")
	if key, _ := ws.APIKey(context.Background()); key != "stored" {
		t.Fatalf("session key should win, got %q", key)
	}
}

func TestClearAndModeRefusedWhileRunning(t *testing.T) {
	gen := &echoGenerator{gate: make(chan struct{})}
	ws := newTestWorkspace(t, gen, nil)
	ws.AddFiles(pngFile(t, "a.png"))
	run, err := ws.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := ws.Clear(); !errors.Is(err, batch.ErrBatchRunning) {
		t.Fatalf("expected clear refused, got %v", err)
	}
	if err := ws.SetMode(metadata.ModeImageToPrompt); !errors.Is(err, batch.ErrBatchRunning) {
		t.Fatalf("expected mode switch refused, got %v", err)
	}
	if _, err := ws.AddFiles(pngFile(t, "b.png")); !errors.Is(err, batch.ErrBatchRunning) {
		t.Fatalf("expected add refused, got %v", err)
	}
	if err := ws.Pause(); err != nil || !ws.State(context.Background()).Paused {
		t.Fatalf("Pause: %v", err)
	}
	if err := ws.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	close(gen.gate)
	waitDone(t, run)

	if err := ws.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if n, err := ws.Clear(); err != nil || n != 1 {
		t.Fatalf("Clear after run: %d %v", n, err)
	}
}

func TestSetModeClearsQueue(t *testing.T) {
	ws := newTestWorkspace(t, &echoGenerator{}, nil)
	ws.AddFiles(pngFile(t, "a.png"))
	if err := ws.SetMode(metadata.ModeImageToPrompt); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if ws.Store().Snapshot().Len() != 0 {
		t.Fatal("mode change should clear the queue")
	}

	ws.AddFiles(pngFile(t, "p.png"))
	run, _ := ws.Start(context.Background())
	waitDone(t, run)
	path, err := ws.ExportPrompts("")
	if err != nil {
		t.Fatalf("ExportPrompts: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "[PROMPT]:\nprompt p.png\n") {
		t.Fatalf("unexpected prompt export:\n%s", data)
	}
}

func TestRetryFlow(t *testing.T) {
	ws := newTestWorkspace(t, &echoGenerator{}, nil)
	items, _ := ws.AddFiles(pngFile(t, "a.png"))
	id := items[0].ID
	if err := ws.Retry(id); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("retry of idle item should be rejected, got %v", err)
	}
	_ = ws.Store().MarkProcessing(id)
	_ = ws.Store().MarkError(id, "quota")
	if err := ws.Retry(id); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if item, _ := ws.Store().Get(id); item.Status != queue.StatusIdle {
		t.Fatalf("expected idle after retry, got %s", item.Status)
	}
}

func TestLoginLogout(t *testing.T) {
	sess := &memorySession{}
	ws := newTestWorkspace(t, &echoGenerator{}, sess)
	ctx := context.Background()

	user, err := ws.Login(ctx, "dev@example.com", "", "pw")
	if err != nil || user.Role != session.RoleDeveloper {
		t.Fatalf("Login: %+v %v", user, err)
	}
	if got, _ := ws.User(ctx); got.Email != "dev@example.com" {
		t.Fatalf("user not stored: %+v", got)
	}
	if err := ws.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := ws.User(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
