package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stockmeta/internal/batch"
	"stockmeta/internal/export"
	"stockmeta/internal/fileprep"
	"stockmeta/internal/generator"
	"stockmeta/internal/logging"
	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/queue"
	"stockmeta/internal/session"
	"stockmeta/internal/upload"
	"stockmeta/internal/view"
)

var (
	// ErrNotRunning is returned by run controls when no batch is active.
	ErrNotRunning = errors.New("no batch running")
	// ErrNoResult is returned when an item has no result of the needed kind.
	ErrNoResult = errors.New("item has no result")
)

// SessionStore is the persisted session the workspace reads credentials from.
type SessionStore interface {
	User(ctx context.Context) (session.User, error)
	SaveUser(ctx context.Context, user session.User) error
	Logout(ctx context.Context) error
	APIKey(ctx context.Context) (string, error)
	SetAPIKey(ctx context.Context, key string) error
}

// Deps are the collaborators a Workspace is built from.
type Deps struct {
	Generator batch.Generator
	Preparer  batch.Preparer
	Session   SessionStore
	Logger    *slog.Logger
	// Observers are registered on the scheduler in order.
	Observers []batch.Observer
}

// Options tune a Workspace.
type Options struct {
	Mode            metadata.Mode
	UploadMode      upload.Mode
	Platform        platform.Platform
	GroupSize       int
	PausePoll       time.Duration
	SettleDelay     time.Duration
	PreviewMaxEdge  int
	ExportDir       string
	DeveloperEmails []string
	// FallbackAPIKey is used when the session holds no key.
	FallbackAPIKey string
}

// State is the user-visible configuration plus run flags.
type State struct {
	Mode       metadata.Mode     `json:"mode" msgpack:"mode"`
	UploadMode upload.Mode       `json:"upload_mode" msgpack:"upload_mode"`
	Platform   platform.Platform `json:"platform" msgpack:"platform"`
	Settings   metadata.Settings `json:"settings" msgpack:"settings"`
	Running    bool              `json:"running" msgpack:"running"`
	Paused     bool              `json:"paused" msgpack:"paused"`
	HasAPIKey  bool              `json:"has_api_key" msgpack:"has_api_key"`
}

// Workspace coordinates queue, previews, scheduler and session.
type Workspace struct {
	store    *queue.Store
	previews *fileprep.PreviewStore
	sched    *batch.Scheduler
	session  SessionStore
	logger   *slog.Logger
	opts     Options

	baseCtx context.Context
	cancel  context.CancelFunc
	bg      sync.WaitGroup

	mu         sync.RWMutex
	mode       metadata.Mode
	uploadMode upload.Mode
	platform   platform.Platform
	settings   metadata.Settings
}

// New assembles a Workspace. The selected platform's preset is applied to the
// default settings.
func New(deps Deps, opts Options) *Workspace {
	logger := logging.NewComponentLogger(deps.Logger, "workspace")
	previews := fileprep.NewPreviewStore()
	store := queue.NewStore(queue.WithPreviewReleaser(previews))

	schedOpts := []batch.Option{batch.WithLogger(deps.Logger)}
	if opts.GroupSize > 0 {
		schedOpts = append(schedOpts, batch.WithGroupSize(opts.GroupSize))
	}
	if opts.PausePoll > 0 {
		schedOpts = append(schedOpts, batch.WithPausePoll(opts.PausePoll))
	}
	if opts.SettleDelay > 0 {
		schedOpts = append(schedOpts, batch.WithSettleDelay(opts.SettleDelay))
	}
	for _, o := range deps.Observers {
		schedOpts = append(schedOpts, batch.WithObserver(o))
	}
	prep := deps.Preparer
	if prep == nil {
		prep = fileprep.NewPreparer()
	}

	if opts.Mode == "" {
		opts.Mode = metadata.ModeMetadata
	}
	if opts.UploadMode == "" {
		opts.UploadMode = upload.Images
	}
	if opts.Platform == "" {
		opts.Platform = platform.Default
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Workspace{
		store:      store,
		previews:   previews,
		sched:      batch.NewScheduler(store, prep, deps.Generator, schedOpts...),
		session:    deps.Session,
		logger:     logger,
		opts:       opts,
		baseCtx:    ctx,
		cancel:     cancel,
		mode:       opts.Mode,
		uploadMode: opts.UploadMode,
		platform:   opts.Platform,
		settings:   opts.Platform.Apply(metadata.DefaultSettings()),
	}
}

// Close stops any active run and waits for background work.
func (w *Workspace) Close() {
	if run := w.sched.Current(); run != nil {
		run.Stop()
		<-run.Done()
	}
	w.cancel()
	w.bg.Wait()
}

// Store exposes the queue store for read access and subscriptions.
func (w *Workspace) Store() *queue.Store { return w.store }

// Previews exposes the preview store.
func (w *Workspace) Previews() *fileprep.PreviewStore { return w.previews }

// State returns the current configuration and run flags.
func (w *Workspace) State(ctx context.Context) State {
	w.mu.RLock()
	st := State{
		Mode:       w.mode,
		UploadMode: w.uploadMode,
		Platform:   w.platform,
		Settings:   w.settings,
	}
	w.mu.RUnlock()
	if run := w.sched.Current(); run != nil {
		st.Running = true
		st.Paused = run.Paused()
	}
	key, _ := w.APIKey(ctx)
	st.HasAPIKey = key != ""
	return st
}

// Items returns the queue in display order.
func (w *Workspace) Items() []queue.Item {
	return view.Sort(w.store.Snapshot().Items())
}

// Stats returns queue counters.
func (w *Workspace) Stats() view.Stats {
	return view.Counts(w.store.Snapshot().Items())
}

// SetPlatform selects p and applies its preset to the current settings.
func (w *Workspace) SetPlatform(p platform.Platform) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.platform = p
	w.settings = p.Apply(w.settings)
}

// UpdateSettings replaces the settings after validating them.
func (w *Workspace) UpdateSettings(s metadata.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	w.mu.Lock()
	w.settings = s
	w.mu.Unlock()
	return nil
}

// SetMode switches the output mode. The queue is cleared first, so the
// switch is refused while a batch runs.
func (w *Workspace) SetMode(m metadata.Mode) error {
	if w.sched.Running() {
		return batch.ErrBatchRunning
	}
	w.store.Clear()
	w.mu.Lock()
	w.mode = m
	w.mu.Unlock()
	return nil
}

// SetUploadMode selects which kind of files AddFiles accepts.
func (w *Workspace) SetUploadMode(m upload.Mode) {
	w.mu.Lock()
	w.uploadMode = m
	w.mu.Unlock()
}

func (w *Workspace) acceptMode() upload.Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.mode == metadata.ModeImageToPrompt {
		return upload.Images
	}
	return w.uploadMode
}

// AddFiles queues the files accepted by the current upload mode and starts
// building their previews in the background. Files are refused while a batch
// runs.
func (w *Workspace) AddFiles(files ...queue.File) ([]queue.Item, error) {
	if w.sched.Running() {
		return nil, batch.ErrBatchRunning
	}
	accepted := upload.Filter(w.acceptMode(), files)
	if len(accepted) == 0 {
		return nil, nil
	}
	items := w.store.Add(accepted...)
	for _, item := range items {
		w.buildPreview(item)
	}
	w.logger.Debug("files queued",
		logging.Int("accepted", len(items)),
		logging.Int("dropped", len(files)-len(items)),
	)
	return items, nil
}

// AddPaths collects files from disk and queues them.
func (w *Workspace) AddPaths(paths ...string) ([]queue.Item, error) {
	files, err := upload.Collect(w.acceptMode(), paths)
	if err != nil {
		return nil, err
	}
	return w.AddFiles(files...)
}

func (w *Workspace) buildPreview(item queue.Item) {
	w.bg.Add(1)
	go func() {
		defer w.bg.Done()
		if w.baseCtx.Err() != nil {
			return
		}
		preview, ok := fileprep.BuildPreview(item.File, w.opts.PreviewMaxEdge)
		if !ok {
			return
		}
		w.store.SetPreview(item.ID, w.previews.Put(preview))
	}()
}

// WaitPreviews blocks until previews scheduled so far are built.
func (w *Workspace) WaitPreviews() { w.bg.Wait() }

// Remove deletes one item.
func (w *Workspace) Remove(id string) error {
	if !w.store.Remove(id) {
		return fmt.Errorf("remove %s: %w", id, queue.ErrNotFound)
	}
	return nil
}

// Clear empties the queue unless a batch is running.
func (w *Workspace) Clear() (int, error) {
	if w.sched.Running() {
		return 0, batch.ErrBatchRunning
	}
	return w.store.Clear(), nil
}

// Retry moves a failed item back to idle.
func (w *Workspace) Retry(id string) error {
	return w.store.Retry(id)
}

// RetryFailed moves every failed item back to idle.
func (w *Workspace) RetryFailed() int {
	return w.store.RetryFailed()
}

// Start begins a batch over the idle and failed items with the current
// mode, platform and settings.
func (w *Workspace) Start(ctx context.Context) (*batch.Run, error) {
	key, err := w.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	job := batch.Job{
		Mode:     w.mode,
		Platform: w.platform,
		Settings: w.settings,
		APIKey:   key,
	}
	w.mu.RUnlock()
	run, err := w.sched.Start(w.baseCtx, job)
	if err != nil {
		if errors.Is(err, generator.ErrMissingCredential) {
			logging.WarnWithContext(w.logger, "batch refused", "missing_api_key",
				logging.String(logging.FieldErrorHint, "run `stockmeta session set-key` or set GEMINI_API_KEY"),
				logging.String(logging.FieldImpact, "queue left untouched"),
			)
		}
		return nil, err
	}
	return run, nil
}

func (w *Workspace) currentRun() (*batch.Run, error) {
	run := w.sched.Current()
	if run == nil {
		return nil, ErrNotRunning
	}
	return run, nil
}

// Pause holds the active run before its next group.
func (w *Workspace) Pause() error {
	run, err := w.currentRun()
	if err != nil {
		return err
	}
	run.Pause()
	return nil
}

// Resume releases a paused run.
func (w *Workspace) Resume() error {
	run, err := w.currentRun()
	if err != nil {
		return err
	}
	run.Resume()
	return nil
}

// Stop ends the active run early.
func (w *Workspace) Stop() error {
	run, err := w.currentRun()
	if err != nil {
		return err
	}
	run.Stop()
	return nil
}

// CurrentRun returns the active run, or nil.
func (w *Workspace) CurrentRun() *batch.Run { return w.sched.Current() }

// APIKey resolves the credential: the session key first, then the fallback.
func (w *Workspace) APIKey(ctx context.Context) (string, error) {
	if w.session != nil {
		key, err := w.session.APIKey(ctx)
		if err != nil {
			return "", fmt.Errorf("read session key: %w", err)
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return strings.TrimSpace(w.opts.FallbackAPIKey), nil
}

// SetAPIKey stores key in the session; blank removes it.
func (w *Workspace) SetAPIKey(ctx context.Context, key string) error {
	if w.session == nil {
		return session.ErrNoSession
	}
	return w.session.SetAPIKey(ctx, key)
}

// Login builds and stores the user stub.
func (w *Workspace) Login(ctx context.Context, email, name, password string) (session.User, error) {
	user, err := session.Login(email, name, password, w.opts.DeveloperEmails, time.Now())
	if err != nil {
		return session.User{}, err
	}
	if w.session == nil {
		return user, nil
	}
	if err := w.session.SaveUser(ctx, user); err != nil {
		return session.User{}, err
	}
	return user, nil
}

// Logout removes the stored user.
func (w *Workspace) Logout(ctx context.Context) error {
	if w.session == nil {
		return nil
	}
	return w.session.Logout(ctx)
}

// User returns the stored user or session.ErrNoSession.
func (w *Workspace) User(ctx context.Context) (session.User, error) {
	if w.session == nil {
		return session.User{}, session.ErrNoSession
	}
	return w.session.User(ctx)
}

// ExportCSV writes the metadata CSV into dir (or the configured export dir).
func (w *Workspace) ExportCSV(dir string) (string, error) {
	w.mu.RLock()
	p := w.platform
	w.mu.RUnlock()
	return export.WriteCSV(w.exportDir(dir), p, w.store.Snapshot().Items(), time.Now())
}

// ExportPrompts writes the prompt text export.
func (w *Workspace) ExportPrompts(dir string) (string, error) {
	return export.WritePrompts(w.exportDir(dir), w.store.Snapshot().Items(), time.Now())
}

// ExportEPS writes the EPS file for id with embedded XMP metadata.
func (w *Workspace) ExportEPS(id, dir string) (string, error) {
	item, ok := w.store.Get(id)
	if !ok {
		return "", fmt.Errorf("export %s: %w", id, queue.ErrNotFound)
	}
	if !fileprep.IsVector(item.File.Name) {
		return "", fmt.Errorf("export %s: not an eps file", item.File.Name)
	}
	return export.WriteEPS(w.exportDir(dir), item)
}

// ExportAllEPS writes every successful EPS item and returns the paths.
func (w *Workspace) ExportAllEPS(dir string) ([]string, error) {
	var paths []string
	for _, item := range w.store.Snapshot().Items() {
		if item.Status != queue.StatusSuccess || !fileprep.IsVector(item.File.Name) {
			continue
		}
		if _, ok := item.Metadata(); !ok {
			continue
		}
		path, err := export.WriteEPS(w.exportDir(dir), item)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, export.ErrNothingToExport
	}
	return paths, nil
}

// CopyText returns the clipboard text for one item: the copy-all block for
// metadata, the prompt text otherwise.
func (w *Workspace) CopyText(id string) (string, error) {
	item, ok := w.store.Get(id)
	if !ok {
		return "", fmt.Errorf("copy %s: %w", id, queue.ErrNotFound)
	}
	if meta, ok := item.Metadata(); ok {
		return export.CopyText(meta), nil
	}
	if p, ok := item.Prompt(); ok {
		return p.Text, nil
	}
	return "", ErrNoResult
}

func (w *Workspace) exportDir(dir string) string {
	if dir = strings.TrimSpace(dir); dir != "" {
		return dir
	}
	return w.opts.ExportDir
}
