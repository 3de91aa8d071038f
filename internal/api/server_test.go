package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"stockmeta/internal/api"
	"stockmeta/internal/generator"
	"stockmeta/internal/metadata"
	"stockmeta/internal/queue"
	"stockmeta/internal/session"
	"stockmeta/internal/workspace"
)

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, in generator.Input) (metadata.Result, error) {
	if in.Mode == metadata.ModeImageToPrompt {
		return metadata.PromptResult{Text: "prompt for " + in.Name}, nil
	}
	return metadata.MetadataResult{
		Title:       "Title " + in.Name,
		Description: "A description",
		Keywords:    []string{"one", "two"},
	}, nil
}

type fixture struct {
	ws        *workspace.Workspace
	server    *api.Server
	exportDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := session.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exportDir := t.TempDir()
	ws := workspace.New(workspace.Deps{Generator: stubGenerator{}, Session: store}, workspace.Options{
		ExportDir:   exportDir,
		SettleDelay: time.Millisecond,
	})
	t.Cleanup(ws.Close)
	return &fixture{ws: ws, server: api.NewServer(ws), exportDir: exportDir}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Host = "127.0.0.1:7878"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (f *fixture) upload(t *testing.T, names ...string) *httptest.ResponseRecorder {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for _, name := range names {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(pngBytes(t))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/items", body)
	req.Host = "127.0.0.1:7878"
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.APIError {
	t.Helper()
	var apiErr api.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func waitRun(f *fixture) {
	if run := f.ws.CurrentRun(); run != nil {
		<-run.Done()
	}
}

func TestUploadListAndSnapshot(t *testing.T) {
	f := newFixture(t)

	rec := f.upload(t, "a.png", "b.png", "clip.mp4")
	require.Equal(t, http.StatusCreated, rec.Code)
	var added api.AddFilesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Len(t, added.Items, 2)
	assert.Equal(t, 1, added.Dropped, "video is not accepted in images mode")
	assert.Equal(t, "image/png", added.Items[0].MIMEType)
	assert.Equal(t, "idle", added.Items[0].Status)

	rec = f.do(t, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.QueueListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Items, len(added.Items))

	rec = f.do(t, http.MethodGet, "/api/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap api.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, len(added.Items), snap.Stats.Total)
	assert.Equal(t, "metadata", snap.State.Mode)
	assert.Equal(t, "AdobeStock", snap.State.Platform)
	assert.False(t, snap.State.HasAPIKey)

	rec = f.do(t, http.MethodGet, "/api/snapshot?format=msgpack", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))
	var packed api.Snapshot
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &packed))
	assert.Equal(t, snap.Version, packed.Version)
	assert.Len(t, packed.Items, len(snap.Items))
}

func TestUploadWithoutFilesIsBadRequest(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
}

func TestPreviewIsServed(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.upload(t, "a.png").Code)
	f.ws.WaitPreviews()

	items := f.ws.Items()
	require.Len(t, items, 1)
	require.NotEmpty(t, items[0].PreviewURL)

	rec := f.do(t, http.MethodGet, items[0].PreviewURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "image/"))
	assert.NotZero(t, rec.Body.Len())

	rec = f.do(t, http.MethodGet, "/previews/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartRequiresAPIKey(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.upload(t, "a.png").Code)

	rec := f.do(t, http.MethodPost, "/api/run/start", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "MISSING_API_KEY", decodeError(t, rec).Code)
	assert.Equal(t, queue.StatusIdle, f.ws.Items()[0].Status)
}

func TestRunCopyAndExport(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.upload(t, "a.png", "b.png").Code)

	rec := f.do(t, http.MethodPut, "/api/session/key", api.APIKeyRequest{APIKey: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/run/start", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var run api.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, 2, run.Items)
	waitRun(f)

	stats := f.ws.Stats()
	assert.Equal(t, 2, stats.Completed)

	id := f.ws.Items()[0].ID
	rec = f.do(t, http.MethodGet, "/api/items/"+id+"/copy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var copied api.CopyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &copied))
	assert.Contains(t, copied.Text, "Title ")
	assert.Contains(t, copied.Text, "one, two")

	rec = f.do(t, http.MethodPost, "/api/export/csv", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var exported api.ExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	require.Len(t, exported.Paths, 1)
	assert.Equal(t, f.exportDir, filepath.Dir(exported.Paths[0]))

	rec = f.do(t, http.MethodPost, "/api/export/prompts", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOTHING_TO_EXPORT", decodeError(t, rec).Code)
}

func TestRunControlsWhenIdle(t *testing.T) {
	f := newFixture(t)
	for _, action := range []string{"pause", "resume", "stop"} {
		rec := f.do(t, http.MethodPost, "/api/run/"+action, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, action)
		assert.Equal(t, "NOT_RUNNING", decodeError(t, rec).Code, action)
	}
}

func TestItemErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/items/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	require.Equal(t, http.StatusCreated, f.upload(t, "a.png").Code)
	id := f.ws.Items()[0].ID
	rec = f.do(t, http.MethodPost, "/api/items/"+id+"/retry", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, rec).Code)

	rec = f.do(t, http.MethodGet, "/api/items/"+id+"/copy", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_RESULT", decodeError(t, rec).Code)

	rec = f.do(t, http.MethodDelete, "/api/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared api.CountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, 1, cleared.Count)
}

func TestSettingsPlatformAndMode(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/platform", api.PlatformRequest{Platform: "nowhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/platform", api.PlatformRequest{Platform: "shutterstock"})
	require.Equal(t, http.StatusOK, rec.Code)
	var st api.WorkspaceState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "Shutterstock", st.Platform)
	assert.False(t, st.Settings.SingleWordKeywords)

	bad := st.Settings
	bad.MinKeywords = bad.MaxKeywords + 1
	rec = f.do(t, http.MethodPut, "/api/settings", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusCreated, f.upload(t, "a.png").Code)
	rec = f.do(t, http.MethodPut, "/api/mode", api.ModeRequest{Mode: "image_to_prompt"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "image_to_prompt", st.Mode)
	assert.Empty(t, f.ws.Items(), "switching mode clears the queue")

	rec = f.do(t, http.MethodPut, "/api/mode", api.ModeRequest{UploadMode: "vectors"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "vectors", st.UploadMode)

	rec = f.do(t, http.MethodGet, "/api/platforms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var platforms []api.PlatformInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &platforms))
	assert.Len(t, platforms, 8)
}

func TestSessionLoginLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/session/login", api.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/session/login", api.LoginRequest{Email: "jo@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "jo", resp.User.Name)
	assert.Equal(t, session.RoleStudent, resp.User.Role)

	rec = f.do(t, http.MethodPost, "/api/session/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = api.SessionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.User)
}

func TestStreamPushesSnapshots(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg api.StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.Snapshot)
	assert.Empty(t, msg.Snapshot.Items)

	require.Equal(t, http.StatusCreated, f.upload(t, "a.png").Code)

	for {
		msg = api.StreamMessage{}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Snapshot != nil && len(msg.Snapshot.Items) == 1 {
			break
		}
	}
	assert.Equal(t, "a.png", msg.Snapshot.Items[0].FileName)
}

func TestForeignHostIsRejected(t *testing.T) {
	f := newFixture(t)
	for _, host := range []string{"attacker.example", "attacker.example:7878", "192.168.1.20:7878", ""} {
		req := httptest.NewRequest(http.MethodPost, "/api/items/paths", strings.NewReader(`{"paths":["/home"]}`))
		req.Host = host
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, "host %q", host)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN_HOST")
	}
	assert.Empty(t, f.ws.Items(), "rejected requests must not queue files")

	req := httptest.NewRequest(http.MethodGet, "/previews/some-token", nil)
	req.Host = "attacker.example"
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoopbackAndAllowedHostsAreAccepted(t *testing.T) {
	f := newFixture(t)
	server := api.NewServer(f.ws, api.WithAllowedHosts("stock.lan:7878"))
	for _, host := range []string{"localhost:7878", "LOCALHOST", "127.0.0.1", "[::1]:7878", "stock.lan", "stock.lan:9000"} {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "host %q", host)
	}
}
