package api

import (
	"stockmeta/internal/metadata"
	"stockmeta/internal/session"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID         string             `json:"id" msgpack:"id"`
	FileName   string             `json:"fileName" msgpack:"fileName"`
	MIMEType   string             `json:"mimeType" msgpack:"mimeType"`
	Size       int64              `json:"size" msgpack:"size"`
	Status     string             `json:"status" msgpack:"status"`
	PreviewURL string             `json:"previewUrl,omitempty" msgpack:"previewUrl,omitempty"`
	Error      string             `json:"error,omitempty" msgpack:"error,omitempty"`
	Result     *metadata.Envelope `json:"result,omitempty" msgpack:"result,omitempty"`
	AddedAt    string             `json:"addedAt,omitempty" msgpack:"addedAt,omitempty"`
	UpdatedAt  string             `json:"updatedAt,omitempty" msgpack:"updatedAt,omitempty"`
}

// QueueStats mirrors the header counters.
type QueueStats struct {
	Total      int     `json:"total" msgpack:"total"`
	Pending    int     `json:"pending" msgpack:"pending"`
	Processing int     `json:"processing" msgpack:"processing"`
	Completed  int     `json:"completed" msgpack:"completed"`
	Failed     int     `json:"failed" msgpack:"failed"`
	Progress   float64 `json:"progress" msgpack:"progress"`
}

// WorkspaceState is the selected mode, platform and settings plus run flags.
type WorkspaceState struct {
	Mode       string            `json:"mode" msgpack:"mode"`
	UploadMode string            `json:"uploadMode" msgpack:"uploadMode"`
	Platform   string            `json:"platform" msgpack:"platform"`
	Settings   metadata.Settings `json:"settings" msgpack:"settings"`
	Running    bool              `json:"running" msgpack:"running"`
	Paused     bool              `json:"paused" msgpack:"paused"`
	HasAPIKey  bool              `json:"hasApiKey" msgpack:"hasApiKey"`
}

// Snapshot is the full view a client renders from.
type Snapshot struct {
	Version uint64         `json:"version" msgpack:"version"`
	Items   []QueueItem    `json:"items" msgpack:"items"`
	Stats   QueueStats     `json:"stats" msgpack:"stats"`
	State   WorkspaceState `json:"state" msgpack:"state"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// AddFilesResponse reports what an upload queued.
type AddFilesResponse struct {
	Items   []QueueItem `json:"items"`
	Dropped int         `json:"dropped"`
}

// AddPathsRequest queues files already on disk.
type AddPathsRequest struct {
	Paths []string `json:"paths"`
}

// CountResponse reports how many items an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// RunResponse describes a started batch run.
type RunResponse struct {
	RunID string `json:"runId"`
	Items int    `json:"items"`
}

// PlatformRequest selects a platform.
type PlatformRequest struct {
	Platform string `json:"platform"`
}

// ModeRequest switches the output or upload mode. Empty fields are left alone.
type ModeRequest struct {
	Mode       string `json:"mode"`
	UploadMode string `json:"uploadMode"`
}

// PlatformInfo lists one platform in the selector.
type PlatformInfo struct {
	Name     string             `json:"name"`
	Settings *metadata.Settings `json:"settings,omitempty"`
}

// ExportRequest selects the export target. ID is only used for single EPS exports.
type ExportRequest struct {
	ID  string `json:"id"`
	Dir string `json:"dir"`
}

// ExportResponse lists the written files.
type ExportResponse struct {
	Paths []string `json:"paths"`
}

// CopyResponse carries clipboard text for one item.
type CopyResponse struct {
	Text string `json:"text"`
}

// LoginRequest signs a user in.
type LoginRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// APIKeyRequest stores or clears the Gemini key.
type APIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// SessionResponse describes the signed-in user, if any.
type SessionResponse struct {
	User      *session.User `json:"user,omitempty"`
	HasAPIKey bool          `json:"hasApiKey"`
}
