package queue

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"stockmeta/internal/metadata"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, error) {
	switch s := Status(value); s {
	case StatusIdle, StatusProcessing, StatusSuccess, StatusError:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", value)
	}
}

// Eligible reports whether a batch run may pick the status up.
func (s Status) Eligible() bool {
	return s == StatusIdle || s == StatusError
}

// File references the raw uploaded content. It is either backed by bytes held
// in memory or by a path on disk; in both cases it is read-only once created.
type File struct {
	Name     string
	Size     int64
	MIMEType string
	Path     string
	ModTime  time.Time
	data     []byte
}

// NewMemoryFile copies data so later changes by the caller cannot leak into
// the queue.
func NewMemoryFile(name, mimeType string, data []byte) File {
	cp := make([]byte, len(data))
	copy(cp, data)
	return File{
		Name:     filepath.Base(name),
		Size:     int64(len(cp)),
		MIMEType: mimeType,
		data:     cp,
	}
}

// NewDiskFile references a file on disk without reading it.
func NewDiskFile(path, mimeType string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return File{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: mimeType,
		Path:     abs,
		ModTime:  info.ModTime(),
	}, nil
}

// Open returns a reader over the file content.
func (f File) Open() (io.ReadCloser, error) {
	if f.Path != "" {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		return file, nil
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// ReadAll returns the whole file content.
func (f File) ReadAll() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// Item is one uploaded file and its processing state. Result is set only when
// Status is success; Error only when Status is error.
type Item struct {
	ID         string
	File       File
	PreviewURL string
	Status     Status
	Result     metadata.Result
	Error      string
	AddedAt    time.Time
	UpdatedAt  time.Time
}

// Metadata returns the metadata result when the item succeeded in metadata mode.
func (i Item) Metadata() (metadata.MetadataResult, bool) {
	if i.Status != StatusSuccess {
		return metadata.MetadataResult{}, false
	}
	return metadata.AsMetadata(i.Result)
}

// Prompt returns the prompt result when the item succeeded in prompt mode.
func (i Item) Prompt() (metadata.PromptResult, bool) {
	if i.Status != StatusSuccess {
		return metadata.PromptResult{}, false
	}
	return metadata.AsPrompt(i.Result)
}

// Queue is an immutable snapshot of the item collection in insertion order.
// Callers must treat returned items as read-only.
type Queue struct {
	items   []Item
	index   map[string]int
	version uint64
}

func newQueue(items []Item, version uint64) *Queue {
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}
	return &Queue{items: items, index: index, version: version}
}

// Items returns a copy of the snapshot's items.
func (q Queue) Items() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of items.
func (q Queue) Len() int { return len(q.items) }

// Version increases by one with every mutation.
func (q Queue) Version() uint64 { return q.version }

// Get looks an item up by id.
func (q Queue) Get(id string) (Item, bool) {
	idx, ok := q.index[id]
	if !ok {
		return Item{}, false
	}
	return q.items[idx], true
}

// EligibleIDs lists idle and error items in queue order.
func (q Queue) EligibleIDs() []string {
	ids := make([]string, 0, len(q.items))
	for _, item := range q.items {
		if item.Status.Eligible() {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// CountByStatus tallies items per status.
func (q Queue) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, item := range q.items {
		counts[item.Status]++
	}
	return counts
}
