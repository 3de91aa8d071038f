package fileprep

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"stockmeta/internal/queue"
)

// PreviewPrefix starts every URL handed out by PreviewStore.
const PreviewPrefix = "/previews/"

// Preview is a renderable stand-in for a queued file. Either Data is set, or
// Source points at the original file which is served as-is.
type Preview struct {
	MIMEType string
	Data     []byte
	Source   *queue.File
}

// PreviewStore keeps preview content addressable by URL until released. It
// implements queue.PreviewReleaser.
type PreviewStore struct {
	mu      sync.RWMutex
	entries map[string]Preview
}

// NewPreviewStore returns an empty store.
func NewPreviewStore() *PreviewStore {
	return &PreviewStore{entries: make(map[string]Preview)}
}

// Put registers p and returns its URL.
func (s *PreviewStore) Put(p Preview) string {
	url := PreviewPrefix + uuid.NewString()
	s.mu.Lock()
	s.entries[url] = p
	s.mu.Unlock()
	return url
}

// Get returns the preview registered under url.
func (s *PreviewStore) Get(url string) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.entries[url]
	return p, ok
}

// Open returns the preview MIME type and a reader over its bytes.
func (s *PreviewStore) Open(url string) (string, io.ReadCloser, error) {
	p, ok := s.Get(url)
	if !ok {
		return "", nil, fmt.Errorf("preview %s not found", strings.TrimPrefix(url, PreviewPrefix))
	}
	if p.Source != nil {
		rc, err := p.Source.Open()
		if err != nil {
			return "", nil, err
		}
		return p.MIMEType, rc, nil
	}
	return p.MIMEType, io.NopCloser(bytes.NewReader(p.Data)), nil
}

// Release drops the preview behind url. Unknown URLs are ignored.
func (s *PreviewStore) Release(url string) {
	s.mu.Lock()
	delete(s.entries, url)
	s.mu.Unlock()
}

// Len reports how many previews are held.
func (s *PreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// BuildPreview derives a preview for file. EPS files yield their embedded
// thumbnail, raster images a scaled copy (or the original when it cannot be
// decoded), and videos the original file. ok is false when nothing can be
// shown; that is never an error.
func BuildPreview(file queue.File, maxEdge int) (Preview, bool) {
	if IsVector(file.Name) {
		rc, err := file.Open()
		if err != nil {
			return Preview{}, false
		}
		defer rc.Close()
		if jpegData := ExtractEPSPreview(rc); jpegData != nil {
			return Preview{MIMEType: "image/jpeg", Data: jpegData}, true
		}
		return Preview{}, false
	}

	mimeType := DetectMIMEType(file.Name, file.MIMEType, nil)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		data, err := file.ReadAll()
		if err != nil {
			return Preview{}, false
		}
		if thumbType, thumb, err := Thumbnail(data, maxEdge); err == nil {
			return Preview{MIMEType: thumbType, Data: thumb}, true
		}
		src := file
		return Preview{MIMEType: mimeType, Source: &src}, true
	case strings.HasPrefix(mimeType, "video/"):
		src := file
		return Preview{MIMEType: mimeType, Source: &src}, true
	default:
		return Preview{}, false
	}
}
