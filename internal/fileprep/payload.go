package fileprep

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"stockmeta/internal/queue"
	"stockmeta/internal/services"
)

// Payload is exactly one of InlinePayload or TextPayload.
type Payload interface {
	payload()
}

// InlinePayload is binary content sent as base64 with its MIME type.
type InlinePayload struct {
	MIMEType string
	Data     string
}

// TextPayload is content sent as plain text.
type TextPayload struct {
	Text string
}

func (InlinePayload) payload() {}
func (TextPayload) payload()   {}

// IsVectorPayload reports whether p carries EPS source text.
func IsVectorPayload(p Payload) bool {
	_, ok := p.(TextPayload)
	return ok
}

// Preparer converts queue files into generator payloads.
type Preparer struct{}

// NewPreparer returns a Preparer.
func NewPreparer() *Preparer { return &Preparer{} }

// Prepare reads file and builds its payload. The source is never modified.
// Read failures are returned wrapped in services.ErrExternalService so the
// caller records them against the item.
func (p *Preparer) Prepare(ctx context.Context, file queue.File) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsVector(file.Name) {
		rc, err := file.Open()
		if err != nil {
			return nil, services.Wrap(services.ErrExternalService, "fileprep", "open", file.Name, err)
		}
		defer rc.Close()
		text, err := EPSText(rc)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalService, "fileprep", "read eps", file.Name, err)
		}
		return TextPayload{Text: text}, nil
	}

	data, err := file.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "fileprep", "read", file.Name, err)
	}
	mimeType, body := ParseDataURL(EncodeDataURL(DetectMIMEType(file.Name, file.MIMEType, data), data))
	return InlinePayload{MIMEType: mimeType, Data: body}, nil
}

// mediaExtensions covers stock media formats missing from Go's builtin table
// on hosts without a system mime.types file.
var mediaExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
}

// DetectMIMEType picks the declared type when present, then the extension,
// then content sniffing.
func DetectMIMEType(name, declared string, head []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if IsVector(name) {
		return "application/postscript"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if known, ok := mediaExtensions[ext]; ok {
		return known
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	if len(head) > 0 {
		sniffed := http.DetectContentType(head)
		if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	return DefaultMIMEType
}

// Describe renders a short description of p for logs.
func Describe(p Payload) string {
	switch v := p.(type) {
	case InlinePayload:
		return fmt.Sprintf("inline %s (%d base64 chars)", v.MIMEType, len(v.Data))
	case TextPayload:
		return fmt.Sprintf("text (%d chars)", len(v.Text))
	default:
		return "unknown payload"
	}
}
