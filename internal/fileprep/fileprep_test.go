package fileprep

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"stockmeta/internal/queue"
)

func sampleJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 0})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// epsWithThumbnail builds a minimal Illustrator-style EPS whose thumbnail
// block carries jpegData as %-prefixed hex lines.
func epsWithThumbnail(jpegData []byte, lower bool) string {
	digits := hex.EncodeToString(jpegData)
	if !lower {
		digits = strings.ToUpper(digits)
	}
	var b strings.Builder
	b.WriteString("%!PS-Adobe-3.1 EPSF-3.0\n%%Creator: Adobe Illustrator\n")
	b.WriteString("%AI7_Thumbnail: 128 96 8\n")
	b.WriteString("%%BeginData: 1234 Hex Bytes\n")
	for len(digits) > 0 {
		n := 64
		if len(digits) < n {
			n = len(digits)
		}
		b.WriteString("%" + digits[:n] + "\n")
		digits = digits[n:]
	}
	b.WriteString("%%EndData\n")
	b.WriteString("newpath 0 0 moveto showpage\n%%EOF\n")
	return b.String()
}

func TestExtractEPSPreviewDecodesThumbnail(t *testing.T) {
	want := sampleJPEG(t, 8, 6)
	for _, lower := range []bool{false, true} {
		got := ExtractEPSPreview(strings.NewReader(epsWithThumbnail(want, lower)))
		if !bytes.Equal(got, want) {
			t.Fatalf("lower=%v: extracted %d bytes, want %d", lower, len(got), len(want))
		}
	}
}

func TestExtractEPSPreviewFailsSoft(t *testing.T) {
	valid := epsWithThumbnail(sampleJPEG(t, 4, 4), false)
	cases := map[string]string{
		"no marker":   "%!PS-Adobe-3.0 EPSF-3.0\n%%BeginData: 4 Hex Bytes\n%FFD8FFE0\n%%EndData\n",
		"no begin":    "%AI7_Thumbnail: 1 1 8\n%FFD8\n%%EndData\n",
		"no end":      "%AI7_Thumbnail: 1 1 8\n%%BeginData: 4\n%FFD8FFE0\n",
		"odd length":  "%AI7_Thumbnail: 1 1 8\n%%BeginData: 4\n%FFD8FFE\n%%EndData\n",
		"non hex":     "%AI7_Thumbnail: 1 1 8\n%%BeginData: 4\n%FFD8ZZ\n%%EndData\n",
		"not a jpeg":  "%AI7_Thumbnail: 1 1 8\n%%BeginData: 4\n%FFD8FFE0\n%%EndData\n",
		"empty input": "",
		"truncated":   valid[:len(valid)/2],
	}
	for name, input := range cases {
		if got := ExtractEPSPreview(strings.NewReader(input)); got != nil {
			t.Fatalf("%s: expected nil preview, got %d bytes", name, len(got))
		}
	}
	if ExtractEPSPreview(nil) != nil {
		t.Fatal("nil reader should produce nil preview")
	}
}

func TestEPSTextTruncatesAndWraps(t *testing.T) {
	source := strings.Repeat("a", EPSTextLimit+500)
	text, err := EPSText(strings.NewReader(source))
	if err != nil {
		t.Fatalf("EPSText: %v", err)
	}
	if !strings.HasPrefix(text, "[EPS FILE CONTENT START]\n") || !strings.HasSuffix(text, "\n[EPS FILE CONTENT END]") {
		t.Fatalf("missing markers: %q...", text[:40])
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, "[EPS FILE CONTENT START]\n"), "\n[EPS FILE CONTENT END]")
	if len(body) != EPSTextLimit {
		t.Fatalf("expected %d chars, got %d", EPSTextLimit, len(body))
	}
}

func TestEPSTextMapsBinaryBytesToCharacters(t *testing.T) {
	text, err := EPSText(bytes.NewReader([]byte{'%', 0xC5, 0xD0, 0xD3, 0xC6, 0xFF}))
	if err != nil {
		t.Fatalf("EPSText: %v", err)
	}
	if !utf8.ValidString(text) {
		t.Fatal("expected valid UTF-8 output")
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, "[EPS FILE CONTENT START]\n"), "\n[EPS FILE CONTENT END]")
	if utf8.RuneCountInString(body) != 6 {
		t.Fatalf("expected one character per byte, got %q", body)
	}
}

func TestParseDataURL(t *testing.T) {
	cases := []struct {
		in       string
		mimeType string
		body     string
	}{
		{"data:image/png;base64,AAAA", "image/png", "AAAA"},
		{"data:image/svg+xml;base64,PHN2Zz4=", "image/svg+xml", "PHN2Zz4="},
		{"data:video/mp4;base64,BBBB", "video/mp4", "BBBB"},
		{"data:;base64,CCCC", DefaultMIMEType, "CCCC"},
		{"DDDD", DefaultMIMEType, "DDDD"},
	}
	for _, tc := range cases {
		mimeType, body := ParseDataURL(tc.in)
		if mimeType != tc.mimeType || body != tc.body {
			t.Fatalf("ParseDataURL(%q) = %q, %q", tc.in, mimeType, body)
		}
	}
	if got := EncodeDataURL("", []byte{1}); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Fatalf("expected default mime, got %q", got)
	}
}

func TestPrepareRasterKeepsMIMEType(t *testing.T) {
	data := samplePNG(t, 3, 3)
	file := queue.NewMemoryFile("logo.png", "", data)

	payload, err := NewPreparer().Prepare(context.Background(), file)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	inline, ok := payload.(InlinePayload)
	if !ok {
		t.Fatalf("expected inline payload, got %T", payload)
	}
	if inline.MIMEType != "image/png" {
		t.Fatalf("transparent formats must keep their type, got %q", inline.MIMEType)
	}
	decoded, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil || !bytes.Equal(decoded, data) {
		t.Fatalf("payload body does not round trip: %v", err)
	}
	if IsVectorPayload(payload) {
		t.Fatal("raster payload reported as vector")
	}
}

func TestPrepareVideoKeepsVideoType(t *testing.T) {
	file := queue.NewMemoryFile("clip.mp4", "video/mp4", []byte("....ftypisom"))
	payload, err := NewPreparer().Prepare(context.Background(), file)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if inline := payload.(InlinePayload); inline.MIMEType != "video/mp4" {
		t.Fatalf("expected video/mp4, got %q", inline.MIMEType)
	}
}

// An EPS without an Illustrator thumbnail has no preview but still produces
// the text payload for the model.
func TestEPSWithoutThumbnailStillPrepares(t *testing.T) {
	source := "%!PS-Adobe-3.0 EPSF-3.0\n" + strings.Repeat("0 0 moveto\n", 5000)
	file := queue.NewMemoryFile("shape.EPS", "", []byte(source))

	if _, ok := BuildPreview(file, 128); ok {
		t.Fatal("expected no preview")
	}
	payload, err := NewPreparer().Prepare(context.Background(), file)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	text, ok := payload.(TextPayload)
	if !ok {
		t.Fatalf("expected text payload, got %T", payload)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text.Text, "[EPS FILE CONTENT START]\n"), "\n[EPS FILE CONTENT END]")
	if len(body) != EPSTextLimit {
		t.Fatalf("expected %d characters, got %d", EPSTextLimit, len(body))
	}
}

func TestPreparePropagatesReadErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	file, err := queue.NewDiskFile(path, "image/jpeg")
	if err != nil {
		t.Fatalf("NewDiskFile: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := NewPreparer().Prepare(context.Background(), file); err == nil {
		t.Fatal("expected read error to propagate")
	}
}

func TestPrepareIsDeterministic(t *testing.T) {
	file := queue.NewMemoryFile("a.jpg", "image/jpeg", sampleJPEG(t, 4, 4))
	first, _ := NewPreparer().Prepare(context.Background(), file)
	second, _ := NewPreparer().Prepare(context.Background(), file)
	if first != second {
		t.Fatal("same bytes should yield the same payload")
	}
}

func TestThumbnailScalesLongestEdge(t *testing.T) {
	mimeType, out, err := Thumbnail(sampleJPEG(t, 200, 100), 50)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if mimeType != "image/jpeg" {
		t.Fatalf("unexpected type %q", mimeType)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Fatalf("unexpected size %dx%d", cfg.Width, cfg.Height)
	}

	mimeType, _, err = Thumbnail(samplePNG(t, 10, 10), 50)
	if err != nil || mimeType != "image/png" {
		t.Fatalf("png should stay png: %q %v", mimeType, err)
	}
	if _, _, err := Thumbnail([]byte("not an image"), 50); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPreviewStoreLifecycle(t *testing.T) {
	store := NewPreviewStore()
	file := queue.NewMemoryFile("a.jpg", "image/jpeg", sampleJPEG(t, 40, 40))
	preview, ok := BuildPreview(file, 16)
	if !ok {
		t.Fatal("expected raster preview")
	}
	url := store.Put(preview)
	if !strings.HasPrefix(url, PreviewPrefix) {
		t.Fatalf("unexpected url %q", url)
	}

	mimeType, rc, err := store.Open(url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if mimeType != "image/jpeg" || len(data) == 0 {
		t.Fatalf("unexpected preview %q (%d bytes)", mimeType, len(data))
	}

	store.Release(url)
	store.Release(url)
	if store.Len() != 0 {
		t.Fatal("expected preview released")
	}
	if _, _, err := store.Open(url); err == nil {
		t.Fatal("expected released preview to be gone")
	}
}

func TestBuildPreviewForVideoServesSource(t *testing.T) {
	file := queue.NewMemoryFile("clip.mov", "", []byte("moov"))
	preview, ok := BuildPreview(file, 64)
	if !ok || preview.Source == nil || preview.MIMEType != "video/quicktime" {
		t.Fatalf("unexpected video preview %+v ok=%v", preview, ok)
	}
}

func TestDetectMIMEType(t *testing.T) {
	cases := []struct {
		name, declared string
		head           []byte
		want           string
	}{
		{"a.JPG", "", nil, "image/jpeg"},
		{"a.bin", "image/webp; charset=binary", nil, "image/webp"},
		{"vector.eps", "", nil, "application/postscript"},
		{"noext", "", []byte("\x89PNG\r\n\x1a\n"), "image/png"},
		{"noext", "", nil, DefaultMIMEType},
	}
	for _, tc := range cases {
		if got := DetectMIMEType(tc.name, tc.declared, tc.head); got != tc.want {
			t.Fatalf("DetectMIMEType(%q, %q) = %q, want %q", tc.name, tc.declared, got, tc.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	cases := map[string]Payload{
		"inline image/png (8 base64 chars)": InlinePayload{MIMEType: "image/png", Data: "AAAABBBB"},
		"text (5 chars)":                    TextPayload{Text: "hello"},
		"unknown payload":                   nil,
	}
	for want, p := range cases {
		if got := Describe(p); got != want {
			t.Fatalf("Describe(%#v) = %q, want %q", p, got, want)
		}
	}
}
