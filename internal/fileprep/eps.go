package fileprep

import (
	"bytes"
	"encoding/hex"
	"image/jpeg"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	// epsPreviewScanLimit bounds how much of an EPS file is searched for a thumbnail.
	epsPreviewScanLimit = 2 << 20
	// EPSTextLimit is how many characters of PostScript source reach the model.
	EPSTextLimit = 30000

	epsThumbnailMarker = "%AI7_Thumbnail"
	epsBeginData       = "%%BeginData:"
	epsEndData         = "%%EndData"

	epsContentStart = "[EPS FILE CONTENT START]"
	epsContentEnd   = "[EPS FILE CONTENT END]"
)

// IsVector reports whether name is an EPS vector file.
func IsVector(name string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), ".eps")
}

// ExtractEPSPreview returns the JPEG thumbnail embedded by Illustrator in an
// EPS file, or nil when there is none or it cannot be decoded.
func ExtractEPSPreview(r io.Reader) []byte {
	if r == nil {
		return nil
	}
	head, err := io.ReadAll(io.LimitReader(r, epsPreviewScanLimit))
	if err != nil || len(head) == 0 {
		return nil
	}

	marker := bytes.Index(head, []byte(epsThumbnailMarker))
	if marker < 0 {
		return nil
	}
	rest := head[marker:]
	begin := bytes.Index(rest, []byte(epsBeginData))
	if begin < 0 {
		return nil
	}
	block := rest[begin+len(epsBeginData):]
	end := bytes.Index(block, []byte(epsEndData))
	if end < 0 {
		return nil
	}
	block = block[:end]

	var hexData strings.Builder
	for _, line := range strings.Split(string(block), "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimPrefix(trimmed, "%")
		hexData.WriteString(strings.Join(strings.Fields(trimmed), ""))
	}

	digits := strings.ToUpper(hexData.String())
	// The first line after %%BeginData: is the byte count header; skip to the
	// JPEG start-of-image marker.
	if soi := strings.Index(digits, "FFD8"); soi >= 0 {
		digits = digits[soi:]
	}
	raw, err := hex.DecodeString(digits)
	if err != nil || len(raw) == 0 {
		return nil
	}
	if _, err := jpeg.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return nil
	}
	return raw
}

// EPSText returns the first EPSTextLimit characters of an EPS file wrapped in
// content markers. Bytes are read as Latin-1 so every byte maps to exactly one
// character.
func EPSText(r io.Reader) (string, error) {
	head, err := io.ReadAll(io.LimitReader(r, EPSTextLimit))
	if err != nil {
		return "", err
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(head)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(decoded) + len(epsContentStart) + len(epsContentEnd) + 2)
	b.WriteString(epsContentStart)
	b.WriteByte('\n')
	b.Write(decoded)
	b.WriteByte('\n')
	b.WriteString(epsContentEnd)
	return b.String(), nil
}
