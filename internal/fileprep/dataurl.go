package fileprep

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// DefaultMIMEType is assumed when a data URL carries no parsable type.
const DefaultMIMEType = "image/jpeg"

var dataURLPrefix = regexp.MustCompile(`^data:([a-zA-Z]+/[a-zA-Z0-9.+-]+);base64,`)

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = DefaultMIMEType
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// ParseDataURL splits a data URL into its MIME type and base64 body. When the
// prefix is missing or malformed the MIME type defaults to image/jpeg and the
// text after the first comma (or the whole input) is returned as the body.
func ParseDataURL(value string) (mimeType, body string) {
	if m := dataURLPrefix.FindStringSubmatch(value); m != nil {
		return strings.ToLower(m[1]), value[len(m[0]):]
	}
	if strings.HasPrefix(value, "data:") {
		if idx := strings.IndexByte(value, ','); idx >= 0 {
			return DefaultMIMEType, value[idx+1:]
		}
	}
	return DefaultMIMEType, value
}
