package export

import (
	"bytes"
	"encoding/xml"
	"strings"

	"stockmeta/internal/metadata"
)

const (
	xpacketBegin = "<?xpacket begin="
	xpacketEnd   = `<?xpacket end="w"?>`
	eofMarker    = "%%EOF"
)

// BuildXMP renders an XMP packet carrying title, description and keywords as
// Dublin Core properties. Values are XML-escaped.
func BuildXMP(r metadata.MetadataResult) string {
	var b strings.Builder
	b.WriteString("\n<?xpacket begin=\"\uFEFF\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n")
	b.WriteString("<x:xmpmeta xmlns:x=\"adobe:ns:meta/\">\n")
	b.WriteString("  <rdf:RDF xmlns:rdf=\"http://www.w3.org/1999/02/22-rdf-syntax-ns#\">\n")
	b.WriteString("    <rdf:Description rdf:about=\"\"\n        xmlns:dc=\"http://purl.org/dc/elements/1.1/\">\n")
	b.WriteString("      <dc:title>\n        <rdf:Alt>\n          <rdf:li xml:lang=\"x-default\">")
	b.WriteString(escape(r.Title))
	b.WriteString("</rdf:li>\n        </rdf:Alt>\n      </dc:title>\n")
	b.WriteString("      <dc:description>\n        <rdf:Alt>\n          <rdf:li xml:lang=\"x-default\">")
	b.WriteString(escape(r.Description))
	b.WriteString("</rdf:li>\n        </rdf:Alt>\n      </dc:description>\n")
	b.WriteString("      <dc:subject>\n        <rdf:Bag>\n")
	for _, kw := range r.Keywords {
		b.WriteString("          <rdf:li>")
		b.WriteString(escape(kw))
		b.WriteString("</rdf:li>\n")
	}
	b.WriteString("        </rdf:Bag>\n      </dc:subject>\n")
	b.WriteString("    </rdf:Description>\n  </rdf:RDF>\n</x:xmpmeta>\n")
	b.WriteString(xpacketEnd)
	return b.String()
}

// InjectXMP embeds the packet into EPS source. An existing packet is
// replaced; otherwise the packet goes before the last %%EOF, or at the end
// when there is none.
func InjectXMP(content []byte, r metadata.MetadataResult) []byte {
	packet := []byte(BuildXMP(r))
	start := bytes.Index(content, []byte(xpacketBegin))
	end := bytes.Index(content, []byte(xpacketEnd))
	if start >= 0 && end >= 0 && end >= start {
		return concat(content[:start], packet, content[end+len(xpacketEnd):])
	}
	if eof := bytes.LastIndex(content, []byte(eofMarker)); eof >= 0 {
		return concat(content[:eof], []byte("\n"), packet, []byte("\n"), content[eof:])
	}
	return concat(content, []byte("\n"), packet)
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
