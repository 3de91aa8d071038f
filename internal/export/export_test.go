package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/queue"
)

func successItem(name string, result metadata.Result) queue.Item {
	return queue.Item{
		ID:     name,
		File:   queue.NewMemoryFile(name, "", []byte("%!PS-Adobe-3.0 EPSF-3.0\n%%EOF\n")),
		Status: queue.StatusSuccess,
		Result: result,
	}
}

func TestCSVQuotesAndOrder(t *testing.T) {
	items := []queue.Item{
		successItem("a.jpg", metadata.MetadataResult{Title: `Say "hi"`, Description: "d, with comma", Keywords: []string{"k1", "k2", "k3"}}),
		{ID: "idle", File: queue.NewMemoryFile("idle.jpg", "", nil), Status: queue.StatusIdle},
		successItem("p.jpg", metadata.PromptResult{Text: "ignored"}),
	}
	data, err := CSV(items)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "Filename,Title,Description,Keywords\n" +
		`a.jpg,"Say ""hi""","d, with comma","k1, k2, k3"`
	if string(data) != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", data, want)
	}
}

func TestCSVNothingToExport(t *testing.T) {
	if _, err := CSV(nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestPromptsFormat(t *testing.T) {
	items := []queue.Item{
		successItem("a.png", metadata.PromptResult{Text: "first"}),
		successItem("b.png", metadata.PromptResult{Text: "second"}),
		successItem("c.png", metadata.PromptResult{}),
	}
	data, err := Prompts(items)
	if err != nil {
		t.Fatalf("Prompts: %v", err)
	}
	sep := strings.Repeat("-", 40)
	want := "[FILENAME]: a.png\n[PROMPT]:\nfirst\n" + sep + "\n" +
		"\n" +
		"[FILENAME]: b.png\n[PROMPT]:\nsecond\n" + sep + "\n"
	if string(data) != want {
		t.Fatalf("unexpected txt:\n%q\nwant:\n%q", data, want)
	}
	if _, err := Prompts(items[2:]); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("empty prompt should not export, got %v", err)
	}
}

func TestCopyText(t *testing.T) {
	got := CopyText(metadata.MetadataResult{Title: "t", Description: "d", Keywords: []string{"a", "b"}})
	if got != "Title: t\n\nDescription: d\n\nKeywords: a, b" {
		t.Fatalf("unexpected copy text %q", got)
	}
}

func TestFileNames(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := CSVFileName(platform.RF123, now); got != "123RF_metadata_export_1700000000123.csv" {
		t.Fatalf("unexpected csv name %q", got)
	}
	if got := PromptsFileName(now); got != "prompts_export_1700000000123.txt" {
		t.Fatalf("unexpected txt name %q", got)
	}
}

func TestInjectXMPBeforeEOF(t *testing.T) {
	src := []byte("%!PS\nbody\n%%EOF\ntrailer %%EOF\n")
	out := string(InjectXMP(src, metadata.MetadataResult{Title: "A & B", Description: "<d>", Keywords: []string{"x"}}))

	packetAt := strings.Index(out, "<?xpacket begin=")
	lastEOF := strings.LastIndex(out, "%%EOF")
	if packetAt < 0 || packetAt > lastEOF || packetAt < strings.Index(out, "%%EOF") {
		t.Fatalf("packet not placed before last %%%%EOF:\n%s", out)
	}
	if !strings.Contains(out, ">A &amp; B</rdf:li>") || !strings.Contains(out, "&lt;d&gt;") {
		t.Fatalf("values not escaped:\n%s", out)
	}
	if !strings.Contains(out, "<rdf:li>x</rdf:li>") {
		t.Fatalf("keyword missing:\n%s", out)
	}
}

func TestInjectXMPReplacesExistingPacket(t *testing.T) {
	src := []byte("head\n<?xpacket begin=\"\" id=\"old\"?>old stuff<?xpacket end=\"w\"?>\ntail")
	out := string(InjectXMP(src, metadata.MetadataResult{Title: "new"}))
	if strings.Contains(out, "old stuff") {
		t.Fatalf("old packet kept:\n%s", out)
	}
	if !strings.HasPrefix(out, "head\n") || !strings.HasSuffix(out, "\ntail") {
		t.Fatalf("surrounding content changed:\n%s", out)
	}
	if strings.Count(out, "<?xpacket end=\"w\"?>") != 1 {
		t.Fatalf("expected exactly one packet:\n%s", out)
	}
}

func TestInjectXMPAppendsWithoutEOF(t *testing.T) {
	out := string(InjectXMP([]byte("plain"), metadata.MetadataResult{Title: "t"}))
	if !strings.HasPrefix(out, "plain\n") || !strings.HasSuffix(out, `<?xpacket end="w"?>`) {
		t.Fatalf("unexpected append result:\n%s", out)
	}
}

func TestWriteExports(t *testing.T) {
	dir := t.TempDir()
	now := time.UnixMilli(42)
	item := successItem("art.eps", metadata.MetadataResult{Title: "t", Description: "d", Keywords: []string{"k"}})

	csvPath, err := WriteCSV(dir, platform.AdobeStock, []queue.Item{item}, now)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if filepath.Base(csvPath) != "AdobeStock_metadata_export_42.csv" {
		t.Fatalf("unexpected csv path %s", csvPath)
	}

	epsPath, err := WriteEPS(filepath.Join(dir, "eps"), item)
	if err != nil {
		t.Fatalf("WriteEPS: %v", err)
	}
	data, err := os.ReadFile(epsPath)
	if err != nil {
		t.Fatalf("read eps: %v", err)
	}
	if !strings.Contains(string(data), "<dc:title>") || !strings.HasSuffix(string(data), "%%EOF\n") {
		t.Fatalf("unexpected eps output:\n%s", data)
	}

	if _, err := WritePrompts(dir, []queue.Item{item}, now); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("metadata items have no prompts, got %v", err)
	}
}

func TestEPSFileName(t *testing.T) {
	cases := []struct {
		id, name, want string
	}{
		{"i1", "art.eps", "art.eps"},
		{"i2", "Art.EPS", "Art.EPS"},
		{"i3", "dir/sub/logo.eps", "logo.eps"},
		{"i4", `C:\uploads\logo.eps`, "logo.eps"},
		{"i5", "what?<is>|this:.eps", "what__is__this_.eps"},
		{"i6", "tab\tname.eps", "tabname.eps"},
		{"i7", "vector", "vector.eps"},
		{"i8", " .. ", "i8.eps"},
		{"i9", "", "i9.eps"},
	}
	for _, tc := range cases {
		item := queue.Item{ID: tc.id, File: queue.NewMemoryFile(tc.name, "", nil)}
		if got := EPSFileName(item); got != tc.want {
			t.Fatalf("EPSFileName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
