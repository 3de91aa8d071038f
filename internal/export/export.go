package export

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/queue"
)

// ErrNothingToExport is returned when no item has a result of the needed kind.
var ErrNothingToExport = errors.New("nothing to export")

const promptSeparatorWidth = 40

var csvHeader = []string{"Filename", "Title", "Description", "Keywords"}

// CSV renders successful metadata items. Title, description and keywords are
// always quoted; the filename is written as is. Rows are joined by "\n".
func CSV(items []queue.Item) ([]byte, error) {
	lines := []string{strings.Join(csvHeader, ",")}
	for _, item := range items {
		if item.Status != queue.StatusSuccess {
			continue
		}
		meta, ok := item.Metadata()
		if !ok {
			continue
		}
		lines = append(lines, strings.Join([]string{
			item.File.Name,
			quote(meta.Title),
			quote(meta.Description),
			quote(meta.KeywordList()),
		}, ","))
	}
	if len(lines) == 1 {
		return nil, ErrNothingToExport
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Prompts renders successful prompt items as labelled blocks.
func Prompts(items []queue.Item) ([]byte, error) {
	var blocks []string
	for _, item := range items {
		if item.Status != queue.StatusSuccess {
			continue
		}
		p, ok := item.Prompt()
		if !ok || p.Text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[FILENAME]: %s\n[PROMPT]:\n%s\n%s\n",
			item.File.Name, p.Text, strings.Repeat("-", promptSeparatorWidth)))
	}
	if len(blocks) == 0 {
		return nil, ErrNothingToExport
	}
	return []byte(strings.Join(blocks, "\n")), nil
}

// CopyText is the clipboard form of a metadata result.
func CopyText(r metadata.MetadataResult) string {
	return fmt.Sprintf("Title: %s\n\nDescription: %s\n\nKeywords: %s", r.Title, r.Description, r.KeywordList())
}

// CSVFileName is "<platform>_metadata_export_<unix millis>.csv".
func CSVFileName(p platform.Platform, now time.Time) string {
	return fmt.Sprintf("%s_metadata_export_%d.csv", p, now.UnixMilli())
}

// PromptsFileName is "prompts_export_<unix millis>.txt".
func PromptsFileName(now time.Time) string {
	return fmt.Sprintf("prompts_export_%d.txt", now.UnixMilli())
}

// WriteCSV writes the CSV export into dir and returns its path.
func WriteCSV(dir string, p platform.Platform, items []queue.Item, now time.Time) (string, error) {
	data, err := CSV(items)
	if err != nil {
		return "", err
	}
	return writeFile(dir, CSVFileName(p, now), data)
}

// WritePrompts writes the prompt export into dir and returns its path.
func WritePrompts(dir string, items []queue.Item, now time.Time) (string, error) {
	data, err := Prompts(items)
	if err != nil {
		return "", err
	}
	return writeFile(dir, PromptsFileName(now), data)
}

// EPSFileName is the name an EPS export is written under: the base of the
// uploaded name with control characters dropped and characters that Windows
// or macOS reject replaced by "_", always ending in ".eps". A name that
// reduces to nothing falls back to the item ID.
func EPSFileName(item queue.Item) string {
	name := path.Base(strings.ReplaceAll(item.File.Name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case strings.ContainsRune(`<>:"/|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	if name == "" {
		name = item.ID
	}
	if !strings.EqualFold(path.Ext(name), ".eps") {
		name += ".eps"
	}
	return name
}

// WriteEPS reads the item's EPS source, embeds its metadata and writes the
// result into dir under EPSFileName.
func WriteEPS(dir string, item queue.Item) (string, error) {
	meta, ok := item.Metadata()
	if item.Status != queue.StatusSuccess || !ok {
		return "", ErrNothingToExport
	}
	src, err := item.File.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", item.File.Name, err)
	}
	return writeFile(dir, EPSFileName(item), InjectXMP(src, meta))
}

func writeFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return target, nil
}
