// Package upload decides which incoming files belong in the queue for the
// selected upload mode and turns paths on disk into queue files.
package upload

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stockmeta/internal/fileprep"
	"stockmeta/internal/queue"
)

// Mode is the kind of media being uploaded.
type Mode string

const (
	Images  Mode = "images"
	Vectors Mode = "vectors"
	Videos  Mode = "videos"
)

// Modes lists upload modes in display order.
func Modes() []Mode { return []Mode{Images, Vectors, Videos} }

// ParseMode resolves a mode name case-insensitively; singular forms are accepted.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "images", "image":
		return Images, nil
	case "vectors", "vector", "eps":
		return Vectors, nil
	case "videos", "video":
		return Videos, nil
	default:
		return "", fmt.Errorf("unknown upload mode %q", value)
	}
}

// Accepts reports whether file matches mode: vectors by the .eps suffix,
// images and videos by MIME type prefix.
func (m Mode) Accepts(file queue.File) bool {
	switch m {
	case Vectors:
		return fileprep.IsVector(file.Name)
	case Images:
		return strings.HasPrefix(file.MIMEType, "image/")
	case Videos:
		return strings.HasPrefix(file.MIMEType, "video/")
	default:
		return false
	}
}

// Filter keeps the files mode accepts, preserving order. Rejected files are
// dropped silently.
func Filter(mode Mode, files []queue.File) []queue.File {
	kept := make([]queue.File, 0, len(files))
	for _, f := range files {
		if mode.Accepts(f) {
			kept = append(kept, f)
		}
	}
	return kept
}

// FromPath builds a disk-backed queue file with its MIME type resolved from
// the extension, falling back to content sniffing.
func FromPath(path string) (queue.File, error) {
	head, err := readHead(path)
	if err != nil {
		return queue.File{}, err
	}
	mimeType := ""
	if !fileprep.IsVector(path) {
		mimeType = fileprep.DetectMIMEType(path, "", head)
	}
	return queue.NewDiskFile(path, mimeType)
}

// Collect expands paths (files or directories, walked recursively) into queue
// files accepted by mode. Directory entries are returned in lexical order;
// hidden files are skipped.
func Collect(mode Mode, paths []string) ([]queue.File, error) {
	var files []queue.File
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			f, err := FromPath(root)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			name := d.Name()
			if path != root && strings.HasPrefix(name, ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
		sort.Strings(found)
		for _, path := range found {
			f, err := FromPath(path)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return Filter(mode, files), nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return buf[:n], nil
}
