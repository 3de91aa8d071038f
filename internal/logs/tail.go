package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const pollInterval = 250 * time.Millisecond

// TailOptions selects where reading starts, which records qualify and whether
// to wait for new ones.
type TailOptions struct {
	// Offset is the byte position to resume from. A negative offset returns
	// the last Limit matching lines of the file.
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Filter Filter
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads complete lines from path. A trailing line without a newline is
// left for the next call, so a record that is still being written is never
// split. A missing file yields no lines and offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var (
		lines  []string
		offset int64
	)
	switch {
	case opts.Offset < 0 && opts.Limit <= 0:
		offset = info.Size()
	case opts.Offset < 0:
		lines, offset, err = scanLines(path, 0, opts.Filter, opts.Limit)
	default:
		start := min(opts.Offset, info.Size())
		lines, offset, err = scanLines(path, start, opts.Filter, 0)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}
	if len(lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return TailResult{Lines: lines, Offset: offset}, nil
	}
	return follow(ctx, path, offset, opts.Filter, opts.Wait)
}

// scanLines returns the matching complete lines after offset and the offset
// just past the last complete line. A positive limit keeps only the last
// limit matches.
func scanLines(path string, offset int64, filter Filter, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	pos := offset
	var kept []string
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, offset, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if !filter.Match(line) {
			continue
		}
		kept = append(kept, line)
		if limit > 0 && len(kept) > limit {
			kept = kept[1:]
		}
	}
	return kept, pos, nil
}

func follow(ctx context.Context, path string, offset int64, filter Filter, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
		lines, next, err := scanLines(path, offset, filter, 0)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		offset = next
		if len(lines) > 0 || time.Now().After(deadline) {
			return TailResult{Lines: lines, Offset: offset}, nil
		}
	}
}
