package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stockmeta/internal/api"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func resultSummary(item api.QueueItem) string {
	if item.Error != "" {
		return truncate(item.Error, 60)
	}
	if item.Result == nil {
		return ""
	}
	if item.Result.Metadata != nil {
		return truncate(item.Result.Metadata.Title, 60)
	}
	if item.Result.Prompt != nil {
		return truncate(item.Result.Prompt.Text, 60)
	}
	return ""
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func renderItems(out io.Writer, items []api.QueueItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.FileName,
			humanize.IBytes(uint64(item.Size)),
			item.Status,
			resultSummary(item),
		})
	}
	renderTable(out, []column{
		leftCol("ID"),
		leftCol("File"),
		rightCol("Size"),
		statusCol("Status"),
		leftCol("Result"),
	}, rows)
}

func renderStats(out io.Writer, stats api.QueueStats) {
	fmt.Fprintf(out, "Total: %d  Pending: %d  Processing: %d  Completed: %d  Failed: %d  (%.0f%%)\n",
		stats.Total, stats.Pending, stats.Processing, stats.Completed, stats.Failed, stats.Progress*100)
}
