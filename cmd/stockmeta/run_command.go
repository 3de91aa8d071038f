package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"stockmeta/internal/api"
	"stockmeta/internal/batch"
	"stockmeta/internal/export"
	"stockmeta/internal/metadata"
	"stockmeta/internal/upload"
	"stockmeta/internal/workspace"
)

type runOptions struct {
	sel       workspaceSelection
	exportAs  string
	outDir    string
	jsonOut   bool
	listItems bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <path>...",
		Short: "Process files or directories in one batch and export the results",
		Long: `Queue the given files (directories are walked), generate metadata or prompts
for every accepted file, then write the export for the active mode.

Interrupting the run stops it after the in-flight group; completed results are
still exported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, ctx, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.sel.mode, "mode", "", "Output mode: metadata or image_to_prompt (defaults to config)")
	cmd.Flags().StringVar(&opts.sel.platform, "platform", "", "Target platform preset (defaults to config)")
	cmd.Flags().StringVar(&opts.sel.uploadMode, "type", "images", "File type to accept: images, vectors or videos")
	cmd.Flags().StringVar(&opts.exportAs, "export", "auto", "Export format: auto, csv, prompts, eps or none")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Export directory (defaults to paths.export_dir)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the run summary as JSON")
	cmd.Flags().BoolVar(&opts.listItems, "list", false, "Print the processed items as a table")
	return cmd
}

func runBatch(cmd *cobra.Command, ctx *commandContext, opts runOptions, paths []string) error {
	out := cmd.OutOrStdout()
	progress := newProgressPrinter(out, opts.jsonOut)

	ws, closeWS, err := ctx.openWorkspace(opts.sel, progress.observer())
	if err != nil {
		return err
	}
	defer closeWS()

	items, err := ws.AddPaths(paths...)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("no matching files found")
	}

	run, err := ws.Start(cmd.Context())
	if err != nil {
		return err
	}
	select {
	case <-run.Done():
	case <-cmd.Context().Done():
		run.Stop()
		<-run.Done()
	}
	summary := run.Wait()

	state := ws.State(cmd.Context())
	written, exportErr := exportRun(ws, state, opts)

	if opts.jsonOut {
		return writeJSON(cmd, map[string]any{
			"summary": summary,
			"items":   api.FromQueueItems(ws.Items()),
			"exports": written,
		})
	}
	if opts.listItems {
		renderItems(out, api.FromQueueItems(ws.Items()))
	}
	printSummary(out, summary)
	for _, p := range written {
		fmt.Fprintf(out, "Wrote %s\n", p)
	}
	if exportErr != nil && !errors.Is(exportErr, export.ErrNothingToExport) {
		return exportErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total)
	}
	return nil
}

func exportRun(ws *workspace.Workspace, state workspace.State, opts runOptions) ([]string, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.exportAs))
	if kind == "auto" {
		switch {
		case state.Mode == metadata.ModeImageToPrompt:
			kind = "prompts"
		case state.UploadMode == upload.Vectors:
			kind = "eps"
		default:
			kind = "csv"
		}
	}
	switch kind {
	case "none", "":
		return nil, nil
	case "csv":
		p, err := ws.ExportCSV(opts.outDir)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	case "prompts", "txt":
		p, err := ws.ExportPrompts(opts.outDir)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	case "eps":
		return ws.ExportAllEPS(opts.outDir)
	default:
		return nil, fmt.Errorf("unknown export format %q", opts.exportAs)
	}
}

// progressPrinter writes one line per finished item. Observer callbacks for
// the same group arrive concurrently.
type progressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	total int
	done  int
}

func newProgressPrinter(out io.Writer, quiet bool) *progressPrinter {
	return &progressPrinter{out: out, quiet: quiet}
}

func (p *progressPrinter) observer() batch.Observer {
	return batch.ObserverFuncs{
		OnRunStarted: func(info batch.RunInfo) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.total = info.Items
			if !p.quiet {
				fmt.Fprintf(p.out, "Processing %d files (%s, %s, groups of %d)\n",
					info.Items, info.Mode.Label(), info.Platform, info.GroupSize)
			}
		},
		OnItemFinished: func(ev batch.ItemEvent) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.done++
			if p.quiet {
				return
			}
			line := fmt.Sprintf("[%d/%d] %s %s", p.done, p.total, ev.Outcome, ev.Name)
			if ev.Error != "" {
				line += ": " + ev.Error
			}
			fmt.Fprintln(p.out, line)
		},
	}
}

func printSummary(out io.Writer, s batch.Summary) {
	rows := [][]string{
		{"Succeeded", fmt.Sprint(s.Succeeded)},
		{"Failed", fmt.Sprint(s.Failed)},
		{"Cancelled", fmt.Sprint(s.Cancelled)},
		{"Skipped", fmt.Sprint(s.Skipped)},
		{"Groups", fmt.Sprint(s.Groups)},
		{"Stopped early", yesNo(s.Stopped)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	renderTable(out, []column{leftCol("Run " + s.RunID), rightCol("")}, rows)
}
