package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stockmeta/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counters and workspace state of the running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := ctx.client().Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, snap)
			}
			out := cmd.OutOrStdout()
			st := snap.State
			rows := [][]string{
				{"Mode", st.Mode},
				{"File type", st.UploadMode},
				{"Platform", st.Platform},
				{"Running", yesNo(st.Running)},
				{"Paused", yesNo(st.Paused)},
				{"API key set", yesNo(st.HasAPIKey)},
			}
			renderTable(out, []column{leftCol("Workspace"), leftCol("")}, rows)
			renderStats(out, snap.Stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the server queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOut bool
		status  string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queued files in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var want queue.Status
			if status != "" {
				parsed, err := queue.ParseStatus(strings.ToLower(strings.TrimSpace(status)))
				if err != nil {
					return err
				}
				want = parsed
			}
			items, err := ctx.client().Items(cmd.Context())
			if err != nil {
				return err
			}
			if want != "" {
				filtered := items[:0]
				for _, item := range items {
					if item.Status == string(want) {
						filtered = append(filtered, item)
					}
				}
				items = filtered
			}
			if jsonOut {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 && want != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s items\n", want)
				return nil
			}
			renderItems(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&status, "status", "", "Only show items in this status (idle, processing, success, error)")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Queue files or directories on the server host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				paths = append(paths, abs)
			}
			resp, err := ctx.client().AddPaths(cmd.Context(), paths)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d files\n", len(resp.Items))
			return nil
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove items from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client := ctx.client()
			for _, id := range args {
				if err := client.Remove(cmd.Context(), id); err != nil {
					fmt.Fprintf(out, "Item %s: %v\n", id, err)
					continue
				}
				fmt.Fprintf(out, "Item %s removed\n", id)
			}
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued item",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ctx.client().Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queue items\n", n)
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id]...",
		Short: "Move failed items back to idle (all failed items when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client := ctx.client()
			if len(args) == 0 {
				n, err := client.RetryFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Retrying %d failed items\n", n)
				return nil
			}
			for _, id := range args {
				if err := client.Retry(cmd.Context(), id); err != nil {
					fmt.Fprintf(out, "Item %s is not in a retryable state (only failed items can be retried): %v\n", id, err)
					continue
				}
				fmt.Fprintf(out, "Item %s reset for retry\n", id)
			}
			return nil
		},
	}
}

func newRunControlCommands(ctx *commandContext) []*cobra.Command {
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a batch over idle and failed items on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Start(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s started with %d items\n", resp.RunID, resp.Items)
			return nil
		},
	}
	cmds := []*cobra.Command{start}
	for _, action := range []struct{ name, short, done string }{
		{"pause", "Pause the running batch before its next group", "Pause requested"},
		{"resume", "Resume a paused batch", "Resumed"},
		{"stop", "Stop the running batch; in-flight items return to idle", "Stop requested"},
	} {
		action := action
		cmds = append(cmds, &cobra.Command{
			Use:   action.name,
			Short: action.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := ctx.client().RunAction(cmd.Context(), action.name); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), action.done)
				return nil
			},
		})
	}
	return cmds
}
