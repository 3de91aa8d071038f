package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"stockmeta/internal/api"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var dir string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write exports from the server queue",
	}
	exportCmd.PersistentFlags().StringVarP(&dir, "dir", "d", "", "Export directory on the server host (defaults to paths.export_dir)")

	run := func(kind string, id *string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			req := api.ExportRequest{Dir: dir}
			if id != nil {
				req.ID = *id
			}
			paths, err := ctx.client().Export(cmd.Context(), kind, req)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
			}
			return nil
		}
	}

	var epsID string
	eps := &cobra.Command{
		Use:   "eps",
		Short: "Write EPS files with embedded XMP metadata",
		RunE:  run("eps", &epsID),
	}
	eps.Flags().StringVar(&epsID, "id", "", "Export only this item")

	exportCmd.AddCommand(
		&cobra.Command{Use: "csv", Short: "Write the platform metadata CSV", RunE: run("csv", nil)},
		&cobra.Command{Use: "prompts", Aliases: []string{"txt"}, Short: "Write the prompt text export", RunE: run("prompts", nil)},
		eps,
	)
	return exportCmd
}

func newCopyCommand(ctx *commandContext) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy one item's result to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := ctx.client().Copy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if printOnly {
				fmt.Fprintln(out, text)
				return nil
			}
			if err := clipboard.WriteAll(text); err != nil {
				fmt.Fprintln(out, text)
				return fmt.Errorf("clipboard unavailable (printed instead): %w", err)
			}
			fmt.Fprintln(out, "Copied to clipboard")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print instead of copying")
	return cmd
}
