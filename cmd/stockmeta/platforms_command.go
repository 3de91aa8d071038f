package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"stockmeta/internal/api"
)

func newPlatformsCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:         "platforms",
		Short:       "List target platforms and their preset limits",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := api.Platforms()
			if jsonOut {
				return writeJSON(cmd, infos)
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				if info.Settings == nil {
					rows = append(rows, []string{info.Name, "-", "-", "-", "-"})
					continue
				}
				s := info.Settings
				rows = append(rows, []string{
					info.Name,
					wordRange(s.MinTitleWords, s.MaxTitleWords),
					wordRange(s.MinDescWords, s.MaxDescWords),
					wordRange(s.MinKeywords, s.MaxKeywords),
					yesNo(s.SingleWordKeywords),
				})
			}
			renderTable(cmd.OutOrStdout(), []column{
				leftCol("Platform"),
				rightCol("Title words"),
				rightCol("Description words"),
				rightCol("Keywords"),
				leftCol("Single-word"),
			}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func wordRange(lo, hi int) string {
	return strconv.Itoa(lo) + "-" + strconv.Itoa(hi)
}
