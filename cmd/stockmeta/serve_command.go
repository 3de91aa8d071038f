package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockmeta/internal/api"
	"stockmeta/internal/daemon"
	"stockmeta/internal/hotfolder"
	"stockmeta/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var sel workspaceSelection
	var bind string
	var watchDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local control surface until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Server.Bind = b
			}
			if w := strings.TrimSpace(watchDir); w != "" {
				cfg.Watch.Dir = w
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			ws, closeWS, err := ctx.openWorkspace(sel)
			if err != nil {
				return err
			}
			defer closeWS()

			var runners []daemon.Runner
			if cfg.Watch.Dir != "" {
				watcher, err := hotfolder.New(cfg.Watch.Dir,
					time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond, ws, logger)
				if err != nil {
					return err
				}
				runners = append(runners, watcher)
			}

			server := api.NewServer(ws, api.WithLogger(logger), api.WithAllowedHosts(cfg.Server.Bind))
			d, err := daemon.New(cfg, ws, server, logger, runners...)
			if err != nil {
				return err
			}
			if err := d.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stockmeta listening on http://%s\n", d.Addr())

			<-cmd.Context().Done()
			logger.Info("stockmeta shutting down", logging.String("reason", "signal"))
			d.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	cmd.Flags().StringVar(&watchDir, "watch", "", "Hot folder to ingest from (defaults to watch.dir)")
	cmd.Flags().StringVar(&sel.mode, "mode", "", "Initial output mode (defaults to config)")
	cmd.Flags().StringVar(&sel.platform, "platform", "", "Initial platform (defaults to config)")
	cmd.Flags().StringVar(&sel.uploadMode, "type", "images", "Initial file type: images, vectors or videos")
	return cmd
}
