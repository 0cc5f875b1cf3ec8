package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biochat/pkg/web"

	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat page over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(root)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv, err := web.New(web.Options{
				Generator:    a.shared,
				Template:     a.tmpl,
				SystemPrompt: a.cfg.SystemPrompt,
				Model:        a.cfg.Model,
				Defaults:     web.SettingsFromParams(a.params()),
				SessionIdle:  time.Duration(a.cfg.Server.SessionIdleMinutes) * time.Minute,
				Loaded:       a.shared.Loaded,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving biochat on %s (model %s)\n", addr, a.cfg.Model)
			return srv.Start(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8501)")
	return cmd
}
