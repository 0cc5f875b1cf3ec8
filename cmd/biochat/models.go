package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/ai/providers"

	"github.com/spf13/cobra"
)

func newModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models served by the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			models, err := providers.ListModels(ctx, a.cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintln(out, "No models reported by the server.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, m := range models {
				marker := " "
				if m.ID == a.cfg.Model {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s %s\t%s\n", marker, m.ID, m.OwnedBy)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !ai.HasModel(models, a.cfg.Model) {
				fmt.Fprintf(out, "\nConfigured model %q is not served by this backend.\n", a.cfg.Model)
			}
			return nil
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available generation backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, info := range ai.ListBackends() {
				key := ""
				if info.RequiresKey {
					key = "api key"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Type, info.Name, key, info.Description)
			}
			return tw.Flush()
		},
	}
}
