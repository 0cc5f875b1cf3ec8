package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"biochat/pkg/ai"
	"biochat/pkg/cli"
	"biochat/pkg/config"
	"biochat/pkg/conversation"
	"biochat/pkg/logging"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type rootOptions struct {
	configPath string
	dryRun     bool
}

// app is what every sub-command needs: validated config, the chat template
// and the lazily built shared capability.
type app struct {
	cfg    config.Config
	tmpl   ai.ChatTemplate
	shared *ai.Shared
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "biochat",
		Short:         "Biomedical chatbot",
		Long:          "Ask healthcare and biomedical questions to a language model, in the terminal or in the browser.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			return runChat(cmd, a)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.biochat/config.json)")
	cmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "answer without calling a model")

	cmd.AddCommand(newServeCmd(opts), newModelsCmd(opts), newBackendsCmd(), newVersionCmd())
	return cmd
}

func loadApp(opts *rootOptions) (*app, error) {
	path := opts.configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.dryRun {
		cfg.DryRun = true
	}

	if _, err := logging.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	slog.Info("config_loaded", "config_path", path, "backend", cfg.Backend, "model", cfg.Model, "dry_run", cfg.DryRun)

	if err := cfg.Validate(); err != nil {
		slog.Error("config_invalid", "error", err)
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	tmpl, err := ai.ResolveTemplate(cfg.ChatTemplate, cfg.Model)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:  cfg,
		tmpl: tmpl,
		shared: ai.NewShared(func() (ai.Capability, error) {
			return ai.NewCapabilityFromConfig(cfg)
		}),
	}, nil
}

func (a *app) params() ai.GenerationParams {
	return ai.GenerationParams{
		MaxNewTokens: a.cfg.Generation.MaxNewTokens,
		Temperature:  a.cfg.Generation.Temperature,
		TopP:         a.cfg.Generation.TopP,
	}
}

func runChat(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	tty := isTerminal(out)

	session := conversation.NewSession(a.cfg.SystemPrompt, a.tmpl)
	loop := cli.New(session, a.shared, cli.Options{
		In:       cmd.InOrStdin(),
		Out:      out,
		Params:   a.params(),
		Model:    a.cfg.Model,
		Color:    tty && os.Getenv("NO_COLOR") == "",
		Progress: tty,
	})
	return loop.Run(cmd.Context())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) && !strings.EqualFold(os.Getenv("TERM"), "dumb")
}
