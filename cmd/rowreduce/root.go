package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/rowreduce/internal/config"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "rowreduce",
		Short:        "Compute per-key min/mean/max over large key;measurement files",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./rowreduce.yaml if present)")
	root.PersistentFlags().String("log-level", config.Default().LogLevel, "log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(&configFile),
		newShowCmd(&configFile),
		newMergeCmd(&configFile),
	)
	return root
}

// loadConfig resolves configuration for cmd and builds its logger.
func loadConfig(cmd *cobra.Command, configFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	return cfg, newLogger(cmd.ErrOrStderr(), level), nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
