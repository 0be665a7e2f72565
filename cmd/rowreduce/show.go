package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/rowreduce/pkg/snapshot"
)

func newShowCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <snapshot.db>",
		Short: "Print the results stored in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}

			snap, err := snapshot.LoadFile(args[0])
			if err != nil {
				return err
			}
			logger.Info("loaded snapshot",
				slog.String("snapshot_id", snap.Meta.ID),
				slog.String("format_version", snap.Meta.FormatVersion),
				slog.Any("sources", snap.Meta.Sources),
				slog.Time("created_at", snap.Meta.CreatedAt))

			return writeResults(cmd.OutOrStdout(), cfg.Format, snap.Results())
		},
	}
	addFormatFlag(cmd)
	return cmd
}
