package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/rowreduce/internal/config"
	"pkg.jsn.cam/rowreduce/pkg/snapshot"
)

func newMergeCmd(configFile *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "merge --out <merged.db> <snapshot.db>...",
		Short: "Combine snapshots of disjoint inputs into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return errors.New("--out is required")
			}

			cfg, logger, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}
			rc, err := cfg.ToRowreduce()
			if err != nil {
				return err
			}

			snaps := make([]*snapshot.Snapshot, 0, len(args))
			for _, path := range args {
				snap, err := snapshot.LoadFile(path)
				if err != nil {
					return err
				}
				snaps = append(snaps, snap)
			}

			merged, err := snapshot.Merge(cmd.Context(), snaps, rc.ReduceOptions())
			if err != nil {
				return err
			}
			if err := snapshot.SaveFile(outPath, merged); err != nil {
				return err
			}

			logger.Info("snapshots merged",
				slog.Int("inputs", len(snaps)),
				slog.Int("keys", merged.Meta.Keys),
				slog.String("snapshot_id", merged.Meta.ID),
				slog.String("out", outPath))

			return writeResults(cmd.OutOrStdout(), cfg.Format, merged.Results())
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "path of the merged snapshot")
	cmd.Flags().String("reduce-strategy", config.Default().ReduceStrategy, "reduction: sequential, tree or sharded")
	addFormatFlag(cmd)
	return cmd
}
