package main

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pkg.jsn.cam/rowreduce/internal/config"
	"pkg.jsn.cam/rowreduce/pkg/rowreduce"
	"pkg.jsn.cam/rowreduce/pkg/snapshot"
)

// memoryLogInterval is how many chunks pass between heap usage log lines.
const memoryLogInterval = 100

func newRunCmd(configFile *string) *cobra.Command {
	var (
		savePath     string
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Aggregate a measurements file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}

			rc, err := cfg.ToRowreduce()
			if err != nil {
				return err
			}
			rc.Logger = logger

			var bar *progressbar.ProgressBar
			if showProgress {
				bar = progressbar.NewOptions64(-1,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("aggregating"),
					progressbar.OptionShowBytes(true),
					progressbar.OptionClearOnFinish(),
				)
			}
			rc.Progress = progressReporter(logger, bar)

			report, err := rowreduce.Run(cmd.Context(), args[0], rc)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			if err := writeResults(cmd.OutOrStdout(), cfg.Format, report.Results); err != nil {
				return err
			}

			logger.Info("summary",
				slog.String("run_id", report.RunID),
				slog.Int("chunks", report.Chunks),
				slog.Int("parallelism", report.Parallelism),
				slog.String("bytes", humanize.Bytes(uint64(report.Bytes))),
				slog.Int64("malformed", report.Malformed),
				slog.Duration("elapsed", report.Elapsed))

			if savePath == "" {
				return nil
			}
			snap := snapshot.FromReport(report)
			if err := snapshot.SaveFile(savePath, snap); err != nil {
				return err
			}
			logger.Info("snapshot saved",
				slog.String("path", savePath),
				slog.String("snapshot_id", snap.Meta.ID))
			return nil
		},
	}

	d := config.Default()
	f := cmd.Flags()
	f.String("chunk-size", d.ChunkSize, "target chunk size, e.g. 10MB or 64MiB")
	f.Int("parallelism", d.Parallelism, "maximum concurrent chunks (0 = GOMAXPROCS)")
	f.String("strategy", d.Strategy, "scheduling strategy: pooled or per-task")
	f.String("read-mode", d.ReadMode, "read mode: pread or mmap")
	f.String("reduce-strategy", d.ReduceStrategy, "reduction: sequential, tree or sharded")
	f.Int("reduce-shards", d.ReduceShards, "shard count for sharded reduction (0 = parallelism)")
	f.String("delimiter", d.Delimiter, "single-byte key/value delimiter")
	f.Bool("allow-unterminated", d.AllowUnterminated, "accept a final line without a trailing newline")
	f.Bool("skip-malformed", d.SkipMalformed, "skip malformed lines instead of failing")
	addFormatFlag(cmd)
	f.StringVar(&savePath, "save", "", "write a snapshot of the aggregates to this bbolt file")
	f.BoolVar(&showProgress, "progress", false, "show a progress bar on stderr")

	return cmd
}

// progressReporter advances bar and logs heap usage periodically.
func progressReporter(logger *slog.Logger, bar *progressbar.ProgressBar) rowreduce.ProgressFunc {
	return func(ev rowreduce.ProgressEvent) {
		if bar != nil {
			if ev.ChunksDone == 1 {
				bar.ChangeMax64(ev.BytesTotal)
			}
			_ = bar.Set64(ev.BytesDone)
		}

		if ev.ChunksDone%memoryLogInterval != 0 {
			return
		}
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		logger.Debug("memory",
			slog.String("run_id", ev.RunID),
			slog.Int("chunks_done", ev.ChunksDone),
			slog.Int("chunks_total", ev.ChunksTotal),
			slog.String("heap_inuse", humanize.Bytes(m.HeapInuse)),
			slog.String("sys", humanize.Bytes(m.Sys)))
	}
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", config.Default().Format, "output format: brace or lines")
}

func writeResults(w io.Writer, format string, results []rowreduce.Result) error {
	switch format {
	case "brace", "":
		return rowreduce.WriteBrace(w, results)
	case "lines":
		return rowreduce.WriteLines(w, results)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
