package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"pkg.jsn.cam/rowreduce/cmd/testdata/generator"
)

// generates measurement files for rowreduce

var (
	generatorName = flag.String("generator", "measurements", "generator to use (see -list)")
	count         = flag.Int64("count", 0, "number of lines (0 = generator default)")
	outputPath    = flag.String("output", "var/measurements.txt", "output file path")
	seed          = flag.Uint64("seed", 1, "random seed")
	stations      = flag.Int("stations", len(generator.Stations), "number of distinct stations")
	delimiter     = flag.String("delimiter", ";", "single-byte key/value delimiter")
	list          = flag.Bool("list", false, "list generators and exit")
)

func main() {
	flag.Parse()

	if *list {
		for _, name := range generator.List() {
			g, _ := generator.Get(name)
			fmt.Printf("%-14s %s\n", name, g.Description())
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("generate failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	if len(*delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single byte, got %q", *delimiter)
	}

	g, err := generator.Get(*generatorName)
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(generator.List(), ", "))
	}
	generator.Configure(g, *stations, (*delimiter)[0])
	g.Init(rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))

	lines := *count
	if lines <= 0 {
		lines = g.DefaultCount()
	}

	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(*outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	start := time.Now()
	w := bufio.NewWriterSize(file, 1<<20)
	if err := generate(w, g, lines); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		return err
	}
	slog.Info("generated",
		slog.String("path", *outputPath),
		slog.String("generator", *generatorName),
		slog.Int64("lines", lines),
		slog.String("size", humanize.Bytes(uint64(info.Size()))),
		slog.Duration("elapsed", time.Since(start)))
	return file.Close()
}

func generate(w *bufio.Writer, g generator.Generator, lines int64) error {
	for range lines {
		if err := g.WriteLine(w); err != nil {
			return err
		}
	}
	return nil
}
