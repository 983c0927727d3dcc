package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/doclayout/internal/app"
	"github.com/dgallion1/doclayout/internal/chunker"
	"github.com/dgallion1/doclayout/internal/config"
	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := config.Load()

	// Parse CLI flags; configuration supplies the defaults.
	var (
		in            = flag.String("in", "", "directory of PDFs to process (or pass PDF paths as arguments)")
		docType       = flag.String("doc-type", "", "force a document type: notice, pitch_deck or ir_deck")
		chunking      = flag.Bool("chunking", cfg.UseChunking, "split documents into page chunks")
		pagesPerChunk = flag.Int("pages-per-chunk", cfg.PagesPerChunk, "pages per chunk when chunking")
		out           = flag.String("out", cfg.OutputDir, "output directory for artifacts and reports")
		xlsx          = flag.Bool("xlsx", true, "write an XLSX batch summary to the output directory")
	)
	flag.Parse()

	paths, err := collectPDFs(*in, flag.Args())
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		printError("Error: no PDF files given; use --in DIR or pass paths\n")
		os.Exit(1)
	}

	dt, err := docmodel.ParseDocumentType(*docType)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *chunking && *pagesPerChunk <= 0 {
		printError("Error: --pages-per-chunk must be positive\n")
		os.Exit(1)
	}
	cfg.OutputDir = *out

	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := pipeline.Options{
		DocType:  dt,
		Chunking: chunker.Config{Enabled: *chunking, PagesPerChunk: *pagesPerChunk},
	}
	logger.Info("starting batch", "documents", len(paths), "chunking", *chunking, "out", *out)

	outcomes := a.Runner.RunBatch(ctx, paths, opts)

	if *xlsx {
		path, err := a.Runner.WriteBatchSummary(outcomes, time.Now())
		if err != nil {
			logger.Error("failed to write batch summary", "error", err)
		} else {
			logger.Info("batch summary written", "path", path)
		}
	}

	for _, o := range outcomes {
		if o.Status == docmodel.OutcomeFailed {
			a.Close()
			os.Exit(1)
		}
	}
}

// collectPDFs returns the PDFs in dir (non-recursive) followed by args,
// sorted and deduplicated.
func collectPDFs(dir string, args []string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read --in directory: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				add(filepath.Join(dir, e.Name()))
			}
		}
	}
	for _, a := range args {
		add(a)
	}
	sort.Strings(paths)
	return paths, nil
}
