// Package app wires a pipeline.Runner from configuration for the server and
// batch commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/doclayout/internal/analysis"
	"github.com/dgallion1/doclayout/internal/artifact"
	"github.com/dgallion1/doclayout/internal/bio"
	"github.com/dgallion1/doclayout/internal/config"
	"github.com/dgallion1/doclayout/internal/labeling"
	"github.com/dgallion1/doclayout/internal/pipeline"
	"github.com/dgallion1/doclayout/internal/store"
)

// App holds the runner and the clients it owns.
type App struct {
	Runner *pipeline.Runner

	analyzer analysis.Analyzer
	labeler  *labeling.Client
	store    *store.Store
}

// New builds the analyzer, labeling client, label sets, artifact writer and
// run ledger described by cfg. Labeling is skipped when cfg.LabelingURL is
// empty; the ledger is skipped when cfg.DatabaseURL is empty.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	labels, err := config.LoadLabelSets(cfg.LabelsFile)
	if err != nil {
		return nil, err
	}

	an, err := analysis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("analysis provider: %w", err)
	}
	a := &App{analyzer: an}

	rc := pipeline.RunnerConfig{
		Analyzer:            an,
		Decoder:             bio.DecoderFor(cfg.LabelingTokenizer),
		LabelSets:           labels,
		Writer:              artifact.NewWriter(cfg.OutputDir),
		Processor:           cfg.DocAIProcessor,
		MaxConcurrentChunks: cfg.MaxConcurrentChunks,
		MaxLength:           cfg.LabelingMaxLength,
		ReportFormats:       cfg.ReportFormats,
	}

	if cfg.LabelingURL != "" {
		a.labeler = labeling.NewClient(cfg.LabelingURL, cfg.LabelingAPIKey, cfg.LabelingMaxLength)
		rc.Labeler = a.labeler
	} else {
		log.Warn("LABELING_URL not set, entity labeling disabled")
	}

	if cfg.DatabaseURL != "" {
		st, err := store.Open(cfg.DatabaseURL, store.WithMkdirAll())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("run ledger: %w", err)
		}
		a.store = st
		rc.Store = st
	}

	a.Runner = pipeline.NewRunner(rc, log)
	log.Info("pipeline ready",
		"provider", an.Name(),
		"processor", cfg.DocAIProcessor,
		"labeling", cfg.LabelingURL != "",
		"output_dir", cfg.OutputDir,
	)
	return a, nil
}

// Close releases provider clients and the ledger.
func (a *App) Close() {
	if c, ok := a.analyzer.(io.Closer); ok {
		c.Close()
	}
	if a.labeler != nil {
		a.labeler.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
