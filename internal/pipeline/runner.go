package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/doclayout/internal/analysis"
	"github.com/dgallion1/doclayout/internal/artifact"
	"github.com/dgallion1/doclayout/internal/bio"
	"github.com/dgallion1/doclayout/internal/chunker"
	"github.com/dgallion1/doclayout/internal/classify"
	"github.com/dgallion1/doclayout/internal/config"
	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/enhance"
	"github.com/dgallion1/doclayout/internal/labeling"
	"github.com/dgallion1/doclayout/internal/merge"
	"github.com/dgallion1/doclayout/internal/pdfsplit"
	"github.com/dgallion1/doclayout/internal/report"
	"github.com/dgallion1/doclayout/internal/store"
)

// Options are per-document run settings.
type Options struct {
	DocType  docmodel.DocumentType // empty: classify automatically
	Chunking chunker.Config
}

// Result is the outcome of one successful document run.
type Result struct {
	RunID     string                   `json:"run_id"`
	File      string                   `json:"file"`
	DocType   docmodel.DocumentType    `json:"doc_type"`
	Rule      string                   `json:"classification_rule"`
	Document  *docmodel.MergedDocument `json:"document"`
	Labels    []string                 `json:"labels"`
	Input     labeling.Input           `json:"-"`
	Entities  []docmodel.Entity        `json:"entities"`
	Chunks    int                      `json:"chunks"`
	Artifacts []string                 `json:"artifacts"`
	Duration  time.Duration            `json:"duration_ns"`
}

// RunnerConfig wires a Runner. Labeler, Writer and Store are optional.
type RunnerConfig struct {
	Analyzer            analysis.Analyzer
	Labeler             labeling.Labeler
	Decoder             bio.Decoder
	LabelSets           config.LabelSets
	Writer              *artifact.Writer
	Store               *store.Store
	Stats               *ProviderStats
	Processor           string
	MaxConcurrentChunks int
	MaxLength           int
	ReportFormats       []string
}

// Runner executes the full pipeline for single documents and batches.
type Runner struct {
	cfg RunnerConfig
	log *slog.Logger
}

func NewRunner(cfg RunnerConfig, log *slog.Logger) *Runner {
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = 1
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = labeling.DefaultMaxLength
	}
	if cfg.Stats == nil {
		cfg.Stats = NewProviderStats(time.Hour)
	}
	if cfg.LabelSets.Types == nil {
		cfg.LabelSets = config.DefaultLabelSets()
	}
	if cfg.Processor == "" {
		cfg.Processor = config.ProcessorOCR
	}
	return &Runner{cfg: cfg, log: log}
}

// Stats returns the provider latency windows.
func (r *Runner) Stats() *ProviderStats { return r.cfg.Stats }

// Store returns the run ledger, or nil.
func (r *Runner) Store() *store.Store { return r.cfg.Store }

// RunDocument analyzes one PDF end to end. progress may be nil.
func (r *Runner) RunDocument(ctx context.Context, name string, data []byte, opts Options, progress Progress) (*Result, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	start := time.Now()
	res := &Result{RunID: newID(), File: name, Artifacts: []string{}}
	log := r.log.With("run_id", res.RunID, "file", name)

	err := r.run(ctx, log, data, opts, progress, res)
	res.Duration = time.Since(start)
	r.record(ctx, log, res, err)
	if err != nil {
		log.Error("document failed", "error", err, "duration", res.Duration)
		return nil, err
	}
	log.Info("document complete", "doc_type", res.DocType, "pages", res.Document.Metadata.TotalPages,
		"entities", len(res.Entities), "duration", res.Duration)
	return res, nil
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, data []byte, opts Options, progress Progress, res *Result) error {
	stem := artifact.Stem(res.File)
	var out *artifact.Writer
	if r.cfg.Writer != nil {
		out = r.cfg.Writer.ForRun(res.RunID)
	}

	// Phase 1: Split
	progress.SetStatus(StatusSplitting, "splitting")
	total, err := pdfsplit.PageCount(data)
	if err != nil {
		return &docmodel.AppError{Code: docmodel.ErrInvalidInput, Message: "unreadable pdf", Cause: err}
	}
	if total == 0 {
		return docmodel.InvalidInputf("pdf has no pages")
	}
	ranges, err := chunker.Plan(total, opts.Chunking)
	if err != nil {
		return err
	}
	res.Chunks = len(ranges)
	progress.SetTotalChunks(len(ranges))
	log.Info("split document", "pages", total, "chunks", len(ranges))

	// Phase 2: Analyze chunks with bounded concurrency.
	progress.SetStatus(StatusAnalyzing, "analyzing")
	chunks, err := r.analyzeChunks(ctx, log, out, stem, data, ranges, progress, res)
	if err != nil {
		return err
	}

	// Phase 3: Merge
	progress.SetStatus(StatusMerging, "merging")
	doc, err := merge.Merge(chunks)
	if err != nil {
		return err
	}
	res.Document = doc
	if out != nil {
		path, err := out.WriteMerged(stem, r.cfg.Processor, doc)
		if err != nil {
			return fmt.Errorf("write merged result: %w", err)
		}
		res.Artifacts = append(res.Artifacts, path)
	}

	// Phase 4: Classify
	progress.SetStatus(StatusClassifying, "classifying")
	if opts.DocType != "" {
		res.DocType, res.Rule = opts.DocType, "override"
	} else {
		res.DocType, res.Rule = classify.Explain(doc)
	}
	res.Labels = r.cfg.LabelSets.Labels(res.DocType)
	log.Info("classified document", "doc_type", res.DocType, "rule", res.Rule)

	// Phase 5: Label tokens and aggregate entities.
	progress.SetStatus(StatusLabeling, "labeling")
	res.Input = labeling.PrepareInput(doc, r.cfg.MaxLength)
	res.Entities = []docmodel.Entity{}
	if r.cfg.Labeler != nil && res.Input.Len() > 0 {
		preds, err := r.predict(ctx, log, res.Input, res.Labels)
		if err != nil {
			return err
		}
		res.Entities = bio.Aggregate(preds, r.cfg.Decoder)
		log.Info("labeled tokens", "tokens", res.Input.Len(), "truncated", res.Input.Truncated, "entities", len(res.Entities))
	}

	// Phase 6: Artifacts and reports.
	progress.SetStatus(StatusReporting, "reporting")
	return r.writeOutputs(out, stem, res)
}

func (r *Runner) analyzeChunks(ctx context.Context, log *slog.Logger, out *artifact.Writer, stem string, data []byte,
	ranges []docmodel.PageRange, progress Progress, res *Result) ([]docmodel.ChunkResult, error) {
	// Each result is stored in its chunk's slot.
	results := make([]docmodel.ChunkResult, len(ranges))
	paths := make([]string, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrentChunks)
	for i, pr := range ranges {
		g.Go(func() error {
			pdf := data
			if len(ranges) > 1 {
				var err error
				if pdf, err = pdfsplit.Extract(data, pr); err != nil {
					return fmt.Errorf("chunk %d: %w", i+1, err)
				}
			}
			req := analysis.Request{Index: i, Range: pr, PDF: pdf, Filename: pdfsplit.ChunkFileName(stem, i) + ".pdf"}
			c, err := withRetry(gctx, log.With("chunk", i+1), func() (*docmodel.ChunkResult, error) {
				started := time.Now()
				c, err := r.cfg.Analyzer.Analyze(gctx, req)
				r.cfg.Stats.Analysis.Record(time.Since(started), err)
				return c, err
			})
			if err == nil && c == nil {
				err = errors.New("empty result")
			}
			if err != nil {
				return docmodel.NewProviderError(r.cfg.Analyzer.Name(), i, pr, err)
			}

			c.Index, c.Range = i, pr
			enhance.Apply(c)
			results[i] = *c
			if out != nil {
				if paths[i], err = out.WriteChunk(stem, *c); err != nil {
					return fmt.Errorf("write chunk %d: %w", i+1, err)
				}
			}
			progress.IncrChunksProcessed()
			log.Info("chunk analyzed", "chunk", i+1, "of", len(ranges), "pages", pr.Selection())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, p := range paths {
		if p != "" {
			res.Artifacts = append(res.Artifacts, p)
		}
	}
	return results, nil
}

func (r *Runner) predict(ctx context.Context, log *slog.Logger, in labeling.Input, labels []string) ([]docmodel.LabelPrediction, error) {
	return withRetry(ctx, log, func() ([]docmodel.LabelPrediction, error) {
		started := time.Now()
		preds, err := r.cfg.Labeler.Predict(ctx, in, labels)
		r.cfg.Stats.Labeling.Record(time.Since(started), err)
		return preds, err
	})
}

func (r *Runner) writeOutputs(out *artifact.Writer, stem string, res *Result) error {
	if out == nil {
		return nil
	}
	path, err := out.WriteLayout(stem, artifact.LayoutResult{
		File:         res.File,
		DocumentType: res.DocType,
		Rule:         res.Rule,
		Labels:       res.Labels,
		InputTokens:  res.Input.Len(),
		TotalTokens:  res.Input.TotalTokens,
		Truncated:    res.Input.Truncated,
		Entities:     res.Entities,
	})
	if err != nil {
		return fmt.Errorf("write layout result: %w", err)
	}
	res.Artifacts = append(res.Artifacts, path)

	data := report.Data{
		File:        res.File,
		DocType:     res.DocType,
		Rule:        res.Rule,
		Processor:   r.cfg.Processor,
		Doc:         res.Document,
		Labels:      res.Labels,
		InputTokens: res.Input.Len(),
		Truncated:   res.Input.Truncated,
		Entities:    res.Entities,
		GeneratedAt: time.Now(),
	}
	for _, format := range r.cfg.ReportFormats {
		body, err := report.Render(format, data)
		if err != nil {
			return fmt.Errorf("render %s report: %w", format, err)
		}
		path := out.ReportPath(stem, format)
		if err := artifact.WriteFile(path, body); err != nil {
			return err
		}
		res.Artifacts = append(res.Artifacts, path)
	}
	return nil
}

// record writes the run to the ledger. Ledger failures are logged only.
func (r *Runner) record(ctx context.Context, log *slog.Logger, res *Result, runErr error) {
	if r.cfg.Store == nil {
		return
	}
	run := store.Run{
		ID:       res.RunID,
		File:     res.File,
		Status:   docmodel.OutcomeSuccess,
		DocType:  res.DocType,
		Rule:     res.Rule,
		Provider: r.cfg.Analyzer.Name(),
		Chunks:   res.Chunks,
		Entities: len(res.Entities),
		Duration: res.Duration,
	}
	if res.Document != nil {
		run.Pages = res.Document.Metadata.TotalPages
	}
	if runErr != nil {
		run.Status = docmodel.OutcomeFailed
		run.Error = runErr.Error()
	}
	// Record even when ctx was cancelled.
	if err := r.cfg.Store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("ledger write failed", "error", err)
	}
}

// RunBatch processes paths one at a time. A failed document is recorded in
// its outcome and the batch continues.
func (r *Runner) RunBatch(ctx context.Context, paths []string, opts Options) []docmodel.DocumentOutcome {
	outcomes := make([]docmodel.DocumentOutcome, 0, len(paths))
	for i, path := range paths {
		if ctx.Err() != nil {
			outcomes = append(outcomes, docmodel.DocumentOutcome{Path: path, Status: docmodel.OutcomeFailed, Error: ctx.Err().Error()})
			continue
		}
		r.log.Info("batch document", "index", i+1, "of", len(paths), "file", filepath.Base(path))
		outcomes = append(outcomes, r.runFile(ctx, path, opts))
	}

	failed := 0
	for _, o := range outcomes {
		if o.Status == docmodel.OutcomeFailed {
			failed++
			r.log.Error("batch document failed", "file", filepath.Base(o.Path), "error", o.Error)
		}
	}
	r.log.Info("batch complete", "total", len(outcomes), "succeeded", len(outcomes)-failed, "failed", failed)
	return outcomes
}

func (r *Runner) runFile(ctx context.Context, path string, opts Options) docmodel.DocumentOutcome {
	start := time.Now()
	out := docmodel.DocumentOutcome{Path: path, Status: docmodel.OutcomeFailed}

	data, err := os.ReadFile(path)
	if err != nil {
		out.Error = err.Error()
		out.Duration = time.Since(start)
		return out
	}
	res, err := r.RunDocument(ctx, filepath.Base(path), data, opts, nil)
	out.Duration = time.Since(start)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Status = docmodel.OutcomeSuccess
	out.DocType = res.DocType
	out.Pages = res.Document.Metadata.TotalPages
	out.Chunks = res.Chunks
	out.Entities = len(res.Entities)
	return out
}

// WriteBatchSummary writes the XLSX summary for outcomes into the output
// directory and returns its path.
func (r *Runner) WriteBatchSummary(outcomes []docmodel.DocumentOutcome, at time.Time) (string, error) {
	if r.cfg.Writer == nil {
		return "", errors.New("no output directory configured")
	}
	data, err := report.BatchXLSX(outcomes)
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.cfg.Writer.Dir(), report.SummaryFileName(at))
	if err := artifact.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}
