package pipeline

import (
	"context"
	"log/slog"
)

// Worker processes queued jobs with a shared Runner.
type Worker struct {
	runner *Runner
	log    *slog.Logger
}

func NewWorker(runner *Runner, log *slog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// Process runs the full pipeline for a job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file", job.Filename)
	log.Info("job started", "content_hash", job.ContentHash)

	res, err := w.runner.RunDocument(ctx, job.Filename, job.FileData(), job.Options(), job)
	if err != nil {
		phase := job.Snapshot().Phase
		log.Error("job failed", "phase", phase, "error", err)
		job.Fail(phase, err)
		return
	}
	job.Complete(res)
	log.Info("job completed", "run_id", res.RunID, "doc_type", res.DocType, "entities", len(res.Entities))
}
