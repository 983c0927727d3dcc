package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/doclayout/internal/testpdf"
)

func waitFor(t *testing.T, job *Job, want JobStatus) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		if snap.Status == want {
			return snap
		}
		if snap.Status == StatusCompleted || snap.Status == StatusFailed {
			t.Fatalf("job ended %s, want %s: %v", snap.Status, want, snap.Progress.Errors)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job did not reach %s", want)
	return JobSnapshot{}
}

func TestOrchestratorCompletesJob(t *testing.T) {
	r, _, _ := newTestRunner(t, newFakeAnalyzer(), &fakeLabeler{})
	o := NewOrchestrator(OrchestratorConfig{WorkerCount: 2, MaxQueueSize: 4}, r, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("deck.pdf", testpdf.Build(deckPages), chunked)
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("submitted job not tracked")
	}

	snap := waitFor(t, job, StatusCompleted)
	if snap.RunID == "" || snap.EntityCount != 1 || snap.Progress.ChunksProcessed != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if job.FileData() != nil {
		t.Error("upload not released")
	}
}

func TestOrchestratorFailsJob(t *testing.T) {
	r, _, _ := newTestRunner(t, newFakeAnalyzer(), nil)
	o := NewOrchestrator(OrchestratorConfig{WorkerCount: 1, MaxQueueSize: 1}, r, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("broken.pdf", []byte("garbage"), Options{})
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := waitFor(t, job, StatusFailed)
	if snap.Phase != "splitting" || len(snap.Progress.Errors) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestOrchestratorQueueFull(t *testing.T) {
	r, _, _ := newTestRunner(t, newFakeAnalyzer(), nil)
	// Not started: nothing drains the queue.
	o := NewOrchestrator(OrchestratorConfig{MaxQueueSize: 1}, r, discardLogger())

	if err := o.Submit(NewJob("a.pdf", nil, Options{})); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob("b.pdf", nil, Options{})
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("rejected job status = %s", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("queue depth = %d", o.QueueDepth())
	}
}
