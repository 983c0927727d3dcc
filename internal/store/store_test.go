package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGetRun(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	run := Run{
		ID:        "run-1",
		File:      "deck.pdf",
		Status:    docmodel.OutcomeSuccess,
		DocType:   docmodel.TypeIRDeck,
		Rule:      "currency_count",
		Provider:  "local",
		Pages:     31,
		Chunks:    3,
		Entities:  12,
		Duration:  2500 * time.Millisecond,
		CreatedAt: created,
	}
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != run {
		t.Errorf("round trip:\n got %+v\nwant %+v", got, run)
	}
}

func TestRecordRunUpserts(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	if err := s.RecordRun(ctx, Run{ID: "r", File: "a.pdf", Status: "running"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.RecordRun(ctx, Run{ID: "r", File: "a.pdf", Status: docmodel.OutcomeFailed, Error: "boom"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetRun(ctx, "r")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != docmodel.OutcomeFailed || got.Error != "boom" {
		t.Errorf("run = %+v", got)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openMemory(t)
	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestRecentRuns(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.RecordRun(ctx, Run{ID: id, File: id + ".pdf", Status: "success", CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	runs, err := s.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("runs = %+v", runs)
	}

	all, err := s.RecentRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Errorf("default limit: %d runs, %v", len(all), err)
	}
}

func TestOpenFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "runs.db")
	s, err := Open(path, WithMkdirAll(), WithBusyTimeout(500))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{postgres: true}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &Store{}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
	if !isPostgres("postgresql://u@h/db") || isPostgres("data/runs.db") {
		t.Error("isPostgres misclassified")
	}
}
