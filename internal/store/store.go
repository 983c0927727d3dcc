// Package store keeps a ledger of document runs in SQLite or Postgres.
//
// A DSN starting with postgres:// or postgresql:// selects the pgx driver;
// anything else is a SQLite path (":memory:" for tests).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	file        TEXT NOT NULL,
	status      TEXT NOT NULL,
	doc_type    TEXT NOT NULL DEFAULT '',
	rule        TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	pages       INTEGER NOT NULL DEFAULT 0,
	chunks      INTEGER NOT NULL DEFAULT 0,
	entities    INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// Run is one ledger row.
type Run struct {
	ID        string                `json:"id"`
	File      string                `json:"file"`
	Status    string                `json:"status"`
	DocType   docmodel.DocumentType `json:"doc_type,omitempty"`
	Rule      string                `json:"rule,omitempty"`
	Provider  string                `json:"provider,omitempty"`
	Pages     int                   `json:"pages"`
	Chunks    int                   `json:"chunks"`
	Entities  int                   `json:"entities"`
	Error     string                `json:"error,omitempty"`
	Duration  time.Duration         `json:"duration_ns"`
	CreatedAt time.Time             `json:"created_at"`
}

type config struct {
	busyTimeout  int
	maxOpenConns int
	mkdirAll     bool
}

// Option customises Open.
type Option func(*config)

// WithBusyTimeout sets the SQLite busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithMaxOpenConns caps the pool size.
func WithMaxOpenConns(n int) Option { return func(c *config) { c.maxOpenConns = n } }

// WithMkdirAll creates the parent directory of a SQLite path.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// Store writes and reads runs.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open connects, applies SQLite pragmas when relevant, and creates the
// schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: 10_000}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Store{postgres: isPostgres(dsn)}
	driver := "sqlite"
	if s.postgres {
		driver = "pgx"
	} else if cfg.mkdirAll && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if dsn == ":memory:" {
		cfg.maxOpenConns = 1
	}
	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	s.db = db

	if !s.postgres {
		if err := s.applyPragmas(cfg); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return s, nil
}

func (s *Store) applyPragmas(cfg config) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordRun inserts or replaces a run.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	q := s.rebind(`INSERT INTO runs (id, file, status, doc_type, rule, provider, pages, chunks, entities, error, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	status = excluded.status, doc_type = excluded.doc_type, rule = excluded.rule,
	pages = excluded.pages, chunks = excluded.chunks, entities = excluded.entities,
	error = excluded.error, duration_ms = excluded.duration_ms`)
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.File, r.Status, string(r.DocType), r.Rule, r.Provider,
		r.Pages, r.Chunks, r.Entities, r.Error, r.Duration.Milliseconds(), r.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

const selectRuns = `SELECT id, file, status, doc_type, rule, provider, pages, chunks, entities, error, duration_ms, created_at FROM runs`

// GetRun returns the run with id, or sql.ErrNoRows.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectRuns+` WHERE id = ?`), id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(selectRuns+` ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r          Run
		docType    string
		durationMs int64
		createdAt  int64
	)
	err := sc.Scan(&r.ID, &r.File, &r.Status, &docType, &r.Rule, &r.Provider,
		&r.Pages, &r.Chunks, &r.Entities, &r.Error, &durationMs, &createdAt)
	if err != nil {
		return Run{}, err
	}
	r.DocType = docmodel.DocumentType(docType)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	return r, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(q string) string {
	if !s.postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
