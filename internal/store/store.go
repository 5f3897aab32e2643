package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite access for document collections and run bookkeeping.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            doc_id TEXT NOT NULL,
            fields_json TEXT NOT NULL,
            created_at TIMESTAMP,
            updated_at TIMESTAMP,
            PRIMARY KEY (collection, doc_id)
        );`,
		`CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            status TEXT,
            processed INTEGER,
            batches INTEGER,
            last_error TEXT,
            started_at TIMESTAMP,
            finished_at TIMESTAMP
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Document is one schema-less record addressed by an opaque identifier.
type Document struct {
	ID     string
	Fields map[string]any
}

// Collection is a named set of documents within the store.
type Collection struct {
	db   *sql.DB
	name string
}

func (s *Store) Collection(name string) *Collection {
	return &Collection{db: s.db, name: name}
}

func (c *Collection) Name() string { return c.name }

// Stream walks every document in store order and invokes fn for each.
// A non-nil error from fn stops the walk and is returned unchanged.
func (c *Collection) Stream(ctx context.Context, fn func(Document) error) error {
	rows, err := c.db.QueryContext(ctx, `SELECT doc_id, fields_json FROM documents WHERE collection=?`, c.name)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var doc Document
		var raw string
		if err := rows.Scan(&doc.ID, &raw); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(raw), &doc.Fields); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Get fetches a single document, reporting whether it exists.
func (c *Collection) Get(ctx context.Context, id string) (Document, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT fields_json FROM documents WHERE collection=? AND doc_id=?`, c.name, id)
	var raw string
	switch err := row.Scan(&raw); err {
	case nil:
	case sql.ErrNoRows:
		return Document{}, false, nil
	default:
		return Document{}, false, err
	}
	doc := Document{ID: id}
	if err := json.Unmarshal([]byte(raw), &doc.Fields); err != nil {
		return Document{}, false, fmt.Errorf("document %s: %w", id, err)
	}
	return doc, true, nil
}

// Upsert writes a single document outside any batch.
func (c *Collection) Upsert(ctx context.Context, doc Document, ts time.Time) error {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, upsertSQL, c.name, doc.ID, string(raw), ts, ts)
	return err
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	row := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection=?`, c.name)
	var n int
	err := row.Scan(&n)
	return n, err
}

const upsertSQL = `INSERT INTO documents(collection, doc_id, fields_json, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?)
        ON CONFLICT(collection, doc_id) DO UPDATE SET fields_json=excluded.fields_json, updated_at=excluded.updated_at`

type staged struct {
	id     string
	fields map[string]any
}

// Batch accumulates pending upserts and commits them in one transaction.
// Nothing is visible to readers before Commit returns.
type Batch struct {
	col    *Collection
	writes []staged
}

func (c *Collection) NewBatch() *Batch {
	return &Batch{col: c}
}

// Set stages one upsert. Staging the same identifier twice keeps both
// writes; the later one wins on commit.
func (b *Batch) Set(id string, fields map[string]any) {
	b.writes = append(b.writes, staged{id: id, fields: fields})
}

func (b *Batch) Len() int { return len(b.writes) }

// Commit writes every staged document atomically and resets the batch.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	tx, err := b.col.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	ts := time.Now().UTC()
	for _, w := range b.writes {
		raw, err := json.Marshal(w.fields)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("document %s: %w", w.id, err)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, b.col.name, w.id, string(raw), ts, ts); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	b.writes = nil
	return nil
}

// Run records one pipeline execution.
type Run struct {
	RunID      string     `json:"run_id"`
	Status     string     `json:"status"`
	Processed  int        `json:"processed"`
	Batches    int        `json:"batches"`
	LastError  *string    `json:"last_error"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func (s *Store) StartRun(ctx context.Context, runID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, status, processed, batches, started_at) VALUES(?, 'running', 0, 0, ?)`, runID, ts)
	return err
}

func (s *Store) FinishRun(ctx context.Context, runID, status string, processed, batches int, lastErr *string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status=?, processed=?, batches=?, last_error=?, finished_at=? WHERE run_id=?`,
		status, processed, batches, lastErr, ts, runID)
	return err
}

// LastRun returns the most recently started run, or nil when none exist.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, status, processed, batches, last_error, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT 1`)
	var r Run
	var lastErr sql.NullString
	var finished sql.NullTime
	switch err := row.Scan(&r.RunID, &r.Status, &r.Processed, &r.Batches, &lastErr, &r.StartedAt, &finished); err {
	case nil:
		if lastErr.Valid {
			r.LastError = &lastErr.String
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		return &r, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
}
