package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndGet(t *testing.T) {
	s := openTest(t)
	col := s.Collection("denuncias")
	ctx := context.Background()
	ts := time.Now().UTC()

	doc := Document{ID: "d1", Fields: map[string]any{"Transcript": "texto", "Date": "03/10/2025"}}
	if err := col.Upsert(ctx, doc, ts); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, ok, err := col.Get(ctx, "d1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Fields["Transcript"] != "texto" {
		t.Fatalf("unexpected fields %v", got.Fields)
	}

	// Upsert with the same id overwrites, it never appends.
	doc.Fields["Transcript"] = "texto v2"
	if err := col.Upsert(ctx, doc, ts); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	n, err := col.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count=%d err=%v, want 1", n, err)
	}
	got, _, _ = col.Get(ctx, "d1")
	if got.Fields["Transcript"] != "texto v2" {
		t.Fatalf("upsert did not overwrite: %v", got.Fields)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTest(t)
	_, ok, err := s.Collection("denuncias").Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected missing document")
	}
}

func TestStreamVisitsEveryDocument(t *testing.T) {
	s := openTest(t)
	col := s.Collection("denuncias")
	ctx := context.Background()
	ts := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		if err := col.Upsert(ctx, Document{ID: id, Fields: map[string]any{"n": id}}, ts); err != nil {
			t.Fatal(err)
		}
	}

	seen := map[string]bool{}
	err := col.Stream(ctx, func(d Document) error {
		seen[d.ID] = true
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 documents, saw %v", seen)
	}

	// Collections are isolated from each other.
	other := s.Collection("otra")
	count := 0
	if err := other.Stream(ctx, func(Document) error { count++; return nil }); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected empty collection, saw %d", count)
	}
}

func TestBatchCommit(t *testing.T) {
	s := openTest(t)
	dest := s.Collection("sintesis")
	ctx := context.Background()

	batch := dest.NewBatch()
	batch.Set("d1", map[string]any{"Registro": "Denuncia"})
	batch.Set("d2", map[string]any{"Registro": "Aviso"})
	if batch.Len() != 2 {
		t.Fatalf("len=%d want 2", batch.Len())
	}

	// Nothing visible before commit.
	if n, _ := dest.Count(ctx); n != 0 {
		t.Fatalf("staged writes leaked: count=%d", n)
	}
	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n, _ := dest.Count(ctx); n != 2 {
		t.Fatalf("count=%d want 2", n)
	}

	// Committing the same identifiers again keeps upsert semantics.
	again := dest.NewBatch()
	again.Set("d1", map[string]any{"Registro": "Aviso"})
	if err := again.Commit(ctx); err != nil {
		t.Fatalf("recommit: %v", err)
	}
	if n, _ := dest.Count(ctx); n != 2 {
		t.Fatalf("recommit appended: count=%d", n)
	}
	doc, _, _ := dest.Get(ctx, "d1")
	if doc.Fields["Registro"] != "Aviso" {
		t.Fatalf("recommit did not overwrite: %v", doc.Fields)
	}
}

func TestEmptyBatchCommitIsNoop(t *testing.T) {
	s := openTest(t)
	if err := s.Collection("sintesis").NewBatch().Commit(context.Background()); err != nil {
		t.Fatalf("empty commit: %v", err)
	}
}

func TestRunBookkeeping(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	if err := s.StartRun(ctx, "run-1", start); err != nil {
		t.Fatalf("start run: %v", err)
	}
	msg := "boom"
	if err := s.FinishRun(ctx, "run-1", "failed", 7, 1, &msg, start.Add(time.Minute)); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	last, err := s.LastRun(ctx)
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if last == nil || last.RunID != "run-1" || last.Status != "failed" || last.Processed != 7 {
		t.Fatalf("unexpected run %+v", last)
	}
	if last.LastError == nil || *last.LastError != "boom" {
		t.Fatalf("missing last error: %+v", last)
	}
}

func TestLastRunEmpty(t *testing.T) {
	s := openTest(t)
	last, err := s.LastRun(context.Background())
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil run, got %+v", last)
	}
}
