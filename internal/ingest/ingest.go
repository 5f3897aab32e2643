// Package ingest loads complaint JSON files into the source collection.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"denuncia_pipeline/internal/store"
)

// File parses one JSON object file and upserts it as a source document.
// The document identifier is the file name without its extension.
func File(ctx context.Context, col *store.Collection, path string, ts time.Time) (store.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Document{}, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return store.Document{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	doc := store.Document{ID: DocID(path), Fields: fields}
	if err := col.Upsert(ctx, doc, ts); err != nil {
		return store.Document{}, err
	}
	return doc, nil
}

// DocID derives the document identifier from a file path.
func DocID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
