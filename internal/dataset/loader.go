// Package dataset loads complaint spreadsheets into source documents.
package dataset

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"denuncia_pipeline/internal/store"
)

// Load reads the first sheet of an XLSX export. The header row supplies
// the field names; a column named "ID" (any case) supplies the document
// identifier, otherwise one is generated.
func Load(path string) ([]store.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	idIdx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "id") {
			idIdx = i
			break
		}
	}

	var out []store.Document
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		doc := store.Document{Fields: make(map[string]any, len(header))}
		for i, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			val := ""
			if i < len(row) {
				val = strings.TrimSpace(row[i])
			}
			if i == idIdx {
				doc.ID = val
				continue
			}
			doc.Fields[name] = val
		}
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		out = append(out, doc)
	}
	return out, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
