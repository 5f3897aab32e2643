// Package enrich maps a source complaint plus an extraction outcome into
// the destination record. Pure: no I/O, deterministic.
package enrich

import (
	"errors"
	"strings"

	"denuncia_pipeline/internal/extract"
	"denuncia_pipeline/internal/store"
)

// Destination field names.
const (
	FieldSintesis      = "Síntesis"
	FieldTiempo        = "Tiempo"
	FieldModo          = "Modo"
	FieldCircunstancia = "Circunstancia"
	FieldAlcaldia      = "Alcaldía"
	FieldEsAnonima     = "¿Es anónima?"
	FieldRegistro      = "Registro"
)

// Classification labels for the Registro field.
const (
	RegistroAviso    = "Aviso"
	RegistroDenuncia = "Denuncia"
)

// NotApplicable marks every derived field when there is no transcript.
const NotApplicable = "N/A"

var derivedFields = []string{
	FieldSintesis, FieldTiempo, FieldModo,
	FieldCircunstancia, FieldAlcaldia, FieldEsAnonima,
}

// Apply produces the enriched record for one source document.
//
//   - Empty transcript: every derived field and Registro become "N/A";
//     extraction is never attempted in that case.
//   - Extraction error: every derived field carries an "Error: <msg>"
//     marker so the failure stays visible, and the record is still written.
//   - Missing credential: the source fields pass through unenriched.
//   - Otherwise the annotation fields are copied and Registro is "Aviso"
//     exactly when the anonymity answer normalizes to "SI".
func Apply(src store.Document, ann extract.Annotation, extractErr error) store.Document {
	out := store.Document{ID: src.ID, Fields: make(map[string]any, len(src.Fields)+7)}
	for k, v := range src.Fields {
		out.Fields[k] = v
	}

	transcript, _ := src.Fields["Transcript"].(string)
	if strings.TrimSpace(transcript) == "" {
		for _, f := range derivedFields {
			out.Fields[f] = NotApplicable
		}
		out.Fields[FieldRegistro] = NotApplicable
		return out
	}

	if errors.Is(extractErr, extract.ErrNoCredential) {
		return out
	}

	if extractErr != nil {
		marker := "Error: " + extractErr.Error()
		for _, f := range derivedFields {
			out.Fields[f] = marker
		}
		out.Fields[FieldRegistro] = RegistroDenuncia
		return out
	}

	out.Fields[FieldSintesis] = ann.Sintesis
	out.Fields[FieldTiempo] = ann.Tiempo
	out.Fields[FieldModo] = ann.Modo
	out.Fields[FieldCircunstancia] = ann.Circunstancia
	out.Fields[FieldAlcaldia] = ann.Alcaldia

	esAnonima := strings.ToUpper(strings.TrimSpace(ann.EsAnonima))
	out.Fields[FieldEsAnonima] = esAnonima
	if esAnonima == "SI" {
		out.Fields[FieldRegistro] = RegistroAviso
	} else {
		out.Fields[FieldRegistro] = RegistroDenuncia
	}
	return out
}
