package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"denuncia_pipeline/internal/gemini"
)

const validJSON = `{"sintesis":"Resumen","tiempo":"03/10/2025","modo":"WhatsApp","circunstancia":"Licitación","alcaldia":"San Juan","es_anonima":"SI"}`

type scriptedModel struct {
	calls     int
	responses []func() (string, error)
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string) (string, error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx]()
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}
}

func TestParseResponseFenceStripping(t *testing.T) {
	var cases = []struct {
		name string
		raw  string
	}{
		{"bare", validJSON},
		{"json fence", "```json\n" + validJSON + "\n```"},
		{"plain fence", "```\n" + validJSON + "\n```"},
		{"surrounding prose", "Aquí está el resultado:\n" + validJSON + "\nSaludos."},
	}
	for _, tc := range cases {
		ann, err := ParseResponse(tc.raw)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if ann.Sintesis != "Resumen" || ann.EsAnonima != "SI" {
			t.Fatalf("%s: unexpected annotation %+v", tc.name, ann)
		}
	}
}

func TestParseResponseRejectsNonJSON(t *testing.T) {
	if _, err := ParseResponse("lo siento, no puedo ayudar"); err == nil {
		t.Fatalf("expected error for non-JSON response")
	}
}

func TestExtractSucceedsAfterRateLimits(t *testing.T) {
	model := &scriptedModel{responses: []func() (string, error){
		func() (string, error) { return "", gemini.ErrRateLimited },
		func() (string, error) { return "", gemini.ErrRateLimited },
		func() (string, error) { return validJSON, nil },
	}}
	ex := New(model, testPolicy(), "")
	ann, err := ex.Extract(context.Background(), "texto", "03/10/2025")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", model.calls)
	}
	if ann.Alcaldia != "San Juan" {
		t.Fatalf("unexpected annotation %+v", ann)
	}
}

func TestExtractRateLimitExhaustion(t *testing.T) {
	model := &scriptedModel{responses: []func() (string, error){
		func() (string, error) { return "", gemini.ErrRateLimited },
	}}
	ex := New(model, testPolicy(), "")
	_, err := ex.Extract(context.Background(), "texto", "03/10/2025")
	if !errors.Is(err, gemini.ErrRateLimited) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
	if model.calls != 3 {
		t.Fatalf("expected 3 attempts before giving up, got %d", model.calls)
	}
}

func TestExtractDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("model exploded")
	model := &scriptedModel{responses: []func() (string, error){
		func() (string, error) { return "", boom },
	}}
	ex := New(model, testPolicy(), "")
	_, err := ex.Extract(context.Background(), "texto", "03/10/2025")
	if !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", model.calls)
	}
}

func TestExtractMalformedJSONIsPermanent(t *testing.T) {
	model := &scriptedModel{responses: []func() (string, error){
		func() (string, error) { return "esto no es json", nil },
	}}
	ex := New(model, testPolicy(), "")
	_, err := ex.Extract(context.Background(), "texto", "03/10/2025")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if model.calls != 1 {
		t.Fatalf("parse failures must not be retried, got %d attempts", model.calls)
	}
}

func TestExtractWithoutModel(t *testing.T) {
	ex := New(nil, testPolicy(), "")
	_, err := ex.Extract(context.Background(), "texto", "03/10/2025")
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestRetryScheduleDoubles(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: 5 * time.Second}
	s := p.Schedule()
	if d := s.NextBackOff(); d != 5*time.Second {
		t.Fatalf("first delay = %v, want 5s", d)
	}
	if d := s.NextBackOff(); d != 10*time.Second {
		t.Fatalf("second delay = %v, want 10s", d)
	}
	if d := s.NextBackOff(); d != backoff.Stop {
		t.Fatalf("expected Stop after max attempts, got %v", d)
	}
}
