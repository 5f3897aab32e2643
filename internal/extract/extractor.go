// Package extract synthesizes structured annotations from complaint
// transcripts with a generative-language model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"denuncia_pipeline/internal/gemini"
)

// ErrNoCredential is returned when the extractor was built without a model.
var ErrNoCredential = errors.New("extract: no credential supplied")

// Annotation is the structured result synthesized from one transcript.
type Annotation struct {
	Sintesis      string `json:"sintesis"`
	Tiempo        string `json:"tiempo"`
	Modo          string `json:"modo"`
	Circunstancia string `json:"circunstancia"`
	Alcaldia      string `json:"alcaldia"`
	EsAnonima     string `json:"es_anonima"`
}

// Model is the language-model collaborator: one prompt in, raw text out.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RetryPolicy bounds recovery from rate-limit failures. MaxAttempts counts
// the first call, so 3 attempts means at most 2 backoff waits.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// Schedule returns the backoff sequence for the policy: InitialDelay
// doubling on every retry, no jitter.
func (p RetryPolicy) Schedule() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = p.InitialDelay << 8
	bo.MaxElapsedTime = 0
	bo.Reset()
	return backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1))
}

// Extractor turns a transcript plus report date into an Annotation.
type Extractor struct {
	model      Model
	policy     RetryPolicy
	extraRules string
}

func New(model Model, policy RetryPolicy, extraRules string) *Extractor {
	return &Extractor{model: model, policy: policy, extraRules: extraRules}
}

// Extract builds the prompt, invokes the model with rate-limit retry, and
// parses the JSON annotation out of the raw response. Any error is
// returned to the caller; the extractor never fabricates field values.
func (e *Extractor) Extract(ctx context.Context, text, reportDate string) (Annotation, error) {
	if e == nil || e.model == nil {
		return Annotation{}, ErrNoCredential
	}
	prompt := BuildPrompt(text, reportDate, Weekday(reportDate), e.extraRules)

	var ann Annotation
	op := func() error {
		raw, err := e.model.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, gemini.ErrRateLimited) {
				return err
			}
			return backoff.Permanent(err)
		}
		parsed, err := ParseResponse(raw)
		if err != nil {
			return backoff.Permanent(err)
		}
		ann = parsed
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(e.policy.Schedule(), ctx)); err != nil {
		return Annotation{}, err
	}
	return ann, nil
}

// ParseResponse strips an optional markdown code fence and decodes the
// JSON object the model was instructed to return.
func ParseResponse(raw string) (Annotation, error) {
	content := strings.TrimSpace(raw)
	if strings.HasPrefix(content, "```json") {
		content = content[len("```json"):]
	} else if strings.HasPrefix(content, "```") {
		content = content[len("```"):]
	}
	if strings.HasSuffix(content, "```") {
		content = content[:len(content)-len("```")]
	}
	content = strings.TrimSpace(content)

	var ann Annotation
	if err := json.Unmarshal([]byte(content), &ann); err == nil {
		return ann, nil
	}
	// The model occasionally wraps the object in prose; fall back to the
	// first balanced JSON object in the response.
	obj := extractJSONObject(content)
	if obj == "" {
		return Annotation{}, fmt.Errorf("no json object in model response")
	}
	if err := json.Unmarshal([]byte(obj), &ann); err != nil {
		return Annotation{}, fmt.Errorf("parse model response: %w", err)
	}
	return ann, nil
}

func extractJSONObject(input string) string {
	start := strings.Index(input, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
