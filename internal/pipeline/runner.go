// Package pipeline streams every source complaint through extraction and
// enrichment, committing results in bounded atomic batches.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"denuncia_pipeline/internal/enrich"
	"denuncia_pipeline/internal/extract"
	"denuncia_pipeline/internal/logger"
	"denuncia_pipeline/internal/metrics"
	"denuncia_pipeline/internal/store"
)

// Source streams every document of the source collection in store order.
type Source interface {
	Stream(ctx context.Context, fn func(store.Document) error) error
}

// Batch stages destination upserts and commits them atomically.
type Batch interface {
	Set(id string, fields map[string]any)
	Len() int
	Commit(ctx context.Context) error
}

// CredentialSource resolves the model API key at the start of a run.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

// Extractor produces an annotation for one transcript.
type Extractor interface {
	Extract(ctx context.Context, text, reportDate string) (extract.Annotation, error)
}

// RunRecorder persists per-run bookkeeping. May be nil.
type RunRecorder interface {
	StartRun(ctx context.Context, runID string, ts time.Time) error
	FinishRun(ctx context.Context, runID, status string, processed, batches int, lastErr *string, ts time.Time) error
}

// Config carries the explicit pacing and batching knobs.
type Config struct {
	BatchLimit  int
	PacingDelay time.Duration
}

// Summary reports a completed run.
type Summary struct {
	RunID     string
	Processed int
	Batches   int
}

// Runner drives the pipeline. One record at a time, fully sequential; the
// only suspension points are the pacing delay and the extractor backoff.
type Runner struct {
	source       Source
	newBatch     func() Batch
	creds        CredentialSource
	newExtractor func(apiKey string) Extractor
	runs         RunRecorder
	cfg          Config
	log          *logger.Logger

	// Sleep is replaceable so tests run without real delays.
	Sleep func(time.Duration)
}

func New(source Source, newBatch func() Batch, creds CredentialSource, newExtractor func(string) Extractor, runs RunRecorder, cfg Config, log *logger.Logger) *Runner {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 400
	}
	return &Runner{
		source:       source,
		newBatch:     newBatch,
		creds:        creds,
		newExtractor: newExtractor,
		runs:         runs,
		cfg:          cfg,
		log:          log,
		Sleep:        time.Sleep,
	}
}

// Run processes every source record once. A missing credential is fatal
// before any record is touched; a failed extraction degrades that record
// only; a store error aborts the run, keeping batches already committed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := uuid.New().String()
	runLog := r.log.WithRun(runID)
	metrics.IncRunStarted()
	if r.runs != nil {
		if err := r.runs.StartRun(ctx, runID, time.Now().UTC()); err != nil {
			runLog.WithError(err).Warn("run bookkeeping unavailable")
		}
	}

	summary, err := r.run(ctx, runID, runLog)
	if r.runs != nil {
		status := "ok"
		var lastErr *string
		if err != nil {
			status = "failed"
			msg := err.Error()
			lastErr = &msg
		}
		_ = r.runs.FinishRun(ctx, runID, status, summary.Processed, summary.Batches, lastErr, time.Now().UTC())
	}
	if err != nil {
		metrics.IncRunFailed()
		runLog.WithError(err).Error("pipeline run failed")
		return summary, err
	}
	runLog.WithField("processed", summary.Processed).WithField("batches", summary.Batches).Info("pipeline run complete")
	return summary, nil
}

func (r *Runner) run(ctx context.Context, runID string, runLog *logrus.Entry) (Summary, error) {
	summary := Summary{RunID: runID}

	apiKey, err := r.creds.APIKey(ctx)
	if err != nil {
		return summary, fmt.Errorf("retrieve api key: %w", err)
	}
	extractor := r.newExtractor(apiKey)

	batch := r.newBatch()
	streamErr := r.source.Stream(ctx, func(doc store.Document) error {
		transcript, _ := doc.Fields["Transcript"].(string)
		reportDate := stringField(doc.Fields, "Date", "Fecha desconocida")
		runLog.WithField("doc_id", doc.ID).Debug("processing document")

		var ann extract.Annotation
		var extractErr error
		if transcript != "" {
			ann, extractErr = extractor.Extract(ctx, transcript, reportDate)
			if extractErr != nil {
				metrics.IncExtractionFailed()
				runLog.WithField("doc_id", doc.ID).WithError(extractErr).Warn("extraction degraded")
			}
		}

		enriched := enrich.Apply(doc, ann, extractErr)
		batch.Set(enriched.ID, enriched.Fields)
		summary.Processed++
		metrics.IncProcessed()

		if r.cfg.PacingDelay > 0 {
			r.Sleep(r.cfg.PacingDelay)
		}

		if batch.Len() >= r.cfg.BatchLimit {
			if err := batch.Commit(ctx); err != nil {
				return fmt.Errorf("commit batch: %w", err)
			}
			summary.Batches++
			metrics.IncBatchCommitted()
			batch = r.newBatch()
		}
		return nil
	})
	if streamErr != nil {
		return summary, streamErr
	}

	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return summary, fmt.Errorf("commit final batch: %w", err)
		}
		summary.Batches++
		metrics.IncBatchCommitted()
	}
	return summary, nil
}

func stringField(fields map[string]any, key, def string) string {
	if v, ok := fields[key].(string); ok && v != "" {
		return v
	}
	return def
}
