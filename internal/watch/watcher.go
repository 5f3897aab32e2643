package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"denuncia_pipeline/internal/config"
	"denuncia_pipeline/internal/ingest"
	"denuncia_pipeline/internal/logger"
	"denuncia_pipeline/internal/store"
)

// Watcher monitors DENUNCIAS_DIR for new complaint JSON files and ingests
// them into the source collection.
type Watcher struct {
	cfg    config.Config
	source *store.Collection
	log    *logger.Logger
}

func New(cfg config.Config, source *store.Collection, log *logger.Logger) *Watcher {
	return &Watcher{cfg: cfg, source: source, log: log}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		w.log.Info("watcher disabled")
		return nil
	}
	if err := w.Backfill(ctx); err != nil {
		w.log.WithError(err).Warn("backfill failed")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isComplaintFile(evt.Name) {
					doc, err := ingest.File(ctx, w.source, evt.Name, time.Now().UTC())
					if err != nil {
						w.log.WithError(err).WithField("file", evt.Name).Warn("ingest failed")
						continue
					}
					w.log.WithField("doc_id", doc.ID).Info("denuncia ingested")
				}
			case err := <-watcher.Errors:
				w.log.WithError(err).Warn("watcher error")
			}
		}
	}()
	return watcher.Add(w.cfg.DenunciasDir)
}

// Backfill ingests files already present in the directory.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.cfg.DenunciasDir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !isComplaintFile(e) {
			continue
		}
		if _, err := ingest.File(ctx, w.source, e, time.Now().UTC()); err != nil {
			w.log.WithError(err).WithField("file", e).Warn("backfill ingest failed")
		}
	}
	return nil
}

func isComplaintFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
