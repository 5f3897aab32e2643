package app

import (
	"context"
	"net/http"

	"denuncia_pipeline/internal/config"
	"denuncia_pipeline/internal/extract"
	"denuncia_pipeline/internal/gemini"
	"denuncia_pipeline/internal/httpapi"
	"denuncia_pipeline/internal/logger"
	"denuncia_pipeline/internal/pipeline"
	"denuncia_pipeline/internal/secrets"
	"denuncia_pipeline/internal/store"
	"denuncia_pipeline/internal/watch"
)

// App wires the pipeline components together. Every collaborator is
// constructed once here and passed down explicitly.
type App struct {
	cfg     config.Config
	log     *logger.Logger
	store   *store.Store
	runner  *pipeline.Runner
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config, log *logger.Logger) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	source := st.Collection(cfg.SourceCollection)
	dest := st.Collection(cfg.DestCollection)
	creds := secrets.NewClient(cfg)

	newExtractor := func(apiKey string) pipeline.Extractor {
		model := gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiModel, apiKey, cfg.Prompt.Temperature)
		policy := extract.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, InitialDelay: cfg.RetryInitialWait}
		return extract.New(model, policy, cfg.Prompt.ExtraRules)
	}

	runner := pipeline.New(
		source,
		func() pipeline.Batch { return dest.NewBatch() },
		creds,
		newExtractor,
		st,
		pipeline.Config{BatchLimit: cfg.BatchLimit, PacingDelay: cfg.PacingDelay},
		log,
	)

	watcher := watch.New(cfg, source, log)

	mux := http.NewServeMux()
	router := httpapi.NewRouter(cfg, runner, st, log)
	router.Register(mux)

	return &App{cfg: cfg, log: log, store: st, runner: runner, watcher: watcher, mux: mux}, nil
}

// Run starts the watcher and HTTP server, blocking until shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	srv := &http.Server{Addr: ":" + a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	a.log.WithField("addr", srv.Addr).Info("http listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return a.store.Close()
}

func (a *App) Runner() *pipeline.Runner { return a.runner }
func (a *App) Store() *store.Store     { return a.store }
func (a *App) Mux() *http.ServeMux     { return a.mux }
