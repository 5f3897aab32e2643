package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"denuncia_pipeline/internal/config"
	"denuncia_pipeline/internal/logger"
	"denuncia_pipeline/internal/metrics"
	"denuncia_pipeline/internal/pipeline"
	"denuncia_pipeline/internal/store"
)

const usageHTML = `<h1>Procesador de Denuncias</h1>
<p>Usa POST para procesar denuncias:</p>
<code>curl -X POST https://[TU-URL]</code>
`

// Router exposes the run trigger, health, and status endpoints.
type Router struct {
	cfg    config.Config
	runner *pipeline.Runner
	store  *store.Store
	log    *logger.Logger

	runMu sync.Mutex
}

func NewRouter(cfg config.Config, runner *pipeline.Runner, st *store.Store, log *logger.Logger) *Router {
	return &Router{cfg: cfg, runner: runner, store: st, log: log}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", r.root)
	mux.HandleFunc("/health", r.health)
	mux.HandleFunc("/status", r.status)
}

func (r *Router) root(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}
	switch req.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, usageHTML)
	case http.MethodPost:
		r.process(w, req)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (r *Router) process(w http.ResponseWriter, req *http.Request) {
	reqLog := r.log.WithRequest(req)
	if !r.runMu.TryLock() {
		reqLog.Warn("run already in progress")
		http.Error(w, "Ya hay un proceso en curso.", http.StatusConflict)
		return
	}
	defer r.runMu.Unlock()

	reqLog.Info("starting pipeline run")
	summary, err := r.runner.Run(req.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		reqLog.WithError(err).Error("pipeline run failed")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "❌ Error procesando: %s", err.Error())
		return
	}
	fmt.Fprintf(w, "✅ Proceso completo. Procesadas %d denuncias y subidas a la colección '%s'.", summary.Processed, r.cfg.DestCollection)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if r.store != nil {
		if err := r.store.Health(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	fmt.Fprint(w, "OK")
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	payload := map[string]any{
		"metrics":           metrics.Snapshot(),
		"source_collection": r.cfg.SourceCollection,
		"dest_collection":   r.cfg.DestCollection,
	}
	if r.store != nil {
		if last, err := r.store.LastRun(req.Context()); err == nil && last != nil {
			payload["last_run"] = last
		}
	}
	respondJSON(w, payload)
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
