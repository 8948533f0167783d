// Package httpapi exposes the JSON API: generation endpoints, admin
// configuration, version snapshots and the credit balance surface.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"wingman/internal/credits"
	"wingman/internal/kvstore"
	"wingman/internal/metrics"
	"wingman/internal/prompt"
	"wingman/internal/providers"
	"wingman/internal/providers/registry"
	"wingman/internal/runtimeconfig"
	"wingman/internal/storage"
	"wingman/internal/versions"
)

// Dispatcher is the slice of the provider registry the handlers need.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, cfg providers.GenerateConfig, prompt string) registry.Outcome
	DispatchStream(ctx context.Context, name string, cfg providers.GenerateConfig, prompt string, onChunk func(string)) registry.Outcome
	Names() []string
}

type Server struct {
	store      kvstore.Store
	cache      *runtimeconfig.Cache
	engine     *prompt.Engine
	dispatcher Dispatcher
	ledger     *credits.Ledger
	versions   *versions.Service
	audit      *storage.Store

	limitMessage string

	log     zerolog.Logger
	metrics *metrics.Metrics
}

type Deps struct {
	Store      kvstore.Store
	Cache      *runtimeconfig.Cache
	Engine     *prompt.Engine
	Dispatcher Dispatcher
	Ledger     *credits.Ledger
	Versions   *versions.Service
	Audit      *storage.Store

	LimitReachedMessage string

	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

func NewServer(d Deps) *Server {
	return &Server{
		store:        d.Store,
		cache:        d.Cache,
		engine:       d.Engine,
		dispatcher:   d.Dispatcher,
		ledger:       d.Ledger,
		versions:     d.Versions,
		audit:        d.Audit,
		limitMessage: d.LimitReachedMessage,
		log:          d.Log,
		metrics:      d.Metrics,
	}
}

// Routes registers every endpoint on a fresh mux. Method-qualified patterns
// give us routing and 405s without a router dependency.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	s.handle(mux, "POST /api/generate-response", "generate-response", s.handleGenerateResponse)
	s.handle(mux, "POST /api/generate-response-stream", "generate-response-stream", s.handleGenerateStream)
	s.handle(mux, "POST /api/suggestion", "suggestion", s.handleSuggestion)
	s.handle(mux, "POST /api/grade-response", "grade-response", s.handleGradeResponse)
	s.handle(mux, "POST /api/analyze-intent", "analyze-intent", s.handleAnalyzeIntent)
	s.handle(mux, "POST /api/generate-from-direction", "generate-from-direction", s.handleGenerateFromDirection)
	s.handle(mux, "POST /api/preview-prompt", "preview-prompt", s.handlePreviewPrompt)

	s.handle(mux, "GET /api/config/{key}", "config-read", s.handleConfigGet)
	s.handle(mux, "POST /api/config/{key}", "config-write", s.handleConfigSet)
	s.handle(mux, "GET /api/full-prompt", "full-prompt", s.handleFullPrompt)
	s.handle(mux, "GET /api/models", "models", s.handleModels)

	s.handle(mux, "POST /api/versions/save", "versions-save", s.handleVersionSave)
	s.handle(mux, "GET /api/versions/history", "versions-history", s.handleVersionHistory)
	s.handle(mux, "DELETE /api/versions/{id}", "versions-delete", s.handleVersionDelete)

	s.handle(mux, "GET /api/credits-remaining", "credits-remaining", s.handleCreditsRemaining)
	s.handle(mux, "GET /api/generation-log", "generation-log", s.handleGenerationLog)

	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if s.metrics != nil {
			s.metrics.RequestsTotal.WithLabelValues(endpoint).Inc()
		}
		h(w, r)
	})
}

// CORS is a permissive cross-origin wrapper; the API fronts a browser
// extension, so every origin is allowed.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

func storageRecord(endpoint, userID, model, status string, out registry.Outcome) storage.GenerationRecord {
	return storage.GenerationRecord{
		Endpoint:         endpoint,
		UserID:           userID,
		Provider:         out.Provider,
		Model:            model,
		Status:           status,
		DurationMs:       out.DurationMs,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}
}
