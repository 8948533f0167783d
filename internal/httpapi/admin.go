package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"wingman/internal/credits"
	"wingman/internal/kvstore"
	"wingman/internal/prompt"
	"wingman/internal/runtimeconfig"
	"wingman/internal/storage"
	"wingman/internal/versions"
)

// configKeys whitelists the admin-editable settings, mapping URL slugs to
// store keys and their built-in defaults.
var configKeys = map[string]struct {
	storeKey string
	def      string
}{
	"system-prompt":                  {kvstore.KeySystemPrompt, prompt.DefaultSystemPrompt},
	"response-criteria":              {kvstore.KeyResponseCriteria, prompt.DefaultResponseCriteria},
	"llm-model":                      {kvstore.KeyModelName, runtimeconfig.DefaultModel},
	"llm-provider":                   {kvstore.KeyProvider, runtimeconfig.DefaultProvider},
	"log-prompt":                     {kvstore.KeyLogPrompt, "false"},
	"suggestion-prompt":              {kvstore.KeySuggestionPrompt, prompt.DefaultSuggestionPrompt},
	"grade-response-prompt":          {kvstore.KeyGradingPrompt, prompt.DefaultGradingPrompt},
	"analyze-intent-prompt":          {kvstore.KeyAnalyzeIntentPrompt, prompt.DefaultAnalyzeIntentPrompt},
	"generate-from-direction-prompt": {kvstore.KeyFromDirectionPrompt, prompt.DefaultFromDirectionPrompt},
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("key")
	entry, ok := configKeys[slug]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown config key")
		return
	}

	value, err := s.store.Get(r.Context(), entry.storeKey)
	isDefault := false
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Config read failed")
			return
		}
		value = entry.def
		isDefault = true
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":       slug,
		"value":     value,
		"isDefault": isDefault,
	})
}

func (s *Server) handleConfigSet(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("key")
	entry, ok := configKeys[slug]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown config key")
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Value == "" {
		writeError(w, http.StatusBadRequest, "Missing value")
		return
	}
	if err := s.store.Set(r.Context(), entry.storeKey, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "Config write failed")
		return
	}

	s.cache.Invalidate()
	s.log.Info().Str("key", slug).Msg("runtime config updated")
	writeJSON(w, http.StatusOK, map[string]any{"key": slug, "value": req.Value})
}

// handleFullPrompt serves the debug snapshot written in reasoning mode.
func (s *Server) handleFullPrompt(w http.ResponseWriter, r *http.Request) {
	var snap map[string]string
	err := kvstore.GetJSON(r.Context(), s.store, kvstore.KeyCurrentFullPrompt, &snap)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No prompt recorded yet")
			return
		}
		writeError(w, http.StatusInternalServerError, "Config read failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// modelCatalogue is the static pick list served to the admin UI. Any model
// name is accepted on write; this is a convenience, not a constraint.
var modelCatalogue = map[string][]string{
	"openai":    {"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini", "o3-mini"},
	"anthropic": {"claude-sonnet-4-20250514", "claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"},
	"xai":       {"grok-3", "grok-3-mini", "grok-2-1212"},
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.dispatcher.Names(),
		"models":    modelCatalogue,
	})
}

func (s *Server) handleVersionSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string              `json:"description"`
		ConfigData  versions.ConfigData `json:"configData"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := s.versions.Save(r.Context(), req.ConfigData, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save new version")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "version": snap})
}

func (s *Server) handleVersionHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.versions.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get version history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleVersionDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.versions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, versions.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Version not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete version")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCreditsRemaining(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Missing userId")
		return
	}

	st := s.ledger.Check(r.Context(), userID)
	resp := map[string]any{
		"userId":           userID,
		"isAdmin":          st.Admin,
		"creditsRemaining": st.Remaining,
		"creditsUsed":      st.Used,
		"totalCredits":     st.Limit,
	}
	if st.Admin {
		resp["creditsRemaining"] = credits.Unlimited
		resp["totalCredits"] = credits.Unlimited
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerationLog(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, "Generation log not configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.audit.RecentGenerations(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read generation log")
		return
	}
	if records == nil {
		records = []storage.GenerationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}
