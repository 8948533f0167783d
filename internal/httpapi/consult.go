package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"wingman/internal/conversation"
	"wingman/internal/kvstore"
	"wingman/internal/prompt"
	"wingman/internal/providers"
)

type suggestionRequest struct {
	Context         []conversation.Message `json:"context"`
	SelectedMessage string                 `json:"selectedMessage"`
	Question        string                 `json:"question"`
	UserID          string                 `json:"userId"`
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req suggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Context) == 0 {
		writeError(w, http.StatusBadRequest, "Missing context")
		return
	}
	if !s.gateCredits(w, r, req.UserID) {
		return
	}

	snap := s.cache.GetAll(r.Context())
	text := s.engine.BuildConsultation(req.Context, req.SelectedMessage, req.Question, snap.Prompts)
	s.snapshotLatest(kvstore.KeyLatestSuggestionPrompt, text, req.SelectedMessage)

	out := s.dispatcher.Dispatch(r.Context(), snap.Provider, providers.GenerateConfig{Model: snap.Model}, text)
	if !out.OK() {
		s.recordAudit("suggestion", req.UserID, snap.Model, string(out.Failure.Kind), out)
		writeFailure(w, out.Failure)
		return
	}
	s.recordAudit("suggestion", req.UserID, snap.Model, "ok", out)

	writeJSON(w, http.StatusOK, map[string]any{
		"suggestion":       out.Text,
		"usage":            out.Usage,
		"provider":         out.Provider,
		"creditsRemaining": s.chargeCredits(r.Context(), req.UserID),
		"timing":           newTiming(start, out.DurationMs),
	})
}

type gradeRequest struct {
	Context  []conversation.Message `json:"context"`
	Response string                 `json:"response"`
}

func (s *Server) handleGradeResponse(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Context) == 0 {
		writeError(w, http.StatusBadRequest, "Missing context")
		return
	}
	if req.Response == "" {
		writeError(w, http.StatusBadRequest, "Missing response")
		return
	}

	snap := s.cache.GetAll(r.Context())
	text := s.engine.BuildGrading(req.Context, req.Response, snap.Prompts)

	out := s.dispatcher.Dispatch(r.Context(), snap.Provider, providers.GenerateConfig{Model: snap.Model}, text)
	if !out.OK() {
		s.recordAudit("grade-response", "", snap.Model, string(out.Failure.Kind), out)
		writeFailure(w, out.Failure)
		return
	}
	s.recordAudit("grade-response", "", snap.Model, "ok", out)

	writeJSON(w, http.StatusOK, map[string]any{
		"grade":    prompt.ParseGrade(out.Text),
		"usage":    out.Usage,
		"provider": out.Provider,
	})
}

type analyzeIntentRequest struct {
	Context []conversation.Message `json:"context"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	UserID string `json:"userId"`
}

func (s *Server) handleAnalyzeIntent(w http.ResponseWriter, r *http.Request) {
	var req analyzeIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message.Text == "" {
		writeError(w, http.StatusBadRequest, "Missing message or message.text")
		return
	}
	if len(req.Context) == 0 {
		writeError(w, http.StatusBadRequest, "Missing context")
		return
	}
	if !s.gateCredits(w, r, req.UserID) {
		return
	}

	snap := s.cache.GetAll(r.Context())
	text := s.engine.BuildAnalyzeIntent(req.Context, req.Message.Text, snap.Prompts)

	out := s.dispatcher.Dispatch(r.Context(), snap.Provider, providers.GenerateConfig{Model: snap.Model}, text)
	s.snapshotLatest(kvstore.KeyLatestAnalyzeIntentPrompt, text, req.Message.Text)
	if !out.OK() {
		s.recordAudit("analyze-intent", req.UserID, snap.Model, string(out.Failure.Kind), out)
		writeFailure(w, out.Failure)
		return
	}
	s.recordAudit("analyze-intent", req.UserID, snap.Model, "ok", out)

	analysis, ok := prompt.ParseObject(out.Text)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       "Failed to parse LLM response as JSON",
			"rawResponse": out.Text,
		})
		return
	}
	analysis["analysisTimestamp"] = time.Now().UTC().Format(time.RFC3339)
	analysis["messageId"] = uuid.NewString()

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":         analysis,
		"usage":            out.Usage,
		"provider":         out.Provider,
		"creditsRemaining": s.chargeCredits(r.Context(), req.UserID),
	})
}

type fromDirectionRequest struct {
	Context     []conversation.Message `json:"context"`
	MessageText string                 `json:"messageText"`
	Direction   prompt.Direction       `json:"direction"`
	UserID      string                 `json:"userId"`
}

func (s *Server) handleGenerateFromDirection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req fromDirectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Direction.Label == "" || req.Direction.Tone == "" {
		writeError(w, http.StatusBadRequest, "Direction must have label and tone")
		return
	}
	if req.MessageText == "" {
		writeError(w, http.StatusBadRequest, "Missing messageText")
		return
	}
	if len(req.Context) == 0 {
		writeError(w, http.StatusBadRequest, "Missing context")
		return
	}
	if !s.gateCredits(w, r, req.UserID) {
		return
	}

	snap := s.cache.GetAll(r.Context())
	text := s.engine.BuildFromDirection(req.Context, req.MessageText, req.Direction, snap.Prompts)
	s.snapshotLatest(kvstore.KeyLatestFromDirectionPrompt, text, req.MessageText)

	out := s.dispatcher.Dispatch(r.Context(), snap.Provider, providers.GenerateConfig{Model: snap.Model}, text)
	if !out.OK() {
		s.recordAudit("generate-from-direction", req.UserID, snap.Model, string(out.Failure.Kind), out)
		writeFailure(w, out.Failure)
		return
	}
	s.recordAudit("generate-from-direction", req.UserID, snap.Model, "ok", out)

	parsed, ok := prompt.ParseObject(out.Text)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       "Failed to parse LLM response as JSON",
			"rawResponse": out.Text,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result": map[string]any{
			"message":   stringField(parsed, "message"),
			"reasoning": stringField(parsed, "reasoning"),
			"emotion":   stringField(parsed, "emotion"),
		},
		"usage":            out.Usage,
		"provider":         out.Provider,
		"creditsRemaining": s.chargeCredits(r.Context(), req.UserID),
		"timing":           newTiming(start, out.DurationMs),
	})
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// snapshotLatest records the most recent prompt per feature for admin
// inspection. Best effort, off the request path.
func (s *Server) snapshotLatest(key, promptText, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := kvstore.SetJSON(ctx, s.store, key, map[string]string{
			"prompt":    promptText,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to store latest prompt snapshot")
		}
	}()
}
