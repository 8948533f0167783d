package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wingman/internal/conversation"
	"wingman/internal/prompt"
	"wingman/internal/providers"
	"wingman/internal/providers/registry"
)

type generateRequest struct {
	Context []conversation.Message `json:"context"`
	Message string                 `json:"message"`
	Spec    prompt.StyleSpec       `json:"spec"`
	UserID  string                 `json:"userId"`
}

type timing struct {
	TotalDuration        int64   `json:"totalDuration"`
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
	ProviderDuration     int64   `json:"providerDuration"`
}

type generateResponse struct {
	Response         string          `json:"response"`
	Reasoning        string          `json:"reasoning,omitempty"`
	Usage            providers.Usage `json:"usage"`
	Provider         string          `json:"provider"`
	CreditsRemaining *int            `json:"creditsRemaining,omitempty"`
	Timing           timing          `json:"timing"`
}

func newTiming(start time.Time, providerMs int64) timing {
	total := time.Since(start)
	return timing{
		TotalDuration:        total.Milliseconds(),
		TotalDurationSeconds: total.Seconds(),
		ProviderDuration:     providerMs,
	}
}

// gateCredits enforces the credit limit for metered identities. An empty
// userId bypasses metering. The response is already written on denial.
func (s *Server) gateCredits(w http.ResponseWriter, r *http.Request, userID string) bool {
	if userID == "" {
		return true
	}
	st := s.ledger.Check(r.Context(), userID)
	if st.Allowed {
		return true
	}
	if s.metrics != nil {
		s.metrics.CreditDenials.Inc()
	}
	s.log.Info().Str("user_id", userID).Int("used", st.Used).Msg("request denied, credits exhausted")
	writeJSON(w, http.StatusForbidden, map[string]any{
		"error":            s.limitMessage,
		"creditsRemaining": 0,
	})
	return false
}

// chargeCredits burns one credit after a successful generation and returns
// the remaining balance for the response body. Nil means unmetered.
func (s *Server) chargeCredits(ctx context.Context, userID string) *int {
	if userID == "" {
		return nil
	}
	if s.ledger.IsAdmin(userID) {
		remaining := -1
		return &remaining
	}
	if _, err := s.ledger.Increment(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("credit charge failed")
	}
	st := s.ledger.Check(ctx, userID)
	remaining := st.Remaining
	return &remaining
}

func writeFailure(w http.ResponseWriter, f *registry.Failure) {
	writeJSON(w, f.Status, map[string]any{
		"error": f.Detail,
		"kind":  string(f.Kind),
	})
}

func (s *Server) recordAudit(endpoint, userID, model, status string, out registry.Outcome) {
	if s.audit == nil {
		return
	}
	rec := storageRecord(endpoint, userID, model, status, out)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.InsertGeneration(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("endpoint", endpoint).Msg("audit insert failed")
		}
	}()
}

func (s *Server) handleGenerateResponse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Context) == 0 {
		writeError(w, http.StatusBadRequest, "Missing context")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing message")
		return
	}
	if !s.gateCredits(w, r, req.UserID) {
		return
	}

	snap := s.cache.GetAll(r.Context())
	built := s.engine.BuildGeneration(req.Context, req.Message, req.Spec, snap.Prompts)

	out := s.dispatcher.Dispatch(r.Context(), snap.Provider, providers.GenerateConfig{Model: snap.Model}, built.Text)
	if !out.OK() {
		s.recordAudit("generate-response", req.UserID, snap.Model, string(out.Failure.Kind), out)
		writeFailure(w, out.Failure)
		return
	}
	s.recordAudit("generate-response", req.UserID, snap.Model, "ok", out)

	resp := generateResponse{
		Response: out.Text,
		Usage:    out.Usage,
		Provider: out.Provider,
	}
	if built.ExpectsReasoning {
		if parsed, ok := prompt.ParseStructured(out.Text); ok {
			resp.Response = parsed.Response
			resp.Reasoning = parsed.Reasoning
		}
	}
	resp.CreditsRemaining = s.chargeCredits(r.Context(), req.UserID)
	resp.Timing = newTiming(start, out.DurationMs)

	writeJSON(w, http.StatusOK, resp)
}

// handleGenerateStream is the SSE variant. Chunks flush as they arrive; the
// terminal complete event repeats the full normalized response so clients
// that ignore intermediate chunks still get everything.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Context) == 0 {
		writeError(w, http.StatusBadRequest, "Missing context")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing message")
		return
	}
	if !s.gateCredits(w, r, req.UserID) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	snap := s.cache.GetAll(r.Context())
	built := s.engine.BuildGeneration(req.Context, req.Message, req.Spec, snap.Prompts)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sse := func(event string, payload any) {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, mustJSON(payload))
		flusher.Flush()
	}

	out := s.dispatcher.DispatchStream(r.Context(), snap.Provider, providers.GenerateConfig{Model: snap.Model}, built.Text, func(chunk string) {
		sse("chunk", map[string]string{"text": chunk})
	})
	if !out.OK() {
		s.recordAudit("generate-response-stream", req.UserID, snap.Model, string(out.Failure.Kind), out)
		sse("error", map[string]any{"error": out.Failure.Detail, "kind": string(out.Failure.Kind)})
		return
	}
	s.recordAudit("generate-response-stream", req.UserID, snap.Model, "ok", out)

	resp := generateResponse{
		Response: out.Text,
		Usage:    out.Usage,
		Provider: out.Provider,
	}
	if built.ExpectsReasoning {
		if parsed, ok := prompt.ParseStructured(out.Text); ok {
			resp.Response = parsed.Response
			resp.Reasoning = parsed.Reasoning
		}
	}
	resp.CreditsRemaining = s.chargeCredits(r.Context(), req.UserID)
	resp.Timing = newTiming(start, out.DurationMs)

	sse("complete", resp)
	sse("done", map[string]string{})
}

// handlePreviewPrompt runs a caller-supplied raw prompt through the active
// provider. Admin tooling only; no prompt assembly, no credit metering.
func (s *Server) handlePreviewPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Missing prompt")
		return
	}

	snap := s.cache.GetAll(r.Context())
	out := s.dispatcher.Dispatch(r.Context(), snap.Provider, providers.GenerateConfig{Model: snap.Model}, req.Prompt)
	if !out.OK() {
		writeFailure(w, out.Failure)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response": out.Text,
		"usage":    out.Usage,
		"provider": out.Provider,
	})
}
