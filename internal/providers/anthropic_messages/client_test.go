package anthropic_messages

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"wingman/internal/providers"
)

func TestGenerateParsesResponse(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("missing api key header")
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "hey you"}],
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	res, err := c.Generate(context.Background(), providers.GenerateConfig{Model: "claude-sonnet-4-20250514"}, "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if res.Text != "hey you" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Usage.PromptTokens != 12 || res.Usage.CompletionTokens != 5 || res.Usage.TotalTokens != 17 {
		t.Fatalf("unexpected usage %+v", res.Usage)
	}
	if res.Provider != "anthropic" {
		t.Fatalf("unexpected provider %q", res.Provider)
	}
	if gotBody["model"] != "claude-sonnet-4-20250514" {
		t.Fatalf("model not forwarded: %#v", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(defaultMaxTokens) {
		t.Fatalf("default max_tokens not applied: %#v", gotBody["max_tokens"])
	}
}

func TestGenerateStreamEmitsChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: message_start\n")
		_, _ = io.WriteString(w, `data: {"type":"message_start","message":{"usage":{"input_tokens":9}}}`+"\n\n")
		_, _ = io.WriteString(w, "event: content_block_delta\n")
		_, _ = io.WriteString(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"hey "}}`+"\n\n")
		_, _ = io.WriteString(w, "event: content_block_delta\n")
		_, _ = io.WriteString(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"you"}}`+"\n\n")
		_, _ = io.WriteString(w, "event: message_delta\n")
		_, _ = io.WriteString(w, `data: {"type":"message_delta","usage":{"output_tokens":4}}`+"\n\n")
		_, _ = io.WriteString(w, "event: message_stop\n")
		_, _ = io.WriteString(w, `data: {"type":"message_stop"}`+"\n\n")
	}))
	defer srv.Close()

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	var chunks []string
	res, err := c.GenerateStream(context.Background(), providers.GenerateConfig{Model: "claude-sonnet-4-20250514"}, "hello", func(s string) {
		chunks = append(chunks, s)
	})
	if err != nil {
		t.Fatalf("generate stream: %v", err)
	}

	if len(chunks) != 2 || chunks[0] != "hey " || chunks[1] != "you" {
		t.Fatalf("unexpected chunks %#v", chunks)
	}
	if res.Text != "hey you" {
		t.Fatalf("aggregated text %q", res.Text)
	}
	if res.Usage.PromptTokens != 9 || res.Usage.CompletionTokens != 4 || res.Usage.TotalTokens != 13 {
		t.Fatalf("unexpected usage %+v", res.Usage)
	}
}

func TestGenerateSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), providers.GenerateConfig{Model: "claude-sonnet-4-20250514"}, "hello")
	if err == nil {
		t.Fatal("expected error")
	}

	var httpErr *providers.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", httpErr.Status)
	}
}
