// Package anthropic_messages is a hand-rolled client for the Anthropic
// Messages API. No SDK dependency; payloads are built and parsed directly.
package anthropic_messages

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"wingman/internal/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	cfg  Config
	once sync.Once
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{cfg: cfg}
}

var _ providers.Provider = (*Client)(nil)

func (c *Client) Name() string {
	return "anthropic"
}

func (c *Client) client() *http.Client {
	c.once.Do(func() {
		c.http = c.cfg.HTTPClient
		if c.http == nil {
			c.http = &http.Client{}
		}
	})
	return c.http
}

type messagesPayload struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	Messages  []messageContent `json:"messages"`
	Stream    bool             `json:"stream,omitempty"`
}

type messageContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) Generate(ctx context.Context, cfg providers.GenerateConfig, prompt string) (providers.Result, error) {
	start := time.Now()

	body, err := c.call(ctx, cfg, prompt, false)
	if err != nil {
		return providers.Result{}, err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, 4<<20))
	if err != nil {
		return providers.Result{}, fmt.Errorf("read messages response: %w", err)
	}

	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return providers.Result{}, fmt.Errorf("decode messages response: %w", err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return providers.Result{
		Text:       text,
		Usage:      normalizeUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Provider:   c.Name(),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// streamEvent covers the event payloads we care about: text deltas and the
// usage counters split across message_start and message_delta.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Message struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) GenerateStream(ctx context.Context, cfg providers.GenerateConfig, prompt string, onChunk func(string)) (providers.Result, error) {
	start := time.Now()

	body, err := c.call(ctx, cfg, prompt, true)
	if err != nil {
		return providers.Result{}, err
	}
	defer body.Close()

	var full []byte
	inputTokens, outputTokens := 0, 0

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				full = append(full, ev.Delta.Text...)
				onChunk(ev.Delta.Text)
			}
		case "message_start":
			inputTokens = ev.Message.Usage.InputTokens
		case "message_delta":
			outputTokens = ev.Usage.OutputTokens
		}
	}
	if err := scanner.Err(); err != nil {
		return providers.Result{}, fmt.Errorf("read messages stream: %w", err)
	}

	return providers.Result{
		Text:       string(full),
		Usage:      normalizeUsage(inputTokens, outputTokens),
		Provider:   c.Name(),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (c *Client) call(ctx context.Context, cfg providers.GenerateConfig, prompt string, stream bool) (io.ReadCloser, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	payload, err := json.Marshal(messagesPayload{
		Model:     cfg.Model,
		MaxTokens: maxTokens,
		Messages:  []messageContent{{Role: "user", Content: prompt}},
		Stream:    stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal messages payload: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build messages request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		_ = resp.Body.Close()
		return nil, &providers.HTTPError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("anthropic status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}
	return resp.Body, nil
}

func normalizeUsage(input, output int) providers.Usage {
	return providers.Usage{
		PromptTokens:     input,
		CompletionTokens: output,
		TotalTokens:      input + output,
	}
}
