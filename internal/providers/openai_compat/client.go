// Package openai_compat adapts any OpenAI-compatible chat completion API to
// the providers contract. It backs both the "openai" and the "xai" adapters;
// the two differ only in name, credentials and base URL.
package openai_compat

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"wingman/internal/providers"
)

type Config struct {
	Name    string
	APIKey  string
	BaseURL string
}

type Client struct {
	cfg    Config
	once   sync.Once
	client *openai.Client
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

var _ providers.Provider = (*Client)(nil)

func (c *Client) Name() string {
	return c.cfg.Name
}

// api constructs the SDK client on first use and reuses it afterwards. The
// handle holds no per-call state, so sharing it across requests is safe.
func (c *Client) api() *openai.Client {
	c.once.Do(func() {
		sdkCfg := openai.DefaultConfig(c.cfg.APIKey)
		if c.cfg.BaseURL != "" {
			sdkCfg.BaseURL = c.cfg.BaseURL
		}
		c.client = openai.NewClientWithConfig(sdkCfg)
	})
	return c.client
}

func (c *Client) Generate(ctx context.Context, cfg providers.GenerateConfig, prompt string) (providers.Result, error) {
	start := time.Now()

	resp, err := c.api().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return providers.Result{}, err
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return providers.Result{
		Text: text,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider:   c.cfg.Name,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (c *Client) GenerateStream(ctx context.Context, cfg providers.GenerateConfig, prompt string, onChunk func(string)) (providers.Result, error) {
	start := time.Now()

	stream, err := c.api().CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		return providers.Result{}, err
	}
	defer stream.Close()

	var full []byte
	var usage providers.Usage
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return providers.Result{}, err
		}
		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				full = append(full, delta...)
				onChunk(delta)
			}
		}
		// Usage arrives on the terminal chunk when IncludeUsage is set.
		if chunk.Usage != nil {
			usage = providers.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
	}

	return providers.Result{
		Text:       string(full),
		Usage:      usage,
		Provider:   c.cfg.Name,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
