// Package providers defines the contract every LLM backend adapter has to
// satisfy, plus the normalized result shape shared by all of them.
package providers

import "context"

// GenerateConfig carries the per-call model settings resolved from runtime
// configuration.
type GenerateConfig struct {
	Model     string
	MaxTokens int
}

// Usage is the normalized token accounting. Adapters zero the fields when
// the backend does not report usage.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Result is a successful generation, normalized across backends.
type Result struct {
	Text       string
	Usage      Usage
	Provider   string
	DurationMs int64
}

// Provider is implemented once per backend. Generate and GenerateStream must
// time the call, translate the native response into Result and let transport
// errors propagate unmodified; there is no retry policy at this layer.
//
// GenerateStream invokes onChunk once per text fragment in arrival order and
// returns the aggregated Result when the stream completes.
type Provider interface {
	Name() string
	Generate(ctx context.Context, cfg GenerateConfig, prompt string) (Result, error)
	GenerateStream(ctx context.Context, cfg GenerateConfig, prompt string, onChunk func(string)) (Result, error)
}

// HTTPError is returned by hand-rolled adapters for non-2xx upstream
// responses so the dispatcher can classify them by status code. SDK-based
// adapters surface their own typed errors instead.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}
