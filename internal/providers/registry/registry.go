// Package registry resolves provider names to adapters and wraps every call
// with uniform timing, metrics and error classification. Dispatch never
// returns a Go error: callers always get one Outcome shape regardless of
// which backend ran or how it failed.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rs/zerolog"

	"wingman/internal/metrics"
	"wingman/internal/providers"
	"wingman/internal/providers/anthropic_messages"
	"wingman/internal/providers/openai_compat"
)

var ErrUnknownProvider = errors.New("unknown llm provider")

const defaultXAIBaseURL = "https://api.x.ai/v1"

// Kind is the fixed failure taxonomy reported to callers.
type Kind string

const (
	KindTimeout             Kind = "timeout"
	KindRateLimited         Kind = "rate_limited"
	KindUnauthenticated     Kind = "unauthenticated"
	KindBadRequest          Kind = "bad_request"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindGeneric             Kind = "generic"
)

type Failure struct {
	Kind   Kind   `json:"kind"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// Outcome is the one result shape dispatch produces. On failure the success
// fields still carry provider name and duration.
type Outcome struct {
	providers.Result
	Failure *Failure
}

func (o Outcome) OK() bool {
	return o.Failure == nil
}

type Credentials struct {
	OpenAIKey        string
	AnthropicKey     string
	AnthropicBaseURL string
	XAIKey           string
	XAIBaseURL       string
}

type Registry struct {
	adapters map[string]providers.Provider
	timeout  time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New builds the adapter set once. Adapters construct their API clients
// lazily, so providers without configured keys cost nothing until used.
func New(creds Credentials, timeout time.Duration, log zerolog.Logger, m *metrics.Metrics) *Registry {
	xaiBase := creds.XAIBaseURL
	if xaiBase == "" {
		xaiBase = defaultXAIBaseURL
	}

	adapters := map[string]providers.Provider{}
	register := func(p providers.Provider) { adapters[p.Name()] = p }

	register(openai_compat.New(openai_compat.Config{Name: "openai", APIKey: creds.OpenAIKey}))
	register(openai_compat.New(openai_compat.Config{Name: "xai", APIKey: creds.XAIKey, BaseURL: xaiBase}))
	register(anthropic_messages.New(anthropic_messages.Config{APIKey: creds.AnthropicKey, BaseURL: creds.AnthropicBaseURL}))

	return &Registry{
		adapters: adapters,
		timeout:  timeout,
		log:      log,
		metrics:  m,
	}
}

// Resolve maps a provider name to its adapter. Unknown names fail; choosing
// a default provider is configuration resolution's job, not the registry's.
func (r *Registry) Resolve(name string) (providers.Provider, error) {
	p, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

func (r *Registry) Dispatch(ctx context.Context, name string, cfg providers.GenerateConfig, prompt string) Outcome {
	return r.dispatch(ctx, name, cfg, func(ctx context.Context, p providers.Provider) (providers.Result, error) {
		return p.Generate(ctx, cfg, prompt)
	})
}

func (r *Registry) DispatchStream(ctx context.Context, name string, cfg providers.GenerateConfig, prompt string, onChunk func(string)) Outcome {
	return r.dispatch(ctx, name, cfg, func(ctx context.Context, p providers.Provider) (providers.Result, error) {
		return p.GenerateStream(ctx, cfg, prompt, onChunk)
	})
}

func (r *Registry) dispatch(ctx context.Context, name string, cfg providers.GenerateConfig, call func(context.Context, providers.Provider) (providers.Result, error)) Outcome {
	start := time.Now()

	p, err := r.Resolve(name)
	if err != nil {
		return Outcome{
			Result:  providers.Result{Provider: name, DurationMs: time.Since(start).Milliseconds()},
			Failure: &Failure{Kind: KindGeneric, Status: http.StatusInternalServerError, Detail: err.Error()},
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Debug().Str("provider", p.Name()).Str("model", cfg.Model).Msg("dispatching llm call")

	res, err := call(ctx, p)
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(elapsed.Seconds())
	}

	if err != nil {
		kind, status := Classify(err)
		if r.metrics != nil {
			r.metrics.ProviderCalls.WithLabelValues(p.Name(), string(kind)).Inc()
		}
		r.log.Error().
			Str("provider", p.Name()).
			Str("model", cfg.Model).
			Str("kind", string(kind)).
			Int64("duration_ms", elapsed.Milliseconds()).
			Err(err).
			Msg("llm call failed")
		return Outcome{
			Result:  providers.Result{Provider: p.Name(), DurationMs: elapsed.Milliseconds()},
			Failure: &Failure{Kind: kind, Status: status, Detail: err.Error()},
		}
	}

	if r.metrics != nil {
		r.metrics.ProviderCalls.WithLabelValues(p.Name(), "ok").Inc()
	}
	r.log.Info().
		Str("provider", p.Name()).
		Str("model", cfg.Model).
		Int("total_tokens", res.Usage.TotalTokens).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg("llm call completed")

	// End-to-end duration, including classification overhead.
	res.DurationMs = elapsed.Milliseconds()
	return Outcome{Result: res}
}

// Classify sorts a provider error into the fixed taxonomy using typed errors
// where available and message heuristics as the last resort.
func Classify(err error) (Kind, int) {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, http.StatusGatewayTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout, http.StatusGatewayTimeout
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var httpErr *providers.HTTPError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.As(err, &httpErr):
		status = httpErr.Status
	}

	if kind, ok := classifyStatus(status); ok {
		return kind, status
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return KindTimeout, http.StatusGatewayTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return KindRateLimited, http.StatusTooManyRequests
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key") || strings.Contains(msg, "authentication"):
		return KindUnauthenticated, http.StatusUnauthorized
	}
	return KindGeneric, http.StatusBadGateway
}

func classifyStatus(status int) (Kind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthenticated, true
	case status == http.StatusRequestTimeout:
		return KindTimeout, true
	case status >= 500:
		return KindUpstreamUnavailable, true
	case status >= 400:
		return KindBadRequest, true
	}
	return "", false
}
