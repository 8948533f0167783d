package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rs/zerolog"

	"wingman/internal/providers"
)

func newTestRegistry() *Registry {
	return New(Credentials{}, time.Minute, zerolog.Nop(), nil)
}

func TestResolveKnownProviders(t *testing.T) {
	r := newTestRegistry()
	for _, name := range []string{"openai", "anthropic", "xai"} {
		p, err := r.Resolve(name)
		if err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
		if p.Name() != name {
			t.Fatalf("adapter name mismatch: %q != %q", p.Name(), name)
		}
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Resolve("skynet"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestDispatchUnknownProviderReturnsFailure(t *testing.T) {
	r := newTestRegistry()
	out := r.Dispatch(context.Background(), "skynet", providers.GenerateConfig{Model: "m"}, "p")
	if out.OK() {
		t.Fatal("expected failure outcome")
	}
	if out.Failure.Kind != KindGeneric {
		t.Fatalf("unexpected kind %q", out.Failure.Kind)
	}
	if out.DurationMs < 0 {
		t.Fatalf("negative duration %d", out.DurationMs)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"openai 429", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, KindRateLimited},
		{"openai 401", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, KindUnauthenticated},
		{"openai 400", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, KindBadRequest},
		{"openai 503", &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}, KindUpstreamUnavailable},
		{"http 500", &providers.HTTPError{Status: 500, Message: "boom"}, KindUpstreamUnavailable},
		{"http 403", &providers.HTTPError{Status: 403, Message: "nope"}, KindUnauthenticated},
		{"message rate limit", fmt.Errorf("upstream said: rate limit exceeded"), KindRateLimited},
		{"message api key", fmt.Errorf("invalid api key"), KindUnauthenticated},
		{"opaque", fmt.Errorf("something odd"), KindGeneric},
	}

	for _, tc := range cases {
		kind, status := Classify(tc.err)
		if kind != tc.kind {
			t.Errorf("%s: got kind %q want %q", tc.name, kind, tc.kind)
		}
		if status == 0 {
			t.Errorf("%s: no status assigned", tc.name)
		}
	}
}
