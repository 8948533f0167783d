// Package kvstore is the thin interface over the external key-value store
// that holds runtime configuration, the credit ledger, prompt version
// snapshots and debug artifacts. Redis is the only real backend.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("key not found")

// Keys tracked in the store. Absence of any key is a valid state read as
// "use the built-in default".
const (
	KeySystemPrompt        = "SYSTEM_PROMPT"
	KeyResponseCriteria    = "RESPONSE_CRITERIA"
	KeyModelName           = "LLM_MODEL_NAME"
	KeyProvider            = "LLM_PROVIDER"
	KeyLogPrompt           = "LOG_PROMPT"
	KeyUserCredits         = "USER_CREDITS"
	KeyVersionList         = "PROMPT_VERSIONS"
	KeyCurrentFullPrompt   = "CURRENT_FULL_PROMPT"
	KeyAnalyzeIntentPrompt = "ANALYZE_INTENT_PROMPT"
	KeyFromDirectionPrompt = "GENERATE_FROM_DIRECTION_PROMPT"
	KeySuggestionPrompt    = "SUGGESTION_PROMPT"
	KeyGradingPrompt       = "GRADE_RESPONSE_PROMPT"

	KeyLatestAnalyzeIntentPrompt = "LATEST_ANALYZE_INTENT_PROMPT"
	KeyLatestFromDirectionPrompt = "LATEST_GENERATE_FROM_DIRECTION_PROMPT"
	KeyLatestSuggestionPrompt    = "LATEST_SUGGESTION_PROMPT"
)

// Store is what the rest of the system programs against. Values are opaque
// strings; callers that need structure go through GetJSON/SetJSON.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

var _ Store = (*Redis)(nil)

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get %s: %w", key, err)
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv del %s: %w", key, err)
	}
	return nil
}

// GetJSON reads key and unmarshals it into out. ErrNotFound passes through
// untouched so callers can substitute defaults.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("kv decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
