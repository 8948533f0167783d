// Package runtimeconfig is the TTL-bounded in-memory view of the externally
// stored runtime settings: active provider and model, prompt text overrides
// and the reasoning-mode flag. Admin writes invalidate the cache so readers
// converge on fresh values at the next read.
package runtimeconfig

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"wingman/internal/kvstore"
	"wingman/internal/prompt"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultProvider = "openai"
	DefaultModel    = "gpt-4o"
)

// Snapshot is one consistent view of the runtime configuration. Missing or
// unreadable keys are already substituted with defaults, so a Snapshot is
// always usable.
type Snapshot struct {
	Provider string
	Model    string
	Prompts  prompt.Settings
}

func Defaults() Snapshot {
	return Snapshot{
		Provider: DefaultProvider,
		Model:    DefaultModel,
	}
}

type Cache struct {
	store kvstore.Store
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger

	mu          sync.Mutex
	snap        Snapshot
	loaded      bool
	lastRefresh time.Time

	sf singleflight.Group
}

func New(store kvstore.Store, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
}

// GetAll returns the cached snapshot, refreshing it first when the cache is
// cold or older than the TTL. Concurrent callers share one in-flight
// refresh.
func (c *Cache) GetAll(ctx context.Context) Snapshot {
	c.mu.Lock()
	fresh := c.loaded && c.now().Sub(c.lastRefresh) <= c.ttl
	snap := c.snap
	c.mu.Unlock()
	if fresh {
		return snap
	}

	v, _, _ := c.sf.Do("refresh", func() (any, error) {
		s := c.refresh(ctx)
		c.mu.Lock()
		c.snap = s
		c.loaded = true
		c.lastRefresh = c.now()
		c.mu.Unlock()
		return s, nil
	})
	return v.(Snapshot)
}

// Invalidate resets the refresh marker so the next GetAll reads the store
// again even inside the TTL window. Called after every admin write.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.lastRefresh = time.Time{}
	c.mu.Unlock()
	c.log.Debug().Msg("runtime config cache invalidated")
}

// refresh reads every tracked key in parallel, substituting the built-in
// default for each key that is absent or unreadable. It cannot fail: the
// worst case is a snapshot made entirely of defaults.
func (c *Cache) refresh(ctx context.Context) Snapshot {
	snap := Defaults()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(c.readString(ctx, kvstore.KeyProvider, &snap.Provider, DefaultProvider))
	g.Go(c.readString(ctx, kvstore.KeyModelName, &snap.Model, DefaultModel))
	g.Go(c.readString(ctx, kvstore.KeySystemPrompt, &snap.Prompts.SystemPrompt, ""))
	g.Go(c.readString(ctx, kvstore.KeyResponseCriteria, &snap.Prompts.ResponseCriteria, ""))
	g.Go(c.readString(ctx, kvstore.KeySuggestionPrompt, &snap.Prompts.SuggestionPrompt, ""))
	g.Go(c.readString(ctx, kvstore.KeyGradingPrompt, &snap.Prompts.GradingPrompt, ""))
	g.Go(c.readString(ctx, kvstore.KeyAnalyzeIntentPrompt, &snap.Prompts.AnalyzeIntentPrompt, ""))
	g.Go(c.readString(ctx, kvstore.KeyFromDirectionPrompt, &snap.Prompts.FromDirectionPrompt, ""))
	g.Go(c.readBool(ctx, kvstore.KeyLogPrompt, &snap.Prompts.Reasoning))
	_ = g.Wait()

	c.log.Debug().Str("provider", snap.Provider).Str("model", snap.Model).Msg("runtime config cache refreshed")
	return snap
}

func (c *Cache) readString(ctx context.Context, key string, dst *string, def string) func() error {
	return func() error {
		v, err := c.store.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, kvstore.ErrNotFound) {
				c.log.Warn().Err(err).Str("key", key).Msg("config read failed, using default")
			}
			*dst = def
			return nil
		}
		*dst = v
		return nil
	}
}

func (c *Cache) readBool(ctx context.Context, key string, dst *bool) func() error {
	return func() error {
		v, err := c.store.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, kvstore.ErrNotFound) {
				c.log.Warn().Err(err).Str("key", key).Msg("config read failed, using default")
			}
			*dst = false
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			*dst = false
			return nil
		}
		*dst = b
		return nil
	}
}
