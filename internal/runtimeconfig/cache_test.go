package runtimeconfig

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wingman/internal/kvstore"
)

// fakeStore counts reads and can be told to fail or block.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]string
	reads   atomic.Int64
	failAll bool
	block   chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	f.reads.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.failAll {
		return "", errors.New("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", kvstore.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func TestGetAllDefaultsOnEmptyStore(t *testing.T) {
	c := New(newFakeStore(), time.Minute, zerolog.Nop())

	snap := c.GetAll(context.Background())
	if snap.Provider != DefaultProvider || snap.Model != DefaultModel {
		t.Fatalf("unexpected defaults %+v", snap)
	}
	if snap.Prompts.Reasoning {
		t.Fatal("reasoning should default to off")
	}
}

func TestGetAllDefaultsWhenStoreFails(t *testing.T) {
	fs := newFakeStore()
	fs.failAll = true
	c := New(fs, time.Minute, zerolog.Nop())

	snap := c.GetAll(context.Background())
	if snap.Provider != DefaultProvider {
		t.Fatalf("store failure should still yield defaults, got %+v", snap)
	}
}

func TestGetAllReadsStoredValues(t *testing.T) {
	fs := newFakeStore()
	fs.data[kvstore.KeyProvider] = "anthropic"
	fs.data[kvstore.KeyModelName] = "claude-sonnet-4-20250514"
	fs.data[kvstore.KeyLogPrompt] = "true"

	c := New(fs, time.Minute, zerolog.Nop())
	snap := c.GetAll(context.Background())
	if snap.Provider != "anthropic" || snap.Model != "claude-sonnet-4-20250514" {
		t.Fatalf("stored values not read: %+v", snap)
	}
	if !snap.Prompts.Reasoning {
		t.Fatal("reasoning flag not read")
	}
}

func TestGetAllUsesCacheWithinTTL(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, time.Minute, zerolog.Nop())

	c.GetAll(context.Background())
	afterFirst := fs.reads.Load()
	c.GetAll(context.Background())
	if fs.reads.Load() != afterFirst {
		t.Fatal("second GetAll within TTL hit the store")
	}
}

func TestInvalidateForcesRefresh(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, time.Hour, zerolog.Nop())

	c.GetAll(context.Background())
	fs.data[kvstore.KeyProvider] = "xai"
	c.Invalidate()

	snap := c.GetAll(context.Background())
	if snap.Provider != "xai" {
		t.Fatalf("invalidate did not force a fresh read: %+v", snap)
	}
}

func TestTTLExpiryTriggersRefresh(t *testing.T) {
	fs := newFakeStore()
	c := New(fs, time.Minute, zerolog.Nop())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	var mu sync.Mutex
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	c.GetAll(context.Background())
	fs.data[kvstore.KeyModelName] = "grok-3"

	mu.Lock()
	current = base.Add(2 * time.Minute)
	mu.Unlock()

	snap := c.GetAll(context.Background())
	if snap.Model != "grok-3" {
		t.Fatalf("TTL expiry did not refresh: %+v", snap)
	}
}

func TestColdCacheSingleFlight(t *testing.T) {
	fs := newFakeStore()
	fs.block = make(chan struct{})
	c := New(fs, time.Minute, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetAll(context.Background())
		}()
	}

	// Both callers are now queued behind one refresh. Each refresh issues
	// one read per tracked key; a duplicate refresh would double that.
	time.Sleep(50 * time.Millisecond)
	close(fs.block)
	wg.Wait()

	const trackedKeys = 9
	if got := fs.reads.Load(); got != trackedKeys {
		t.Fatalf("expected %d store reads for one shared refresh, got %d", trackedKeys, got)
	}
}
