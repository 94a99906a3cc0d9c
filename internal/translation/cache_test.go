package translation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// memRemote is an in-process stand-in for the Redis tier.
type memRemote struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemRemote() *memRemote {
	return &memRemote{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memRemote) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memRemote) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = b
	m.ttls[key] = ttl
	m.mu.Unlock()
	return nil
}

func (m *memRemote) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func TestCacheTTLBoundary(t *testing.T) {
	clk := newClock()
	c := NewCache(CacheConfig{Now: clk.Now})
	c.Store("good morning", "en", "es", "buenos días")

	clk.Advance(23*time.Hour + 59*time.Minute)
	if got, ok := c.Lookup("good morning", "en", "es"); !ok || got != "buenos días" {
		t.Fatalf("Lookup at T+23h59m = %q, %v; want hit", got, ok)
	}

	clk.Advance(2 * time.Minute)
	if _, ok := c.Lookup("good morning", "en", "es"); ok {
		t.Fatal("Lookup at T+24h01m should miss")
	}
	if c.Len() != 1 {
		t.Error("expired entry should stay until the sweep")
	}
	if n := c.Sweep(); n != 1 || c.Len() != 0 {
		t.Errorf("Sweep() = %d, Len() = %d; want 1 and 0", n, c.Len())
	}
}

func TestCacheKeyIsLiteral(t *testing.T) {
	c := NewCache(CacheConfig{})
	c.Store("Hello", "en", "es", "Hola")

	for _, k := range [][3]string{{"hello", "en", "es"}, {"Hello ", "en", "es"}, {"Hello", "en-US", "es"}} {
		if _, ok := c.Lookup(k[0], k[1], k[2]); ok {
			t.Errorf("unexpected hit for %q", k)
		}
	}
}

func TestCacheSweepKeepsFresh(t *testing.T) {
	clk := newClock()
	c := NewCache(CacheConfig{Now: clk.Now})
	c.Store("a", "en", "fr", "a-fr")
	clk.Advance(12 * time.Hour)
	c.Store("b", "en", "fr", "b-fr")
	clk.Advance(13 * time.Hour)

	if n := c.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, ok := c.Lookup("b", "en", "fr"); !ok {
		t.Error("fresh entry was swept")
	}
}

func TestCacheRemoteTierPromotes(t *testing.T) {
	clk := newClock()
	remote := newMemRemote()
	writer := NewCache(CacheConfig{Now: clk.Now, Remote: remote})
	writer.put(context.Background(), cacheKey{"thanks", "en", "de"}, "danke", "")

	if ttl := remote.ttls[remoteKey(cacheKey{"thanks", "en", "de"})]; ttl != DefaultTTL {
		t.Errorf("remote ttl = %v, want %v", ttl, DefaultTTL)
	}

	clk.Advance(time.Hour)
	reader := NewCache(CacheConfig{Now: clk.Now, Remote: remote})
	e, ok := reader.get(context.Background(), cacheKey{"thanks", "en", "de"})
	if !ok || e.Translated != "danke" {
		t.Fatalf("remote lookup = %v, %v", e, ok)
	}
	if _, ok := reader.Lookup("thanks", "en", "de"); !ok {
		t.Error("remote hit was not promoted into memory")
	}

	// Promotion keeps the original expiry.
	clk.Advance(23*time.Hour + time.Minute)
	if _, ok := reader.Lookup("thanks", "en", "de"); ok {
		t.Error("promoted entry outlived its original TTL")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewCache(CacheConfig{SweepInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
