package translation

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/cache"
	"github.com/yoockh/speechrelay/internal/metrics"
)

const (
	DefaultTTL           = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

type cacheKey struct {
	text, source, target string
}

type entry struct {
	Translated string    `json:"translated"`
	Detected   string    `json:"detected,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`

	// Echo of the key so a hashed remote key can be verified on read.
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type CacheConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Now           func() time.Time

	// Remote is an optional second tier shared between instances.
	Remote cache.Cache

	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// Cache memoizes translations keyed by the exact (text, source, target) triple.
// Expired entries read as misses and are purged by Sweep.
type Cache struct {
	m        sync.Map // cacheKey -> *entry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	remote   cache.Cache
	log      *logrus.Logger
	metrics  *metrics.Metrics
}

func NewCache(cfg CacheConfig) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Cache{
		ttl:      cfg.TTL,
		interval: cfg.SweepInterval,
		now:      cfg.Now,
		remote:   cfg.Remote,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Lookup consults the in-memory tier only.
func (c *Cache) Lookup(text, source, target string) (string, bool) {
	e, ok := c.lookup(cacheKey{text, source, target})
	if !ok {
		return "", false
	}
	return e.Translated, true
}

func (c *Cache) lookup(k cacheKey) (*entry, bool) {
	v, ok := c.m.Load(k)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if !c.now().Before(e.ExpiresAt) {
		return nil, false
	}
	return e, true
}

// Store records a translation in memory with a fresh TTL.
func (c *Cache) Store(text, source, target, translated string) {
	c.store(cacheKey{text, source, target}, translated, "")
}

func (c *Cache) store(k cacheKey, translated, detected string) *entry {
	e := &entry{
		Translated: translated,
		Detected:   detected,
		ExpiresAt:  c.now().Add(c.ttl),
		Text:       k.text,
		Source:     k.source,
		Target:     k.target,
	}
	c.m.Store(k, e)
	return e
}

func remoteKey(k cacheKey) string {
	return cache.HashKey("tr", k.text, k.source, k.target)
}

// get checks memory, then the remote tier. Remote hits are promoted into memory
// keeping their original expiry.
func (c *Cache) get(ctx context.Context, k cacheKey) (*entry, bool) {
	if e, ok := c.lookup(k); ok {
		c.count("memory", "hit")
		return e, true
	}
	c.count("memory", "miss")
	if c.remote == nil {
		return nil, false
	}

	var e entry
	hit, err := c.remote.GetJSON(ctx, remoteKey(k), &e)
	if err != nil {
		c.log.WithError(err).Warn("translation cache remote read failed")
		c.count("remote", "error")
		return nil, false
	}
	if !hit || e.Text != k.text || e.Source != k.source || e.Target != k.target || !c.now().Before(e.ExpiresAt) {
		c.count("remote", "miss")
		return nil, false
	}
	c.count("remote", "hit")
	c.m.Store(k, &e)
	return &e, true
}

func (c *Cache) put(ctx context.Context, k cacheKey, translated, detected string) {
	e := c.store(k, translated, detected)
	if c.remote == nil {
		return
	}
	if err := c.remote.SetJSON(ctx, remoteKey(k), e, e.ExpiresAt.Sub(c.now())); err != nil {
		c.log.WithError(err).Warn("translation cache remote write failed")
	}
}

func (c *Cache) count(tier, result string) {
	if c.metrics != nil {
		c.metrics.TranslationCache.WithLabelValues(tier, result).Inc()
	}
}

// Sweep deletes expired entries and returns how many it removed.
func (c *Cache) Sweep() int {
	now := c.now()
	removed, kept := 0, 0
	c.m.Range(func(k, v any) bool {
		if !now.Before(v.(*entry).ExpiresAt) {
			c.m.CompareAndDelete(k, v)
			removed++
		} else {
			kept++
		}
		return true
	})
	if c.metrics != nil {
		c.metrics.TranslationCacheEntries.Set(float64(kept))
	}
	return removed
}

func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Run sweeps on every interval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.Sweep(); n > 0 {
				c.log.WithField("removed", n).Info("translation cache sweep")
			}
		}
	}
}
