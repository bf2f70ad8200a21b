package keycache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"gapo-hq/keygate/pkg/iam"
)

// Fetcher returns the authority's current full key list.
// *iam.Client implements it.
type Fetcher interface {
	FetchKeys(ctx context.Context) ([]iam.APIKeyRecord, error)
}

// Observer receives cache events, typically to record metrics.
type Observer interface {
	ObserveLookup(result string)
	ObserveRefresh(outcome string, size int, duration time.Duration)
}

// Lookup results passed to Observer.
const (
	LookupHit  = "hit"
	LookupMiss = "miss"
)

// Refresh outcomes passed to Observer.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
)

const refreshKey = "refresh"

// Options configures a Cache.
type Options struct {
	// Coalesce makes concurrent refreshes share one in-flight fetch.
	Coalesce bool

	Logger   *slog.Logger
	Observer Observer
}

// snapshot is never modified after it is published.
type snapshot struct {
	keys      map[string]string
	version   uint64
	createdAt time.Time
}

// Cache maps API keys to their source service.
type Cache struct {
	fetcher  Fetcher
	snap     atomic.Pointer[snapshot]
	mergeMu  sync.Mutex
	group    singleflight.Group
	coalesce bool
	logger   *slog.Logger
	observer Observer
}

// New creates an empty Cache. Call Warm before serving traffic.
func New(fetcher Fetcher, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		fetcher:  fetcher,
		coalesce: opts.Coalesce,
		logger:   logger.With("component", "keycache"),
		observer: opts.Observer,
	}
	c.snap.Store(&snapshot{keys: map[string]string{}})
	return c
}

// Lookup returns the source for key without blocking.
func (c *Cache) Lookup(key string) (string, bool) {
	source, ok := c.snap.Load().keys[key]
	if c.observer != nil {
		if ok {
			c.observer.ObserveLookup(LookupHit)
		} else {
			c.observer.ObserveLookup(LookupMiss)
		}
	}
	return source, ok
}

// RefreshAndLookup refreshes the cache from the authority and then looks
// up key in the refreshed mapping. A failed refresh leaves the cache as it
// was; the lookup still runs against it. The lookup is not reported to the
// Observer, since the caller already recorded the miss that led here.
func (c *Cache) RefreshAndLookup(ctx context.Context, key string) (string, bool) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("key refresh failed, using existing keys",
			"error", err,
			"size", c.Len(),
		)
	}
	source, ok := c.snap.Load().keys[key]
	return source, ok
}

// Refresh fetches the authority's key list and merges it into the cache.
func (c *Cache) Refresh(ctx context.Context) error {
	if !c.coalesce {
		return c.refresh(ctx)
	}

	// The shared fetch must not die with whichever caller started it.
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return nil, c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) refresh(ctx context.Context) error {
	start := time.Now()
	records, err := c.fetcher.FetchKeys(ctx)
	if err != nil {
		c.observeRefresh(RefreshFailure, time.Since(start))
		return err
	}
	c.Merge(records)
	c.observeRefresh(RefreshSuccess, time.Since(start))
	c.logger.Debug("keys refreshed", "received", len(records), "size", c.Len())
	return nil
}

func (c *Cache) observeRefresh(outcome string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRefresh(outcome, c.Len(), d)
	}
}

// Merge inserts or overwrites every record and publishes the result
// atomically. Later records win over earlier ones with the same key.
func (c *Cache) Merge(records []iam.APIKeyRecord) {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	prev := c.snap.Load()
	next := make(map[string]string, len(prev.keys)+len(records))
	for k, v := range prev.keys {
		next[k] = v
	}
	for _, r := range records {
		if r.APIKey == "" {
			continue
		}
		next[r.APIKey] = r.Source
	}

	c.snap.Store(&snapshot{
		keys:      next,
		version:   prev.version + 1,
		createdAt: time.Now(),
	})
}

// Warm performs the initial refresh. The error is logged and returned, but
// the cache stays usable (and empty) on failure.
func (c *Cache) Warm(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("initial key fetch failed, starting with empty cache", "error", err)
		return err
	}
	c.logger.Info("key cache warmed", "size", c.Len())
	return nil
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	return len(c.snap.Load().keys)
}

// Snapshot returns a copy of the current mapping.
func (c *Cache) Snapshot() map[string]string {
	keys := c.snap.Load().keys
	out := make(map[string]string, len(keys))
	for k, v := range keys {
		out[k] = v
	}
	return out
}

// Version increments on every merge. Zero means never merged.
func (c *Cache) Version() uint64 {
	return c.snap.Load().version
}

// LastRefresh returns when the current snapshot was published, or the zero
// time if no merge has happened.
func (c *Cache) LastRefresh() time.Time {
	return c.snap.Load().createdAt
}
