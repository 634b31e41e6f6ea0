package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/sync/singleflight"

	"courtstats/internal/core"
	"courtstats/internal/metrics"
)

// ReportCache memoizes analysis reports. Concurrent misses for the same key
// share a single computation.
type ReportCache struct {
	store *LRUCache[core.Report]
	group singleflight.Group
}

func NewReportCache(maxSize int, ttl time.Duration) *ReportCache {
	return &ReportCache{store: NewLRUCache[core.Report](maxSize, ttl)}
}

// Digest returns the hex SHA-256 of an uploaded workbook.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached report for key or runs compute once.
// Errors are not cached; the partial report compute returned alongside an
// error is passed through so callers can still show row warnings.
func (c *ReportCache) GetOrCompute(key string, compute func() (core.Report, error)) (core.Report, error) {
	if r, ok := c.store.Get(key); ok {
		metrics.RecordCacheLookup(metrics.OutcomeHit)
		return r, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		if r, ok := c.store.Get(key); ok {
			return r, nil
		}
		r, err := compute()
		if err != nil {
			return r, err
		}
		c.store.Set(key, r)
		metrics.SetCacheEntries(c.store.Size())
		return r, nil
	})
	if shared {
		metrics.RecordCacheLookup(metrics.OutcomeShared)
	} else {
		metrics.RecordCacheLookup(metrics.OutcomeMiss)
	}
	r, _ := v.(core.Report)
	return r, err
}

// Invalidate drops the report stored under key.
func (c *ReportCache) Invalidate(key string) {
	c.store.Delete(key)
	metrics.SetCacheEntries(c.store.Size())
}

func (c *ReportCache) Size() int {
	return c.store.Size()
}

// CleanExpired satisfies Cleaner so a Manager can sweep the cache.
func (c *ReportCache) CleanExpired() int {
	n := c.store.CleanExpired()
	metrics.SetCacheEntries(c.store.Size())
	return n
}
