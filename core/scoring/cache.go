package scoring

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"

	"github.com/dgraph-io/ristretto"
)

const defaultCacheEntries = 4096

// Cache memoizes results keyed by both samples and the full coefficient
// set, so engines with different weights never serve each other's scores.
// Results are plain values; no cloning is needed on either side.
type Cache struct {
	mu     sync.RWMutex
	cache  *ristretto.Cache
	closed bool
}

// CacheStats reports hit accounting.
type CacheStats struct {
	Hits   uint64  `json:"hits"`
	Misses uint64  `json:"misses"`
	Ratio  float64 `json:"ratio"`
}

// NewCache creates a result cache holding at most maxEntries results.
// Zero or negative selects the default size.
func NewCache(maxEntries int64) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{cache: rc}, nil
}

// Get returns a cached result for the exact (A, B, coefficients) triple.
func (c *Cache) Get(a, b TextSample, coeffs Coefficients) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return Result{}, false
	}

	value, ok := c.cache.Get(cacheKey(a, b, coeffs))
	if !ok {
		return Result{}, false
	}
	result, ok := value.(Result)
	return result, ok
}

// Set stores a result. Each entry costs one unit regardless of text size;
// the texts themselves are not retained.
func (c *Cache) Set(a, b TextSample, coeffs Coefficients, result Result) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.cache.Set(cacheKey(a, b, coeffs), result, 1)
}

// Wait blocks until buffered writes are applied. Mainly a test aid.
func (c *Cache) Wait() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.closed {
		c.cache.Wait()
	}
}

// Stats returns hit accounting since creation.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return CacheStats{}
	}

	stats := CacheStats{
		Hits:   c.cache.Metrics.Hits(),
		Misses: c.cache.Metrics.Misses(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.Ratio = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close releases the cache. Subsequent calls are no-ops.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cache.Close()
}

// cacheKey hashes both texts length-prefixed plus the coefficient values,
// so neither concatenation ambiguity nor weight changes can alias entries.
func cacheKey(a, b TextSample, coeffs Coefficients) string {
	h := sha256.New()
	var buf [8]byte

	writeString := func(s string) {
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	writeFloat := func(f float64) {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}

	writeString(a.text)
	writeString(b.text)
	writeFloat(coeffs.Alpha)
	writeFloat(coeffs.Beta)
	writeFloat(coeffs.Gamma)
	writeString(coeffs.TopologyVersion)

	return string(h.Sum(nil))
}
