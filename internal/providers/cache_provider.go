package providers

import (
	"antislack/internal/structures"
	"time"
	"unsafe"

	"github.com/coocood/freecache"
)

// minCacheBytes is the smallest segment layout freecache accepts.
const minCacheBytes = 512 * 1024

// CacheProviderInterface is a short-lived key/value store with per-entry TTL.
// It backs debounce keys, issued bypass challenges and undo tokens.
type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	// SetIfAbsent stores value only when key is missing and reports whether it did.
	SetIfAbsent(key string, value []byte, ttl time.Duration) bool
	Del(key string) bool
}

type CacheProvider struct {
	cache *freecache.Cache
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	sizeBytes := conf.Cache.Size * 1024 * 1024
	if sizeBytes < minCacheBytes {
		sizeBytes = minCacheBytes
	}

	logger.Infof(TypeApp, "Cache initialized: %d bytes", sizeBytes)

	return &CacheProvider{
		cache: freecache.NewCache(sizeBytes),
	}
}

// unsafeStringToBytes converts string to []byte without allocation.
// freecache copies keys internally, so the result is never written to.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func ttlSeconds(ttl time.Duration) int {
	return max(int(ttl/time.Second), 1)
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *CacheProvider) Set(key string, value []byte, ttl time.Duration) {
	_ = c.cache.Set(unsafeStringToBytes(key), value, ttlSeconds(ttl))
}

func (c *CacheProvider) SetIfAbsent(key string, value []byte, ttl time.Duration) bool {
	prev, err := c.cache.GetOrSet(unsafeStringToBytes(key), value, ttlSeconds(ttl))
	return err == nil && prev == nil
}

func (c *CacheProvider) Del(key string) bool {
	return c.cache.Del(unsafeStringToBytes(key))
}
