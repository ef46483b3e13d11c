package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/instaweb/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key for a template source (file path or URL)
func Key(source string) string {
	hash := sha256.Sum256([]byte(source))
	return "instaweb:template:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. Layered adds a disk tier under DiskDir.
func New(cfg model.CacheConfig) Cache {
	if cfg.Layered && cfg.DiskDir != "" {
		return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL)
	}
	return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
}
