package exercises

import (
	"errors"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
)

var listCacheKey = []byte("exercises:list")

// ListCache keeps the encoded exercise list in memory between writes.
// A nil *ListCache is valid and never hits.
type ListCache struct {
	cache          *freecache.Cache
	expireSeconds  int
	metricsManager *metrics.Manager
}

func NewListCache(sizeMB int, ttl time.Duration, metricsManager *metrics.Manager) *ListCache {
	return &ListCache{
		cache:          freecache.NewCache(sizeMB * 1024 * 1024),
		expireSeconds:  int(ttl.Seconds()),
		metricsManager: metricsManager,
	}
}

func (c *ListCache) Get() ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	val, err := c.cache.Get(listCacheKey)
	if err != nil {
		if !errors.Is(err, freecache.ErrNotFound) {
			log.Warnf("exercise list cache get: %s", err)
		}
		c.observe("miss")
		return nil, false
	}

	c.observe("hit")
	return val, true
}

func (c *ListCache) Set(encodedList []byte) {
	if c == nil {
		return
	}
	if err := c.cache.Set(listCacheKey, encodedList, c.expireSeconds); err != nil {
		// entry larger than the cache can hold; serve from db
		log.Warnf("exercise list cache set (%d bytes): %s", len(encodedList), err)
	}
}

func (c *ListCache) Invalidate() {
	if c == nil {
		return
	}
	c.cache.Del(listCacheKey)
}

func (c *ListCache) observe(result string) {
	if c.metricsManager != nil {
		c.metricsManager.CounterExerciseCache.WithLabelValues(result).Inc()
	}
}
