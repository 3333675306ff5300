package weather

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"eemeter/internal/model"
)

// DefaultCacheTTL applies when WEATHER_CACHE_TTL is unset or invalid.
const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	series    *Series
	expiresAt time.Time
}

// Cache holds fetched series in memory until they expire. A nil *Cache is
// valid and caches nothing.
type Cache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
	sched *gocron.Scheduler
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{store: make(map[string]*cacheEntry), ttl: ttl, now: time.Now}
}

// CacheFromEnv returns a cache with the TTL in WEATHER_CACHE_TTL, or nil when
// the variable is "0" or "off".
func CacheFromEnv() *Cache {
	raw := os.Getenv("WEATHER_CACHE_TTL")
	switch raw {
	case "0", "off":
		return nil
	case "":
		return NewCache(DefaultCacheTTL)
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("[weather] invalid WEATHER_CACHE_TTL %q, using %s", raw, DefaultCacheTTL)
		ttl = DefaultCacheTTL
	}
	return NewCache(ttl)
}

func (c *Cache) Get(key string) (*Series, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.series, true
}

func (c *Cache) Set(key string, s *Series) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = &cacheEntry{series: s, expiresAt: c.now().Add(c.ttl)}
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*cacheEntry)
}

// Purge removes expired entries and returns how many were dropped.
func (c *Cache) Purge() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
			n++
		}
	}
	return n
}

// StartCleanup schedules Purge every interval until Stop is called.
func (c *Cache) StartCleanup(interval time.Duration) error {
	if c == nil {
		return nil
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(interval).Do(func() {
		if n := c.Purge(); n > 0 {
			log.Printf("[weather] cache purged %d expired entries", n)
		}
	}); err != nil {
		return fmt.Errorf("schedule cache cleanup: %w", err)
	}
	s.StartAsync()
	c.mu.Lock()
	c.sched = s
	c.mu.Unlock()
	return nil
}

func (c *Cache) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	s := c.sched
	c.sched = nil
	c.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// CacheKey identifies a daily-temperature request.
func CacheKey(lat, lon float64, start, end time.Time, unit model.TempUnit) string {
	raw := fmt.Sprintf("%.4f:%.4f:%s:%s:%s", lat, lon, dateKey(start), dateKey(end), unit)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
