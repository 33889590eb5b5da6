// Package noncecache implements the server-wide replay-protection cache:
// it enforces signature timestamp freshness and rejects any nonce it has
// already seen, consuming a nonce only when both checks pass.
package noncecache

import (
	"sync"
	"time"

	"github.com/oxidetalis-go/otmpd/crypto"
	"github.com/oxidetalis-go/otmpd/internal/metrics"
)

// FreshnessWindow is the maximum age of an acceptable signature. A
// signature timestamped in the future is rejected outright.
const FreshnessWindow = 20 * time.Second

// defaultTTL mirrors FreshnessWindow with headroom: an entry only needs
// to live long enough that a replay of the same signature would in any
// case fail freshness, plus a small margin for clock jitter.
const defaultTTL = 30 * time.Second

// perEntryOverhead approximates a nonce cache slot (16-byte key, 8-byte
// expiry, plus Go map bucket overhead) for translating a configured byte
// budget into a slot count.
const perEntryOverhead = 18 + 32 // nonce/timestamp pair plus map overhead estimate

type entry struct {
	expiresAt time.Time
}

// Cache is a capacity- and TTL-bounded set of recently seen nonces.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[[16]byte]entry
	order    []nonceEntry

	stop chan struct{}
}

type nonceEntry struct {
	nonce     [16]byte
	expiresAt time.Time
}

// NewCache creates a cache sized to hold byteBudget worth of entries,
// evicting the oldest tenth of its entries (at least one) whenever a new
// one would exceed that count.
// A background loop also reaps TTL-expired entries every second.
func NewCache(byteBudget int) *Cache {
	capacity := byteBudget / perEntryOverhead
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache{
		ttl:      defaultTTL,
		capacity: capacity,
		entries:  make(map[[16]byte]entry, capacity),
		stop:     make(chan struct{}),
	}
	go c.reapLoop()
	return c
}

// Close stops the background reaper.
func (c *Cache) Close() {
	close(c.stop)
}

// CheckAndConsume enforces spec: the signature's timestamp must be
// within FreshnessWindow of now, and its nonce must not already be
// cached. Only when both hold is the nonce inserted; in every other
// case the cache is left unchanged.
func (c *Cache) CheckAndConsume(sig *crypto.Signature) bool {
	now := time.Now()
	age := now.Unix() - int64(sig.Timestamp)
	if age < 0 || age > int64(FreshnessWindow.Seconds()) {
		metrics.NonceValidations.WithLabelValues("stale_timestamp").Inc()
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[sig.Nonce]; ok && e.expiresAt.After(now) {
		metrics.GetGlobalCollector().RecordNonceLookup(true)
		metrics.NonceValidations.WithLabelValues("replay").Inc()
		metrics.ReplayAttacksDetected.Inc()
		return false
	}

	c.evictIfFullLocked()

	expiresAt := now.Add(c.ttl)
	c.entries[sig.Nonce] = entry{expiresAt: expiresAt}
	c.order = append(c.order, nonceEntry{nonce: sig.Nonce, expiresAt: expiresAt})
	metrics.GetGlobalCollector().RecordNonceLookup(false)
	metrics.NonceValidations.WithLabelValues("accepted").Inc()
	metrics.NonceCacheSize.Set(float64(len(c.entries)))
	return true
}

// evictIfFullLocked drops the oldest ~10% of entries once the cache hits
// capacity, trading exact LRU ordering for a cheap append-only eviction
// queue; the TTL reaper is the authoritative bound, this just keeps the
// map from growing past its byte budget between reaps. Callers must
// hold c.mu.
func (c *Cache) evictIfFullLocked() {
	if len(c.entries) < c.capacity {
		return
	}
	toEvict := len(c.entries) / 10
	if toEvict < 1 {
		toEvict = 1
	}
	for i := 0; i < toEvict && len(c.order) > 0; {
		oldest := c.order[0]
		c.order = c.order[1:]
		if e, ok := c.entries[oldest.nonce]; ok && e.expiresAt.Equal(oldest.expiresAt) {
			delete(c.entries, oldest.nonce)
			metrics.NonceCacheEvictions.WithLabelValues("capacity").Inc()
			i++
		}
	}
}

func (c *Cache) reapLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.reapExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) reapExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.order) > 0 && !c.order[0].expiresAt.After(now) {
		stale := c.order[0]
		c.order = c.order[1:]
		if e, ok := c.entries[stale.nonce]; ok && !e.expiresAt.After(now) {
			delete(c.entries, stale.nonce)
			metrics.NonceCacheEvictions.WithLabelValues("ttl_expired").Inc()
		}
	}
	metrics.NonceCacheSize.Set(float64(len(c.entries)))
}

// Len reports the current number of cached nonces, for diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
