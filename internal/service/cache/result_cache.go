package cache

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"GridPulse/internal/domain/models"
)

const DefaultResultTTL = 6 * time.Hour

// ResultCache memoizes per-day detection outcomes. A key binds the exact
// computation input: zone, date, criteria fingerprint and a digest of the
// ordered price/level sequence, so any input change misses cleanly instead of
// serving a stale result.
//
// Replacement is wholesale: storing a day under a new key atomically drops
// the previous generation for that zone, date and direction, so the cache
// never holds two results for the same day and direction at once. Best and
// peak generations for one day coexist.
type ResultCache struct {
	ttl   time.Duration
	store *TTLCache

	mu    sync.Mutex
	byDay map[string]string // zone|date|direction -> currently active key
}

func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{
		ttl:   ttl,
		store: NewTTLCache(),
		byDay: make(map[string]string),
	}
}

// Key digests everything the engine's day computation depends on.
func (c *ResultCache) Key(zone, date, fingerprint string, iv []models.PriceInterval) string {
	h := fnv.New64a()
	h.Write([]byte(zone))
	h.Write([]byte{0})
	h.Write([]byte(date))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	var buf [8]byte
	for i := range iv {
		binary.LittleEndian.PutUint64(buf[:], uint64(iv[i].Start.UnixNano()))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(iv[i].Duration))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(iv[i].Price))
		h.Write(buf[:])
		h.Write([]byte{byte(iv[i].Level)})
	}
	return fmt.Sprintf("detect:%s:%s:%016x", zone, date, h.Sum64())
}

func (c *ResultCache) Get(key string) (*models.DayResult, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	dr, ok := v.(*models.DayResult)
	return dr, ok
}

// Put stores a day result and retires the previous generation for the same
// zone, date and direction, if any.
func (c *ResultCache) Put(zone, date, key string, dr *models.DayResult) {
	c.mu.Lock()
	dayKey := zone + "|" + date + "|" + string(dr.Direction)
	if old, ok := c.byDay[dayKey]; ok && old != key {
		c.store.Delete(old)
	}
	c.byDay[dayKey] = key
	c.mu.Unlock()
	c.store.Set(key, dr, c.ttl)
}

// Invalidate drops whatever is cached for the given zone and date, in every
// direction.
func (c *ResultCache) Invalidate(zone, date string) {
	prefix := zone + "|" + date + "|"
	c.mu.Lock()
	for dayKey, key := range c.byDay {
		if strings.HasPrefix(dayKey, prefix) {
			c.store.Delete(key)
			delete(c.byDay, dayKey)
		}
	}
	c.mu.Unlock()
}
