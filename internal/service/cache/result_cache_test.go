package cache

import (
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

func sampleIntervals(base time.Time, prices ...float64) []models.PriceInterval {
	iv := make([]models.PriceInterval, len(prices))
	for i, p := range prices {
		iv[i] = models.PriceInterval{
			Start:    base.Add(time.Duration(i) * time.Hour),
			Duration: time.Hour,
			Zone:     "NO1",
			Price:    p,
		}
	}
	return iv
}

func TestResultCacheRoundtrip(t *testing.T) {
	c := NewResultCache(time.Minute)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	iv := sampleIntervals(base, 20, 21, 22)

	key := c.Key("NO1", "2026-03-01", "best|10", iv)
	if _, ok := c.Get(key); ok {
		t.Fatalf("unexpected hit before put")
	}
	dr := &models.DayResult{Date: "2026-03-01", Zone: "NO1"}
	c.Put("NO1", "2026-03-01", key, dr)
	got, ok := c.Get(key)
	if !ok || got != dr {
		t.Fatalf("roundtrip failed: %v %v", got, ok)
	}
}

func TestResultCacheKeySensitivity(t *testing.T) {
	c := NewResultCache(time.Minute)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	iv := sampleIntervals(base, 20, 21, 22)

	key := c.Key("NO1", "2026-03-01", "best|10", iv)
	if k := c.Key("NO1", "2026-03-01", "best|15", iv); k == key {
		t.Fatalf("criteria change must change the key")
	}
	changed := sampleIntervals(base, 20, 21.5, 22)
	if k := c.Key("NO1", "2026-03-01", "best|10", changed); k == key {
		t.Fatalf("price change must change the key")
	}
	leveled := sampleIntervals(base, 20, 21, 22)
	leveled[1].Level = models.LevelCheap
	if k := c.Key("NO1", "2026-03-01", "best|10", leveled); k == key {
		t.Fatalf("level change must change the key")
	}
	if k := c.Key("NO2", "2026-03-01", "best|10", iv); k == key {
		t.Fatalf("zone change must change the key")
	}
}

// A new generation for the same day retires the old entry even though its TTL
// has not expired.
func TestResultCacheWholesaleReplacement(t *testing.T) {
	c := NewResultCache(time.Hour)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	oldKey := c.Key("NO1", "2026-03-01", "best|10", sampleIntervals(base, 20, 21, 22))
	newKey := c.Key("NO1", "2026-03-01", "best|10", sampleIntervals(base, 20, 25, 22))
	c.Put("NO1", "2026-03-01", oldKey, &models.DayResult{Date: "2026-03-01"})
	c.Put("NO1", "2026-03-01", newKey, &models.DayResult{Date: "2026-03-01"})

	if _, ok := c.Get(oldKey); ok {
		t.Fatalf("previous generation must be retired")
	}
	if _, ok := c.Get(newKey); !ok {
		t.Fatalf("current generation must be served")
	}
}

// Best and peak results for the same day are separate generations: storing
// one must not retire the other.
func TestResultCacheDirectionsCoexist(t *testing.T) {
	c := NewResultCache(time.Hour)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	iv := sampleIntervals(base, 20, 21, 22)

	bestKey := c.Key("NO1", "2026-03-01", "best|10", iv)
	peakKey := c.Key("NO1", "2026-03-01", "peak|-10", iv)
	c.Put("NO1", "2026-03-01", bestKey, &models.DayResult{Date: "2026-03-01", Direction: models.DirectionBest})
	c.Put("NO1", "2026-03-01", peakKey, &models.DayResult{Date: "2026-03-01", Direction: models.DirectionPeak})

	if _, ok := c.Get(bestKey); !ok {
		t.Fatalf("best generation retired by the peak put")
	}
	if _, ok := c.Get(peakKey); !ok {
		t.Fatalf("peak generation missing")
	}

	c.Invalidate("NO1", "2026-03-01")
	if _, ok := c.Get(bestKey); ok {
		t.Fatalf("best generation survived invalidation")
	}
	if _, ok := c.Get(peakKey); ok {
		t.Fatalf("peak generation survived invalidation")
	}
}

func TestResultCacheInvalidate(t *testing.T) {
	c := NewResultCache(time.Hour)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	key := c.Key("NO1", "2026-03-01", "best|10", sampleIntervals(base, 20, 21, 22))
	c.Put("NO1", "2026-03-01", key, &models.DayResult{Date: "2026-03-01"})

	c.Invalidate("NO1", "2026-03-01")
	if _, ok := c.Get(key); ok {
		t.Fatalf("invalidated day still served")
	}
	c.Invalidate("NO1", "2026-03-02") // unknown day is a no-op
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", time.Nanosecond)
	time.Sleep(2 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry still served")
	}
	c.Set("p", "v", 0) // no TTL means no expiry
	if _, ok := c.Get("p"); !ok {
		t.Fatalf("persistent entry missing")
	}
	c.Delete("p")
	if _, ok := c.Get("p"); ok {
		t.Fatalf("deleted entry still served")
	}
}
