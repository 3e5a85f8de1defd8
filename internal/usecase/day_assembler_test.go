package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
	"GridPulse/internal/engine"
	"GridPulse/internal/service/cache"
)

type fakeMetrics struct {
	cacheOps []string
	errors   []string
}

func (m *fakeMetrics) RecordDayComputed(zone, direction, outcome string) {}
func (m *fakeMetrics) RecordPeriods(zone, direction string, n int)       {}
func (m *fakeMetrics) RecordRelaxAttempts(n int)                         {}
func (m *fakeMetrics) RecordDegenerateDay(zone string)                   {}
func (m *fakeMetrics) RecordCacheOp(result string)                       { m.cacheOps = append(m.cacheOps, result) }
func (m *fakeMetrics) RecordIntervalsStored(backend, zone string, n int) {}
func (m *fakeMetrics) RecordError(kind string)                           { m.errors = append(m.errors, kind) }
func (m *fakeMetrics) RecordLastPrice(zone string, price float64)        {}
func (m *fakeMetrics) RecordLatency(op string, seconds float64)          {}

type fakeFetcher struct {
	days  map[string][]models.PriceInterval
	calls int
}

func (f *fakeFetcher) FetchDay(ctx context.Context, zone, date string) ([]models.PriceInterval, error) {
	f.calls++
	iv, ok := f.days[date]
	if !ok {
		return nil, fmt.Errorf("curve fetch %s %s: day not published", zone, date)
	}
	return iv, nil
}

func dayIntervals(zone, date string, prices []float64) []models.PriceInterval {
	day, _ := time.Parse("2006-01-02", date)
	iv := make([]models.PriceInterval, len(prices))
	for i, p := range prices {
		iv[i] = models.PriceInterval{
			Start:    day.Add(time.Duration(i) * time.Hour),
			Duration: time.Hour,
			Zone:     zone,
			Price:    p,
			Smoothed: p,
		}
	}
	return iv
}

var twoWindowPrices = []float64{
	18, 19, 20, 28, 29, 30, 35, 34, 33, 32, 30, 28,
	25, 24, 26, 28, 30, 32, 31, 22, 21, 20, 19, 18,
}

func testAssembler(f *fakeFetcher, m *fakeMetrics) *DayAssembler {
	det := NewDetector(engine.New(), cache.NewResultCache(0), m, nil)
	best := models.Criteria{Direction: models.DirectionBest, FlexPct: 15, MinDistancePct: 2, MinDuration: 3 * time.Hour, TargetCount: 1, MaxAttempts: 8}
	peak := models.Criteria{Direction: models.DirectionPeak, FlexPct: -15, MinDistancePct: 2, MinDuration: 3 * time.Hour, TargetCount: 1, MaxAttempts: 8}
	return NewDayAssembler(f, det, nil, m, nil, best, peak)
}

func TestBackfillDetectsBothDirections(t *testing.T) {
	f := &fakeFetcher{days: map[string][]models.PriceInterval{
		"2026-01-10": dayIntervals("NO1", "2026-01-10", twoWindowPrices),
	}}
	m := &fakeMetrics{}
	a := testAssembler(f, m)

	best, peak, err := a.Backfill(context.Background(), "NO1", "2026-01-10")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(best.Periods) != 2 {
		t.Fatalf("best periods = %d, want 2", len(best.Periods))
	}
	if h := best.Periods[0].Start.Hour(); h != 0 {
		t.Fatalf("first best period starts hour %d, want 0", h)
	}
	if len(peak.Periods) == 0 {
		t.Fatalf("expected a peak period")
	}
	p := peak.Periods[0]
	if !(p.Start.Hour() <= 6 && p.End.Hour() > 6) {
		t.Fatalf("peak period %v-%v does not cover hour 6", p.Start, p.End)
	}
	if !a.done["NO1|2026-01-10"] {
		t.Fatalf("day not marked done")
	}
}

func TestBackfillSecondCallHitsResultCache(t *testing.T) {
	f := &fakeFetcher{days: map[string][]models.PriceInterval{
		"2026-01-10": dayIntervals("NO1", "2026-01-10", twoWindowPrices),
	}}
	m := &fakeMetrics{}
	a := testAssembler(f, m)

	if _, _, err := a.Backfill(context.Background(), "NO1", "2026-01-10"); err != nil {
		t.Fatalf("first backfill: %v", err)
	}
	if _, _, err := a.Backfill(context.Background(), "NO1", "2026-01-10"); err != nil {
		t.Fatalf("second backfill: %v", err)
	}

	hits := 0
	for _, op := range m.cacheOps {
		if op == "hit" {
			hits++
		}
	}
	if hits < 2 {
		t.Fatalf("cache hits = %d, want >= 2 (best+peak)", hits)
	}
}

func TestBackfillUnpublishedDay(t *testing.T) {
	f := &fakeFetcher{days: map[string][]models.PriceInterval{}}
	m := &fakeMetrics{}
	a := testAssembler(f, m)

	if _, _, err := a.Backfill(context.Background(), "NO1", "2026-01-11"); err == nil {
		t.Fatalf("expected error for unpublished day")
	}
	if len(m.errors) == 0 || m.errors[0] != "backfill" {
		t.Fatalf("expected backfill error metric, got %v", m.errors)
	}
}

func TestCompleteRequiresFullGaplessCoverage(t *testing.T) {
	a := testAssembler(&fakeFetcher{}, &fakeMetrics{})

	full := dayIntervals("NO1", "2026-01-10", twoWindowPrices)
	day := make(map[int64]models.PriceInterval)
	for _, iv := range full[:23] {
		day[iv.Start.Unix()] = iv
	}
	if a.complete(day) {
		t.Fatalf("23h coverage reported complete")
	}

	day[full[23].Start.Unix()] = full[23]
	if !a.complete(day) {
		t.Fatalf("24h coverage reported incomplete")
	}

	// knock a hole in the middle: still 23h but with a gap
	delete(day, full[12].Start.Unix())
	if a.complete(day) {
		t.Fatalf("gapped day reported complete")
	}
}

func TestSeriesAppendsAdjacentNextDayTail(t *testing.T) {
	a := testAssembler(&fakeFetcher{}, &fakeMetrics{})

	d1 := dayIntervals("NO1", "2026-01-10", twoWindowPrices)
	d2 := dayIntervals("NO1", "2026-01-11", twoWindowPrices)
	zone := ensureZone(a.buckets, "NO1")
	for _, iv := range d1 {
		ensureDay(zone, iv.Date())[iv.Start.Unix()] = iv
	}
	for _, iv := range d2[:6] {
		ensureDay(zone, iv.Date())[iv.Start.Unix()] = iv
	}

	series := a.series("NO1", "2026-01-10")
	if len(series) != 30 {
		t.Fatalf("series length = %d, want 24+6", len(series))
	}
	if !series[24].Start.Equal(d2[0].Start) {
		t.Fatalf("tail does not start at next midnight")
	}
}

func ensureZone(b map[string]map[string]map[int64]models.PriceInterval, zone string) map[string]map[int64]models.PriceInterval {
	if b[zone] == nil {
		b[zone] = make(map[string]map[int64]models.PriceInterval)
	}
	return b[zone]
}

func ensureDay(days map[string]map[int64]models.PriceInterval, date string) map[int64]models.PriceInterval {
	if days[date] == nil {
		days[date] = make(map[int64]models.PriceInterval)
	}
	return days[date]
}
