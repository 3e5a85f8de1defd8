package engine

import (
	"strings"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

func hourly(t *testing.T, day string, prices ...float64) []models.PriceInterval {
	t.Helper()
	start, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatalf("bad day %q: %v", day, err)
	}
	iv := make([]models.PriceInterval, 0, len(prices))
	for i, p := range prices {
		iv = append(iv, models.PriceInterval{
			Start:    start.Add(time.Duration(i) * time.Hour),
			Duration: time.Hour,
			Zone:     "DE-LU",
			Price:    p,
		})
	}
	return iv
}

func bestCriteria(flex, dist float64, minDur time.Duration) models.Criteria {
	return models.Criteria{
		Direction:      models.DirectionBest,
		FlexPct:        flex,
		MinDistancePct: dist,
		MinDuration:    minDur,
		TargetCount:    1,
		MaxAttempts:    8,
	}
}

// Scenario: a cheap night, a morning/evening price hump, and a cheap evening
// ramp must yield exactly the two best-price windows, with the evening one
// stretched over the near-average shoulder intervals.
func TestRunTwoBestWindows(t *testing.T) {
	series := hourly(t, "2026-01-10",
		18, 19, 20, 28, 29, 30, 35, 34, 33, 32, 30, 28,
		25, 24, 26, 28, 30, 32, 31, 22, 21, 20, 19, 18)
	crit := bestCriteria(15, 2, 3*time.Hour)
	crit.Relax = false

	res, err := New().Run(series, crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	day := res.Days["2026-01-10"]
	if day == nil {
		t.Fatalf("missing day result")
	}
	if len(day.Periods) != 2 {
		t.Fatalf("expected 2 periods, got %d: %+v", len(day.Periods), day.Periods)
	}
	p0, p1 := day.Periods[0], day.Periods[1]
	if p0.Start.Hour() != 0 || p0.End.Hour() != 3 {
		t.Fatalf("first window %v-%v, want 00:00-03:00", p0.Start, p0.End)
	}
	if p1.Start.Hour() != 19 || !p1.End.Equal(series[23].End()) {
		t.Fatalf("second window %v-%v, want 19:00-24:00", p1.Start, p1.End)
	}
	if day.RelaxationActive {
		t.Fatalf("relaxation must not trigger when baseline meets target")
	}
	if !day.TargetMet || day.Relaxation != "baseline" {
		t.Fatalf("unexpected outcome: %+v", day)
	}
}

func flatDay(t *testing.T, day string) []models.PriceInterval {
	t.Helper()
	jitter := []float64{0.02, -0.03, 0.05, -0.02, 0.01, -0.05, 0.03, 0.00}
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = 20 + jitter[i%len(jitter)]
	}
	return hourly(t, day, prices...)
}

func TestRunFlatDayNoRelaxation(t *testing.T) {
	crit := bestCriteria(15, 2, time.Hour)
	crit.Relax = false

	res, err := New().Run(flatDay(t, "2026-01-11"), crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	day := res.Days["2026-01-11"]
	if len(day.Periods) != 0 {
		t.Fatalf("flat day must yield no periods, got %+v", day.Periods)
	}
	if day.RelaxationActive {
		t.Fatalf("relaxation disabled but reported active")
	}
	if !day.Degenerate {
		t.Fatalf("flat day should be flagged degenerate")
	}
}

func TestRunFlatDayRelaxationExhausted(t *testing.T) {
	crit := bestCriteria(10, 2, time.Hour)
	crit.Relax = true
	crit.TargetCount = 1
	crit.MaxAttempts = 12

	res, err := New().Run(flatDay(t, "2026-01-12"), crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	day := res.Days["2026-01-12"]
	if !day.RelaxationActive {
		t.Fatalf("relaxation should have been attempted")
	}
	if day.TargetMet {
		t.Fatalf("flat day cannot meet the target")
	}
	if !strings.Contains(day.Relaxation, "exhausted") {
		t.Fatalf("descriptor %q should report exhaustion", day.Relaxation)
	}
	if len(day.Periods) != 0 {
		t.Fatalf("exhaustion must not fabricate periods: %+v", day.Periods)
	}
}

// A single 35 ct spike among ~19 ct neighbors is smoothed away for shape
// detection, the enclosing period is not split, and the reported maximum
// still shows the original spike.
func TestRunSpikeSmoothedPeriodIntact(t *testing.T) {
	series := hourly(t, "2026-01-13",
		19, 19.2, 19.1, 19.3, 35, 19.2, 19.4, 19.3,
		29, 29.5, 30, 30.5, 31, 31.5, 32, 32.5, 33, 33.5, 34, 34.5, 35, 35.5, 36, 36.5)
	crit := bestCriteria(15, 2, 3*time.Hour)
	crit.Relax = false

	res, err := New().Run(series, crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	day := res.Days["2026-01-13"]
	if len(day.Periods) != 1 {
		t.Fatalf("expected one unbroken period, got %+v", day.Periods)
	}
	p := day.Periods[0]
	if p.Start.Hour() != 0 || p.End.Hour() != 8 {
		t.Fatalf("period %v-%v, want 00:00-08:00", p.Start, p.End)
	}
	if p.SmoothedCount != 1 {
		t.Fatalf("smoothed count = %d, want 1", p.SmoothedCount)
	}
	if p.Stats.Max != 35 {
		t.Fatalf("period max = %v, want the original 35", p.Stats.Max)
	}
	if day.SmoothedCount != 1 {
		t.Fatalf("day smoothed count = %d, want 1", day.SmoothedCount)
	}
	// original prices must survive smoothing
	if series[4].Price != 35 {
		t.Fatalf("original price mutated: %v", series[4].Price)
	}
}

// A cheap stretch across local midnight belongs to the day it starts in,
// judged by that day's statistics, and is not re-reported by the next day.
func TestRunPeriodAcrossMidnight(t *testing.T) {
	day1 := make([]float64, 24)
	day2 := make([]float64, 24)
	for i := range day1 {
		day1[i] = 30
		day2[i] = 30
	}
	day1[21], day1[22], day1[23] = 20, 20, 20
	day2[0], day2[1], day2[2] = 20, 20, 20
	day2[12], day2[13], day2[14] = 20, 20, 20

	series := append(hourly(t, "2026-01-14", day1...), hourly(t, "2026-01-15", day2...)...)
	crit := bestCriteria(15, 2, 3*time.Hour)
	crit.Relax = false

	res, err := New().Run(series, crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	d1 := res.Days["2026-01-14"]
	if len(d1.Periods) != 1 {
		t.Fatalf("day1 periods: %+v", d1.Periods)
	}
	p := d1.Periods[0]
	if p.Start.Hour() != 21 {
		t.Fatalf("day1 period start %v, want 21:00", p.Start)
	}
	wantEnd := series[26].End() // 03:00 next day
	if !p.End.Equal(wantEnd) {
		t.Fatalf("day1 period end %v, want %v", p.End, wantEnd)
	}
	d2 := res.Days["2026-01-15"]
	if len(d2.Periods) != 1 {
		t.Fatalf("day2 periods: %+v", d2.Periods)
	}
	if d2.Periods[0].Start.Hour() != 12 {
		t.Fatalf("day2 period start %v, want 12:00 (the overhang is day1's)", d2.Periods[0].Start)
	}
}

func TestRunIdempotent(t *testing.T) {
	series := hourly(t, "2026-01-16",
		18, 19, 20, 28, 29, 30, 35, 34, 33, 32, 30, 28,
		25, 24, 26, 28, 30, 32, 31, 22, 21, 20, 19, 18)
	crit := bestCriteria(15, 2, 3*time.Hour)

	e := New()
	a, err := e.Run(series, crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := e.Run(series, crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	da, db := a.Days["2026-01-16"], b.Days["2026-01-16"]
	if len(da.Periods) != len(db.Periods) {
		t.Fatalf("period counts differ: %d vs %d", len(da.Periods), len(db.Periods))
	}
	for i := range da.Periods {
		if da.Periods[i] != db.Periods[i] {
			t.Fatalf("period %d differs: %+v vs %+v", i, da.Periods[i], db.Periods[i])
		}
	}
}

func TestRunOutputInvariants(t *testing.T) {
	series := append(hourly(t, "2026-01-17",
		18, 19, 20, 28, 29, 30, 35, 34, 33, 32, 30, 28,
		25, 24, 26, 28, 30, 32, 31, 22, 21, 20, 19, 18),
		hourly(t, "2026-01-18",
			22, 21, 19, 24, 29, 31, 33, 34, 33, 32, 30, 28,
			25, 24, 23, 22, 27, 32, 31, 28, 25, 21, 20, 19)...)
	crit := bestCriteria(12, 2, 2*time.Hour)
	crit.Relax = true
	crit.TargetCount = 2

	res, err := New().Run(series, crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for date, day := range res.Days {
		for i, p := range day.Periods {
			if p.Duration < crit.MinDuration {
				t.Fatalf("%s period %d shorter than minimum: %v", date, i, p.Duration)
			}
			if i > 0 && day.Periods[i-1].End.After(p.Start) {
				t.Fatalf("%s periods overlap or unsorted: %+v", date, day.Periods)
			}
			maxGaps := crit.GapTolerance
			if q := (p.IntervalCount + 3) / 4; q < maxGaps {
				maxGaps = q
			}
			if p.GapCount > maxGaps {
				t.Fatalf("%s period %d gap count %d exceeds bound %d", date, i, p.GapCount, maxGaps)
			}
		}
	}
}

func TestRunInputErrors(t *testing.T) {
	e := New()
	crit := bestCriteria(15, 2, time.Hour)

	if _, err := e.Run(nil, crit); err == nil {
		t.Fatalf("empty series must fail")
	}

	// a gap inside one day aborts that day only
	ok := hourly(t, "2026-01-20", flatPrices(24, 25)...)
	broken := hourly(t, "2026-01-21", flatPrices(24, 25)...)
	broken = append(broken[:5], broken[7:]...)
	res, err := e.Run(append(ok, broken...), crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, found := res.Days["2026-01-20"]; !found {
		t.Fatalf("healthy sibling day must still compute")
	}
	if _, found := res.Days["2026-01-21"]; found {
		t.Fatalf("broken day must not produce a result")
	}
	if msg := res.Errors["2026-01-21"]; !strings.Contains(msg, "gap") {
		t.Fatalf("broken day error missing: %q", msg)
	}
}

func TestRunConfigErrors(t *testing.T) {
	e := New()
	series := hourly(t, "2026-01-22", flatPrices(24, 25)...)

	crit := bestCriteria(15, 2, 25*time.Hour)
	_, err := e.Run(series, crit)
	if err == nil {
		t.Fatalf("minimum duration beyond a full day must fail")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("want ConfigError, got %T: %v", err, err)
	}
}

func flatPrices(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
