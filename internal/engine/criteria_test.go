package engine

import (
	"testing"

	"GridPulse/internal/domain/models"
)

func TestInFlex(t *testing.T) {
	st := models.DayStats{Min: 20, Max: 40, Avg: 30}

	best := models.Criteria{Direction: models.DirectionBest, FlexPct: 10}
	if !inFlex(22, st, best) {
		t.Fatalf("22 within 10%% of min 20 must pass")
	}
	if inFlex(22.01, st, best) {
		t.Fatalf("22.01 just outside the band must fail")
	}

	peak := models.Criteria{Direction: models.DirectionPeak, FlexPct: -10}
	if !inFlex(36, st, peak) {
		t.Fatalf("36 within 10%% below max 40 must pass")
	}
	if inFlex(35.99, st, peak) {
		t.Fatalf("35.99 just outside the band must fail")
	}
}

func TestMeetsDistance(t *testing.T) {
	st := models.DayStats{Min: 20, Max: 40, Avg: 30}

	best := models.Criteria{Direction: models.DirectionBest, MinDistancePct: 2}
	if !meetsDistance(29.4, st, best) {
		t.Fatalf("29.4 is 2%% below average, must pass")
	}
	if meetsDistance(29.5, st, best) {
		t.Fatalf("29.5 too close to average, must fail")
	}

	peak := models.Criteria{Direction: models.DirectionPeak, MinDistancePct: 2}
	if !meetsDistance(30.6, st, peak) {
		t.Fatalf("30.6 is 2%% above average, must pass")
	}
	if meetsDistance(30.5, st, peak) {
		t.Fatalf("30.5 too close to average, must fail")
	}
}

// Both conditions must hold at once: cheap enough relative to the daily
// minimum AND clearly separated from the average.
func TestAcceptedRequiresBoth(t *testing.T) {
	st := models.DayStats{Min: 20, Max: 21, Avg: 20.5}
	c := models.Criteria{Direction: models.DirectionBest, FlexPct: 10, MinDistancePct: 2}
	// 20.9 is inside the flex band off min 20 but not 2% under the average
	if accepted(20.9, st, c) {
		t.Fatalf("near-average price must not be accepted on a flat day")
	}
}

func TestAcceptanceMask(t *testing.T) {
	iv := fromPrices(18, 25, 19, 30)
	for i := range iv {
		iv[i].Smoothed = iv[i].Price
	}
	st := dayStats(iv)
	c := models.Criteria{Direction: models.DirectionBest, FlexPct: 10, MinDistancePct: 2}
	mask := acceptanceMask(iv, st, c)
	want := []bool{true, false, true, false}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask = %v, want %v", mask, want)
		}
	}
}
