package engine

import (
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

func smoothedEqual(prices ...float64) []models.PriceInterval {
	iv := fromPrices(prices...)
	for i := range iv {
		iv[i].Smoothed = iv[i].Price
	}
	return iv
}

func TestBuildCandidatesExtendsOverShoulders(t *testing.T) {
	// 24 and 24 sit outside the flex band but still clearly under the daily
	// average: they must be pulled into the adjacent runs.
	iv := smoothedEqual(18, 19, 24, 30, 30, 30, 30, 30, 30, 24, 19, 18)
	st := dayStats(iv)
	c := models.Criteria{Direction: models.DirectionBest, FlexPct: 10, MinDistancePct: 2, MinDuration: 2 * time.Hour}
	mask := acceptanceMask(iv, st, c)

	cands := buildCandidates(iv, mask, nil, st, c, time.Hour, len(iv), 0, false)
	if len(cands) != 2 {
		t.Fatalf("candidates = %+v, want 2", cands)
	}
	if cands[0].start != 0 || cands[0].end != 3 {
		t.Fatalf("first candidate [%d,%d), want [0,3)", cands[0].start, cands[0].end)
	}
	if cands[1].start != 9 || cands[1].end != 12 {
		t.Fatalf("second candidate [%d,%d), want [9,12)", cands[1].start, cands[1].end)
	}
}

func TestBuildCandidatesMinDuration(t *testing.T) {
	iv := smoothedEqual(18, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 18)
	st := dayStats(iv)
	c := models.Criteria{Direction: models.DirectionBest, FlexPct: 5, MinDistancePct: 2, MinDuration: 2 * time.Hour}
	mask := acceptanceMask(iv, st, c)

	cands := buildCandidates(iv, mask, nil, st, c, time.Hour, len(iv), 0, false)
	if len(cands) != 0 {
		t.Fatalf("single-interval runs must be dropped: %+v", cands)
	}
}

// Runs beginning in the continuation tail belong to the next day; a run that
// begins inside the day may extend into the tail.
func TestBuildCandidatesTailRule(t *testing.T) {
	iv := smoothedEqual(30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 20, 20, 20, 20, 30, 30, 20, 20, 20)
	st := models.DayStats{Min: 20, Max: 30, Avg: 28}
	c := models.Criteria{Direction: models.DirectionBest, FlexPct: 10, MinDistancePct: 2, MinDuration: 2 * time.Hour}
	mask := acceptanceMask(iv, st, c)

	dayLen := 12 // indexes 12+ are the next day's tail
	cands := buildCandidates(iv, mask, nil, st, c, time.Hour, dayLen, 0, false)
	if len(cands) != 1 {
		t.Fatalf("candidates = %+v, want only the straddling run", cands)
	}
	if cands[0].start != 10 || cands[0].end != 14 {
		t.Fatalf("candidate [%d,%d), want [10,14)", cands[0].start, cands[0].end)
	}
}

func TestBuildCandidatesRecordsGaps(t *testing.T) {
	iv := smoothedEqual(20, 20, 20, 20, 30, 30, 30, 30, 30, 30, 30, 30)
	st := dayStats(iv)
	c := models.Criteria{Direction: models.DirectionBest, FlexPct: 10, MinDistancePct: 2, MinDuration: 2 * time.Hour}
	mask := acceptanceMask(iv, st, c)

	gaps := map[int]bool{2: true}
	cands := buildCandidates(iv, mask, gaps, st, c, time.Hour, len(iv), 3, true)
	if len(cands) != 1 {
		t.Fatalf("candidates = %+v", cands)
	}
	c0 := cands[0]
	if len(c0.gapIdx) != 1 || c0.gapIdx[0] != 2 {
		t.Fatalf("gapIdx = %v, want [2]", c0.gapIdx)
	}
	if c0.attempt != 3 || !c0.levelOn {
		t.Fatalf("provenance lost: %+v", c0)
	}
}

func TestCoalesceProvenance(t *testing.T) {
	cands := []candidate{
		{start: 4, end: 8, attempt: 2, levelOn: true, gapIdx: []int{5}},
		{start: 0, end: 5, attempt: 0, levelOn: true},
		{start: 10, end: 12, attempt: 1, levelOn: false},
	}
	out := coalesce(cands)
	if len(out) != 2 {
		t.Fatalf("coalesced = %+v, want 2", out)
	}
	first := out[0]
	if first.start != 0 || first.end != 8 {
		t.Fatalf("merged bounds [%d,%d), want [0,8)", first.start, first.end)
	}
	if first.attempt != 0 {
		t.Fatalf("baseline provenance must win, got attempt %d", first.attempt)
	}
	if len(first.gapIdx) != 1 || first.gapIdx[0] != 5 {
		t.Fatalf("gapIdx = %v, want [5]", first.gapIdx)
	}
	if out[1].start != 10 || out[1].end != 12 || out[1].attempt != 1 {
		t.Fatalf("disjoint candidate mangled: %+v", out[1])
	}
}
