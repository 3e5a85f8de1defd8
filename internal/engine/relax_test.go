package engine

import (
	"strings"
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

func TestRelaxedCriteriaFixedStep(t *testing.T) {
	base := models.Criteria{Direction: models.DirectionBest, FlexPct: 10, MinDistancePct: 2}

	if got := relaxedCriteria(base, 1).FlexPct; got != 13 {
		t.Fatalf("attempt 1 flex = %v, want 13", got)
	}
	if got := relaxedCriteria(base, 3).FlexPct; got != 19 {
		t.Fatalf("attempt 3 flex = %v, want 19", got)
	}
	// step is fixed per attempt, independent of the base flex
	wide := base
	wide.FlexPct = 30
	if got := relaxedCriteria(wide, 1).FlexPct; got != 33 {
		t.Fatalf("attempt 1 from 30 = %v, want 33", got)
	}
}

func TestRelaxedCriteriaCap(t *testing.T) {
	base := models.Criteria{Direction: models.DirectionBest, FlexPct: 45, MinDistancePct: 2}
	if got := relaxedCriteria(base, 4).FlexPct; got != models.MaxFlexPct {
		t.Fatalf("flex = %v, want capped at %v", got, models.MaxFlexPct)
	}

	peak := models.Criteria{Direction: models.DirectionPeak, FlexPct: -45, MinDistancePct: 2}
	if got := relaxedCriteria(peak, 4).FlexPct; got != -models.MaxFlexPct {
		t.Fatalf("peak flex = %v, want capped at %v", got, -models.MaxFlexPct)
	}
	if got := relaxedCriteria(peak, 1).FlexPct; got != -48 {
		t.Fatalf("peak attempt 1 flex = %v, want -48", got)
	}
}

func TestRelaxedCriteriaDistanceScaling(t *testing.T) {
	base := models.Criteria{Direction: models.DirectionBest, FlexPct: 10, MinDistancePct: 2}

	// below the soft threshold the distance requirement is untouched
	if got := relaxedCriteria(base, 3).MinDistancePct; got != 2 {
		t.Fatalf("flex 19: distance = %v, want 2", got)
	}
	// flex 25 -> scale 20/25 = 0.8
	if got := relaxedCriteria(base, 5).MinDistancePct; got != 2*20.0/25.0 {
		t.Fatalf("flex 25: distance = %v, want %v", got, 2*20.0/25.0)
	}
	// at the flex cap the scale bottoms out at 20/50
	wide := models.Criteria{Direction: models.DirectionBest, FlexPct: 50, MinDistancePct: 2}
	if got := relaxedCriteria(wide, 12).MinDistancePct; got != 2*20.0/50.0 {
		t.Fatalf("flex 50: distance = %v, want %v", got, 2*20.0/50.0)
	}
}

func TestMergeCandidatesExtendsBaseline(t *testing.T) {
	master := []candidate{{start: 2, end: 6, attempt: 0, levelOn: true}}
	incoming := []candidate{{start: 4, end: 9, attempt: 2, levelOn: true}}

	out := mergeCandidates(master, incoming)
	if len(out) != 1 {
		t.Fatalf("merged = %+v, want 1", out)
	}
	if out[0].start != 2 || out[0].end != 9 {
		t.Fatalf("bounds [%d,%d), want [2,9)", out[0].start, out[0].end)
	}
	if out[0].attempt != 0 {
		t.Fatalf("baseline provenance lost: attempt %d", out[0].attempt)
	}
}

func TestMergeCandidatesReplacesContained(t *testing.T) {
	master := []candidate{{start: 5, end: 8, attempt: 1}}
	incoming := []candidate{{start: 4, end: 10, attempt: 3}}

	out := mergeCandidates(master, incoming)
	if len(out) != 1 {
		t.Fatalf("merged = %+v, want 1", out)
	}
	if out[0].start != 4 || out[0].end != 10 {
		t.Fatalf("bounds [%d,%d), want [4,10)", out[0].start, out[0].end)
	}
	if out[0].attempt != 1 {
		t.Fatalf("replacement must inherit the earlier attempt, got %d", out[0].attempt)
	}
}

func TestMergeCandidatesDropsPartialOverlap(t *testing.T) {
	master := []candidate{{start: 5, end: 8, attempt: 1}}
	incoming := []candidate{{start: 7, end: 12, attempt: 3}}

	out := mergeCandidates(master, incoming)
	if len(out) != 1 || out[0].start != 5 || out[0].end != 8 {
		t.Fatalf("partial overlap must be dropped, got %+v", out)
	}
}

func TestMergeCandidatesAppendsDisjoint(t *testing.T) {
	master := []candidate{{start: 5, end: 8, attempt: 1}}
	incoming := []candidate{{start: 10, end: 14, attempt: 2}, {start: 0, end: 3, attempt: 2}}

	out := mergeCandidates(master, incoming)
	if len(out) != 3 {
		t.Fatalf("merged = %+v, want 3", out)
	}
	if out[0].start != 0 || out[1].start != 5 || out[2].start != 10 {
		t.Fatalf("merged candidates unsorted: %+v", out)
	}
}

// End to end: two baseline valleys separated by a bump. A late attempt widens
// the band enough to bridge the bump, coalescing the valleys into one stretch.
// Exhaustion must report the two-valley state, never the worse later one, and
// a relaxed run must never yield fewer periods than the unrelaxed baseline.
func TestRunExhaustionKeepsBestCount(t *testing.T) {
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = 30
	}
	prices[4], prices[5], prices[6] = 10, 10, 10
	prices[7], prices[8], prices[9] = 24, 24, 24
	prices[10], prices[11], prices[12] = 10, 10, 10

	crit := bestCriteria(15, 2, 3*time.Hour)
	crit.TargetCount = 3
	crit.MaxAttempts = 12

	baseRes, err := New().Run(hourly(t, "2026-02-02", prices...), crit)
	if err != nil {
		t.Fatalf("baseline run: %v", err)
	}
	baseline := len(baseRes.Days["2026-02-02"].Periods)
	if baseline != 2 {
		t.Fatalf("baseline periods = %d, want 2", baseline)
	}

	crit.Relax = true
	res, err := New().Run(hourly(t, "2026-02-02", prices...), crit)
	if err != nil {
		t.Fatalf("relaxed run: %v", err)
	}
	day := res.Days["2026-02-02"]
	if !day.RelaxationActive || day.TargetMet {
		t.Fatalf("expected exhausted relaxation: %+v", day)
	}
	if len(day.Periods) < baseline {
		t.Fatalf("relaxed periods = %d, baseline found %d", len(day.Periods), baseline)
	}
	if len(day.Periods) != 2 {
		t.Fatalf("periods = %+v, want the two valleys kept", day.Periods)
	}
	if day.Periods[0].Start.Hour() != 4 || day.Periods[0].End.Hour() != 7 {
		t.Fatalf("first period %v-%v, want 04:00-07:00", day.Periods[0].Start, day.Periods[0].End)
	}
	if day.Periods[1].Start.Hour() != 10 || day.Periods[1].End.Hour() != 13 {
		t.Fatalf("second period %v-%v, want 10:00-13:00", day.Periods[1].Start, day.Periods[1].End)
	}
	if !strings.Contains(day.Relaxation, "found 2 of 3") {
		t.Fatalf("descriptor %q should report the best count achieved", day.Relaxation)
	}
}

// End to end: a valley that only qualifies once the flex band has been widened
// four times, with the provenance recorded on the period.
func TestRunRelaxationSuccess(t *testing.T) {
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = 30
	}
	prices[5] = 20 // isolated dip, smoothed away: must not anchor the flex band
	prices[12], prices[13], prices[14] = 24, 24, 24
	series := hourly(t, "2026-02-01", prices...)

	crit := bestCriteria(10, 2, 3*time.Hour)
	crit.Relax = true
	crit.MaxAttempts = 8

	res, err := New().Run(series, crit)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	day := res.Days["2026-02-01"]
	if !day.RelaxationActive || !day.TargetMet {
		t.Fatalf("relaxation outcome wrong: %+v", day)
	}
	if len(day.Periods) != 1 {
		t.Fatalf("periods = %+v, want the 12:00-15:00 valley", day.Periods)
	}
	p := day.Periods[0]
	if p.Start.Hour() != 12 || p.End.Hour() != 15 {
		t.Fatalf("period %v-%v, want 12:00-15:00", p.Start, p.End)
	}
	if p.Attempt != 4 {
		t.Fatalf("attempt = %d, want 4 (flex 10+4*3 = 22)", p.Attempt)
	}
	if !strings.Contains(day.Relaxation, "attempt 4") {
		t.Fatalf("descriptor %q should name attempt 4", day.Relaxation)
	}
}
