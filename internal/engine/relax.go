package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"GridPulse/internal/domain/models"
)

// dayInput is one day's working set: the day intervals plus the next day's
// continuation tail, already smoothed, with statistics over the day proper.
type dayInput struct {
	iv     []models.PriceInterval
	dayLen int
	st     models.DayStats
	res    time.Duration
}

// dayOutcome is the orchestrator verdict for one day.
type dayOutcome struct {
	cands      []candidate
	relaxed    bool
	attempts   int
	targetMet  bool
	descriptor string
}

// runDay executes the per-day state machine:
// BASELINE -> (count < target) RELAXING(1..max) -> SUCCESS | EXHAUSTED.
// Each day is an independent pure computation; nothing is carried across days.
func runDay(in dayInput, base models.Criteria) dayOutcome {
	master := detectOnce(in, base, 0, true)
	if len(master) >= base.TargetCount {
		return dayOutcome{cands: master, targetMet: true, descriptor: "baseline"}
	}
	if !base.Relax {
		return dayOutcome{cands: master, descriptor: "baseline"}
	}

	combos := []bool{true, false}
	if base.Level == models.LevelAny {
		combos = combos[:1] // disabling an absent filter changes nothing
	}

	out := dayOutcome{relaxed: true}
	// A widened band can bridge two earlier candidates and coalesce them into
	// one, shrinking the standalone count within an attempt. Snapshot the
	// highest-count set seen so exhaustion reports the best achieved, never a
	// worse later state. Copies are required: merge mutates elements in place.
	best := append([]candidate(nil), master...)
	for attempt := 1; attempt <= base.MaxAttempts; attempt++ {
		out.attempts = attempt
		eff := relaxedCriteria(base, attempt)
		for _, levelOn := range combos {
			master = mergeCandidates(master, detectOnce(in, eff, attempt, levelOn))
			if len(master) >= base.TargetCount {
				out.cands = master
				out.targetMet = true
				out.descriptor = relaxDescriptor(eff, attempt, levelOn)
				return out
			}
			if len(master) >= len(best) {
				best = append([]candidate(nil), master...)
			}
		}
	}
	out.cands = best
	out.descriptor = fmt.Sprintf("exhausted after %d attempts (found %d of %d)",
		out.attempts, len(best), base.TargetCount)
	return out
}

// detectOnce runs the full evaluate/filter/build pass for one criteria
// variant.
func detectOnce(in dayInput, eff models.Criteria, attempt int, levelOn bool) []candidate {
	mask := acceptanceMask(in.iv, in.st, eff)
	gaps := map[int]bool{}
	if levelOn && eff.Level != models.LevelAny {
		gaps = applyLevelFilter(mask, in.iv, eff, in.res)
	}
	return buildCandidates(in.iv, mask, gaps, in.st, eff, in.res, in.dayLen, attempt, levelOn)
}

// relaxedCriteria loosens the base criteria for the given attempt: flex grows
// by a fixed step per attempt (a proportional step causes runaway escalation
// and is deliberately not used), capped at the absolute ceiling. Beyond the
// soft flex threshold the distance requirement is scaled down so the two
// filters cannot become mutually exclusive, floored at a quarter of its base.
func relaxedCriteria(base models.Criteria, attempt int) models.Criteria {
	eff := base
	step := models.RelaxStepPct * float64(attempt)
	if base.Direction == models.DirectionPeak {
		eff.FlexPct = base.FlexPct - step
		if eff.FlexPct < -models.MaxFlexPct {
			eff.FlexPct = -models.MaxFlexPct
		}
	} else {
		eff.FlexPct = base.FlexPct + step
		if eff.FlexPct > models.MaxFlexPct {
			eff.FlexPct = models.MaxFlexPct
		}
	}
	if abs := math.Abs(eff.FlexPct); abs > models.SoftFlexPct {
		scale := models.SoftFlexPct / abs
		if scale < models.MinDistanceScale {
			scale = models.MinDistanceScale
		}
		eff.MinDistancePct = base.MinDistancePct * scale
	}
	return eff
}

// mergeCandidates folds a relaxed attempt's candidates into the master list:
//   - overlapping and enlarging a baseline candidate extends it in place,
//     baseline provenance preserved (baselines are never replaced);
//   - fully containing an earlier relaxed candidate replaces it, taking over
//     its provenance;
//   - otherwise an overlapping candidate brings nothing new and is dropped;
//   - non-overlapping candidates are appended.
func mergeCandidates(master, incoming []candidate) []candidate {
	for _, inc := range incoming {
		placed := false
		for idx := range master {
			m := &master[idx]
			if !inc.overlaps(*m) {
				continue
			}
			if m.attempt == 0 {
				if inc.start < m.start {
					m.start = inc.start
				}
				if inc.end > m.end {
					m.end = inc.end
				}
				m.gapIdx = mergeSorted(m.gapIdx, inc.gapIdx)
			} else if inc.contains(*m) {
				repl := inc
				repl.attempt = m.attempt
				repl.gapIdx = mergeSorted(m.gapIdx, inc.gapIdx)
				*m = repl
			}
			placed = true
			break
		}
		if !placed {
			master = append(master, inc)
		}
	}
	sort.Slice(master, func(i, j int) bool { return master[i].start < master[j].start })
	return coalesce(master)
}

func relaxDescriptor(eff models.Criteria, attempt int, levelOn bool) string {
	d := fmt.Sprintf("relaxed to flex %.0f%% (attempt %d)", eff.FlexPct, attempt)
	if !levelOn {
		d += ", level filter disabled"
	}
	return d
}
