package engine

import (
	"sort"
	"time"

	"GridPulse/internal/domain/models"
)

// candidate is the engine-internal working form of a detected period.
// start/end index the day's extended interval slice, end exclusive.
type candidate struct {
	start   int
	end     int
	attempt int  // 0 = baseline
	levelOn bool // whether the level filter was active when produced
	gapIdx  []int
}

func (c candidate) overlaps(o candidate) bool {
	return c.start < o.end && o.start < c.end
}

func (c candidate) contains(o candidate) bool {
	return c.start <= o.start && c.end >= o.end
}

// buildCandidates converts an acceptance mask into period candidates. Each
// contiguous accepted run becomes one candidate, extended on both sides with
// adjacent intervals that still meet the distance-from-average criterion;
// candidates shorter than the minimum length are discarded outright. Runs
// must start inside the day proper (index < dayLen); indexes beyond it are
// the next day's continuation tail and may only prolong a run.
func buildCandidates(iv []models.PriceInterval, mask []bool, gaps map[int]bool, st models.DayStats, eff models.Criteria, res time.Duration, dayLen, attempt int, levelOn bool) []candidate {
	var cands []candidate
	forEachRun(mask, 0, len(mask), func(s, e int) {
		if s >= dayLen {
			return
		}
		// extend while neighbors stay clearly on the right side of the
		// daily average, even when they fall outside the flex band
		for s > 0 && !mask[s-1] && meetsDistance(iv[s-1].Smoothed, st, eff) {
			s--
		}
		for e < len(iv) && !mask[e] && meetsDistance(iv[e].Smoothed, st, eff) {
			e++
		}
		cands = append(cands, candidate{start: s, end: e, attempt: attempt, levelOn: levelOn})
	})

	cands = coalesce(cands)

	out := cands[:0]
	for _, c := range cands {
		if time.Duration(c.end-c.start)*res < eff.MinDuration {
			continue
		}
		for i := c.start; i < c.end; i++ {
			if gaps[i] {
				c.gapIdx = append(c.gapIdx, i)
			}
		}
		out = append(out, c)
	}
	return out
}

// coalesce merges candidates whose extensions made them overlap or touch.
// Baseline provenance wins; otherwise the earlier attempt's does.
func coalesce(cands []candidate) []candidate {
	if len(cands) < 2 {
		return cands
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].start < cands[j].start })
	out := cands[:1]
	for _, c := range cands[1:] {
		last := &out[len(out)-1]
		if c.start > last.end {
			out = append(out, c)
			continue
		}
		if c.end > last.end {
			last.end = c.end
		}
		if c.attempt < last.attempt {
			last.attempt = c.attempt
		}
		last.levelOn = last.levelOn && c.levelOn
		last.gapIdx = mergeSorted(last.gapIdx, c.gapIdx)
	}
	return out
}

func mergeSorted(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	m := make(map[int]bool, len(a)+len(b))
	for _, v := range a {
		m[v] = true
	}
	for _, v := range b {
		m[v] = true
	}
	out := make([]int, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
