package engine

import (
	"time"

	"GridPulse/internal/domain/models"
)

// Runs shorter than this get zero gap tolerance.
const gapZeroToleranceBelow = 90 * time.Minute

// levelRank orders price levels by quality for the given direction: higher is
// better. Unclassified intervals rank highest so missing provider data never
// vetoes a run.
func levelRank(l models.PriceLevel, dir models.Direction) int {
	if l == models.LevelAny {
		return 5
	}
	// LevelVeryCheap..LevelVeryExpensive are 1..5
	if dir == models.DirectionPeak {
		return int(l) - 1
	}
	return 5 - int(l)
}

// applyLevelFilter enforces the absolute-quality filter on every contiguous
// accepted run, clearing mask entries that fail it. Intervals exactly one
// ordinal level short of the threshold may survive as tolerated gaps; the
// returned set holds their indexes.
func applyLevelFilter(mask []bool, iv []models.PriceInterval, c models.Criteria, res time.Duration) map[int]bool {
	gaps := make(map[int]bool)
	if c.Level == models.LevelAny {
		return gaps
	}
	forEachRun(mask, 0, len(mask), func(s, e int) {
		filterRun(mask, iv, c, res, s, e, gaps)
	})
	return gaps
}

// forEachRun invokes fn for every maximal true-run of mask within [from,to).
func forEachRun(mask []bool, from, to int, fn func(s, e int)) {
	i := from
	for i < to {
		if !mask[i] {
			i++
			continue
		}
		j := i
		for j < to && mask[j] {
			j++
		}
		fn(i, j)
		i = j
	}
}

// filterRun evaluates one run [s,e). When the gap constraints cannot be met
// it splits the run at the worst deviating stretch and re-evaluates the
// fragments independently.
func filterRun(mask []bool, iv []models.PriceInterval, c models.Criteria, res time.Duration, s, e int, gaps map[int]bool) {
	if e-s <= 0 {
		return
	}
	threshold := levelRank(c.Level, c.Direction)

	var meets, near, hard []int
	for i := s; i < e; i++ {
		switch r := levelRank(iv[i].Level, c.Direction); {
		case r >= threshold:
			meets = append(meets, i)
		case r == threshold-1:
			near = append(near, i)
		default:
			hard = append(hard, i)
		}
	}

	// Intervals more than one level short always break the run.
	if len(hard) > 0 {
		for _, i := range hard {
			mask[i] = false
		}
		forEachRun(mask, s, e, func(ns, ne int) {
			filterRun(mask, iv, c, res, ns, ne, gaps)
		})
		return
	}
	if len(meets) == 0 {
		for i := s; i < e; i++ {
			mask[i] = false
		}
		return
	}
	if len(near) == 0 {
		return
	}

	runLen := e - s
	maxGaps := c.GapTolerance
	if q := quarterCeil(runLen); q < maxGaps {
		maxGaps = q
	}
	if time.Duration(runLen)*res < gapZeroToleranceBelow {
		maxGaps = 0
	}

	if len(near) <= maxGaps && maxGaps > 0 && gapSpacingOK(near, runLen, maxGaps) {
		for _, i := range near {
			gaps[i] = true
		}
		return
	}

	// Constraints failed: split at the longest deviating sub-run when one
	// exists, otherwise drop all near-misses.
	if cs, ce := longestGapCluster(near); ce-cs >= 2 {
		for i := cs; i < ce; i++ {
			mask[i] = false
		}
	} else {
		for _, i := range near {
			mask[i] = false
		}
	}
	forEachRun(mask, s, e, func(ns, ne int) {
		filterRun(mask, iv, c, res, ns, ne, gaps)
	})
}

// quarterCeil is ceil(0.25*n).
func quarterCeil(n int) int { return (n + 3) / 4 }

// gapSpacingOK requires tolerated gaps to be spread out: consecutive gaps
// must sit at least max(2, (runLen/maxGaps)/2) intervals apart.
func gapSpacingOK(gapIdx []int, runLen, maxGaps int) bool {
	spacing := (runLen / maxGaps) / 2
	if spacing < 2 {
		spacing = 2
	}
	for i := 1; i < len(gapIdx); i++ {
		if gapIdx[i]-gapIdx[i-1] < spacing {
			return false
		}
	}
	return true
}

// longestGapCluster returns the bounds [cs,ce) of the longest stretch of
// consecutive indexes in gapIdx (which is sorted).
func longestGapCluster(gapIdx []int) (cs, ce int) {
	if len(gapIdx) == 0 {
		return 0, 0
	}
	bestS, bestE := gapIdx[0], gapIdx[0]+1
	curS, curE := gapIdx[0], gapIdx[0]+1
	for i := 1; i < len(gapIdx); i++ {
		if gapIdx[i] == curE {
			curE++
		} else {
			curS, curE = gapIdx[i], gapIdx[i]+1
		}
		if curE-curS > bestE-bestS {
			bestS, bestE = curS, curE
		}
	}
	return bestS, bestE
}
