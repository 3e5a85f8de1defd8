package engine

import (
	"testing"
	"time"

	"GridPulse/internal/domain/models"
)

func leveled(res time.Duration, levels ...models.PriceLevel) []models.PriceInterval {
	iv := make([]models.PriceInterval, len(levels))
	for i, l := range levels {
		iv[i].Duration = res
		iv[i].Level = l
	}
	return iv
}

func allTrue(n int) []bool {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

func TestLevelRankUnclassifiedNeverVetoes(t *testing.T) {
	for _, dir := range []models.Direction{models.DirectionBest, models.DirectionPeak} {
		if levelRank(models.LevelAny, dir) < levelRank(models.LevelVeryCheap, dir) &&
			levelRank(models.LevelAny, dir) < levelRank(models.LevelVeryExpensive, dir) {
			t.Fatalf("unclassified must rank at least as high as any real level (%s)", dir)
		}
	}
	if levelRank(models.LevelVeryCheap, models.DirectionBest) <= levelRank(models.LevelCheap, models.DirectionBest) {
		t.Fatalf("very cheap must outrank cheap for best")
	}
	if levelRank(models.LevelVeryExpensive, models.DirectionPeak) <= levelRank(models.LevelExpensive, models.DirectionPeak) {
		t.Fatalf("very expensive must outrank expensive for peak")
	}
}

func TestLevelFilterToleratedGaps(t *testing.T) {
	iv := leveled(time.Hour,
		models.LevelVeryCheap, models.LevelVeryCheap, models.LevelCheap, models.LevelVeryCheap,
		models.LevelVeryCheap, models.LevelVeryCheap, models.LevelCheap, models.LevelVeryCheap)
	mask := allTrue(8)
	c := models.Criteria{Direction: models.DirectionBest, Level: models.LevelVeryCheap, GapTolerance: 2}

	gaps := applyLevelFilter(mask, iv, c, time.Hour)
	for i, m := range mask {
		if !m {
			t.Fatalf("run must survive intact, index %d cleared", i)
		}
	}
	if len(gaps) != 2 || !gaps[2] || !gaps[6] {
		t.Fatalf("gaps = %v, want {2,6}", gaps)
	}
}

func TestLevelFilterZeroToleranceOnShortRuns(t *testing.T) {
	res := 15 * time.Minute // 5 intervals = 75 minutes, under the threshold
	iv := leveled(res,
		models.LevelVeryCheap, models.LevelVeryCheap, models.LevelCheap,
		models.LevelVeryCheap, models.LevelVeryCheap)
	mask := allTrue(5)
	c := models.Criteria{Direction: models.DirectionBest, Level: models.LevelVeryCheap, GapTolerance: 2}

	gaps := applyLevelFilter(mask, iv, c, res)
	if len(gaps) != 0 {
		t.Fatalf("short runs get no gap tolerance, got %v", gaps)
	}
	want := []bool{true, true, false, true, true}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask = %v, want %v", mask, want)
		}
	}
}

func TestLevelFilterHardMissBreaksRun(t *testing.T) {
	iv := leveled(time.Hour,
		models.LevelVeryCheap, models.LevelVeryCheap, models.LevelNormal,
		models.LevelVeryCheap, models.LevelVeryCheap)
	mask := allTrue(5)
	c := models.Criteria{Direction: models.DirectionBest, Level: models.LevelVeryCheap, GapTolerance: 2}

	applyLevelFilter(mask, iv, c, time.Hour)
	want := []bool{true, true, false, true, true}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask = %v, want %v", mask, want)
		}
	}
}

func TestLevelFilterClearsRunWithoutQualifier(t *testing.T) {
	iv := leveled(time.Hour,
		models.LevelCheap, models.LevelCheap, models.LevelCheap, models.LevelCheap)
	mask := allTrue(4)
	c := models.Criteria{Direction: models.DirectionBest, Level: models.LevelVeryCheap, GapTolerance: 2}

	applyLevelFilter(mask, iv, c, time.Hour)
	for i, m := range mask {
		if m {
			t.Fatalf("run of near-misses only must be cleared, index %d kept", i)
		}
	}
}

// When too many near-misses cluster together the run splits at the cluster
// and the fragments qualify on their own.
func TestLevelFilterSplitsAtGapCluster(t *testing.T) {
	levels := make([]models.PriceLevel, 12)
	for i := range levels {
		levels[i] = models.LevelVeryCheap
	}
	levels[5], levels[6], levels[7] = models.LevelCheap, models.LevelCheap, models.LevelCheap
	iv := leveled(time.Hour, levels...)
	mask := allTrue(12)
	c := models.Criteria{Direction: models.DirectionBest, Level: models.LevelVeryCheap, GapTolerance: 2}

	gaps := applyLevelFilter(mask, iv, c, time.Hour)
	if len(gaps) != 0 {
		t.Fatalf("cluster must not be tolerated as gaps: %v", gaps)
	}
	for i := 0; i < 12; i++ {
		wantKept := i < 5 || i > 7
		if mask[i] != wantKept {
			t.Fatalf("index %d: kept=%v, want %v (mask %v)", i, mask[i], wantKept, mask)
		}
	}
}

func TestLevelFilterGapSpacing(t *testing.T) {
	// two near-misses within tolerance by count but too close together for a
	// 17-interval run (required spacing 4), and not a consecutive cluster
	levels := make([]models.PriceLevel, 17)
	for i := range levels {
		levels[i] = models.LevelVeryCheap
	}
	levels[5], levels[8] = models.LevelCheap, models.LevelCheap
	iv := leveled(time.Hour, levels...)
	mask := allTrue(17)
	c := models.Criteria{Direction: models.DirectionBest, Level: models.LevelVeryCheap, GapTolerance: 2}

	gaps := applyLevelFilter(mask, iv, c, time.Hour)
	if len(gaps) != 0 {
		t.Fatalf("under-spaced gaps must not be tolerated, got %v", gaps)
	}
	for i := 0; i < 17; i++ {
		wantKept := i != 5 && i != 8
		if mask[i] != wantKept {
			t.Fatalf("index %d: kept=%v, want %v (mask %v)", i, mask[i], wantKept, mask)
		}
	}
}

func TestLevelFilterDisabled(t *testing.T) {
	iv := leveled(time.Hour, models.LevelNormal, models.LevelNormal, models.LevelNormal)
	mask := allTrue(3)
	c := models.Criteria{Direction: models.DirectionBest, Level: models.LevelAny}

	gaps := applyLevelFilter(mask, iv, c, time.Hour)
	if len(gaps) != 0 {
		t.Fatalf("disabled filter must report no gaps")
	}
	for i, m := range mask {
		if !m {
			t.Fatalf("disabled filter must not clear mask entry %d", i)
		}
	}
}
