package engine

import "GridPulse/internal/domain/models"

// inFlex reports whether a smoothed price lies inside the direction's flex
// band off the daily extreme. FlexPct is positive for best, negative for peak.
func inFlex(smoothed float64, st models.DayStats, c models.Criteria) bool {
	flex := c.FlexPct / 100
	if c.Direction == models.DirectionPeak {
		return smoothed >= st.Max*(1+flex)
	}
	return smoothed <= st.Min*(1+flex)
}

// meetsDistance reports whether a smoothed price is sufficiently separated
// from the daily average.
func meetsDistance(smoothed float64, st models.DayStats, c models.Criteria) bool {
	d := c.MinDistancePct / 100
	if c.Direction == models.DirectionPeak {
		return smoothed >= st.Avg*(1+d)
	}
	return smoothed <= st.Avg*(1-d)
}

// accepted combines both conditions. They are independent on purpose: at high
// flex the distance condition becomes the binding constraint, which is what
// keeps relaxed searches from accepting near-average prices.
func accepted(smoothed float64, st models.DayStats, c models.Criteria) bool {
	return inFlex(smoothed, st, c) && meetsDistance(smoothed, st, c)
}

// acceptanceMask evaluates every interval of the (possibly extended) day
// slice against the criteria using smoothed prices.
func acceptanceMask(iv []models.PriceInterval, st models.DayStats, c models.Criteria) []bool {
	mask := make([]bool, len(iv))
	for i := range iv {
		mask[i] = accepted(iv[i].Smoothed, st, c)
	}
	return mask
}
