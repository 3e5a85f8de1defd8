package models

import "time"

// PeriodStats are aggregates over the original (unsmoothed) prices inside a
// period.
type PeriodStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Period is one reported contiguous stretch of qualifying intervals.
// Attempt records provenance: 0 means the baseline criteria produced it,
// n>0 the n-th relaxation attempt.
type Period struct {
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"` // exclusive
	Duration      time.Duration `json:"duration"`
	IntervalCount int           `json:"interval_count"`
	Stats         PeriodStats   `json:"stats"`
	SmoothedCount int           `json:"smoothed_count"`
	GapCount      int           `json:"gap_count"`
	Attempt       int           `json:"attempt"`
	LevelFiltered bool          `json:"level_filtered"`
}

// DayResult is the final detection outcome for one zone-local day.
// Periods are ordered by start and pairwise non-overlapping.
type DayResult struct {
	Date             string    `json:"date"`
	Zone             string    `json:"zone"`
	Direction        Direction `json:"direction"`
	Periods          []Period  `json:"periods"`
	RelaxationActive bool      `json:"relaxation_active"`
	Relaxation       string    `json:"relaxation,omitempty"` // human-readable descriptor
	TargetMet        bool      `json:"target_met"`
	Degenerate       bool      `json:"degenerate,omitempty"`
	SmoothedCount    int       `json:"smoothed_count"`
}

// DetectionResult is the engine output for a whole series: one DayResult per
// computable day plus per-day errors for days that could not be computed.
// Failed days never abort sibling days.
type DetectionResult struct {
	Zone   string                `json:"zone"`
	Days   map[string]*DayResult `json:"days"`
	Errors map[string]string     `json:"errors,omitempty"`
}
