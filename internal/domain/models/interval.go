package models

import (
	"strings"
	"time"
)

// PriceLevel is the provider-supplied classification of an interval price
// relative to the trailing market average. Ordinal: adjacent constants are
// one level apart for gap-tolerance purposes.
type PriceLevel int8

const (
	LevelAny PriceLevel = iota // no classification / filter disabled
	LevelVeryCheap
	LevelCheap
	LevelNormal
	LevelExpensive
	LevelVeryExpensive
)

// ParsePriceLevel maps provider strings (e.g. "VERY_CHEAP") to a PriceLevel.
func ParsePriceLevel(s string) PriceLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VERY_CHEAP":
		return LevelVeryCheap
	case "CHEAP":
		return LevelCheap
	case "NORMAL":
		return LevelNormal
	case "EXPENSIVE":
		return LevelExpensive
	case "VERY_EXPENSIVE":
		return LevelVeryExpensive
	default:
		return LevelAny
	}
}

func (l PriceLevel) String() string {
	switch l {
	case LevelVeryCheap:
		return "VERY_CHEAP"
	case LevelCheap:
		return "CHEAP"
	case LevelNormal:
		return "NORMAL"
	case LevelExpensive:
		return "EXPENSIVE"
	case LevelVeryExpensive:
		return "VERY_EXPENSIVE"
	default:
		return "ANY"
	}
}

// PriceInterval is one fixed-duration price slice of a trading day.
// Price is the provider value and is never mutated; Smoothed starts equal to
// Price and is only rewritten by the outlier smoother.
type PriceInterval struct {
	Start    time.Time
	Duration time.Duration
	Zone     string
	Price    float64
	Smoothed float64
	Level    PriceLevel
	Rating   float64
}

// End returns the exclusive end of the interval.
func (p PriceInterval) End() time.Time { return p.Start.Add(p.Duration) }

// Date returns the zone-local calendar date the interval belongs to.
func (p PriceInterval) Date() string { return p.Start.Format("2006-01-02") }

// DayStats are daily aggregates computed strictly over original prices.
type DayStats struct {
	Min float64
	Max float64
	Avg float64
}

// DayBucket maps a local calendar date to its ordered, contiguous interval
// sequence plus derived statistics.
type DayBucket struct {
	Date      string
	Zone      string
	Intervals []PriceInterval
	Stats     DayStats
}
