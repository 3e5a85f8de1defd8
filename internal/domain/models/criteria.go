package models

import (
	"fmt"
	"time"
)

// Direction selects which kind of period the detector looks for.
type Direction string

const (
	DirectionBest Direction = "best" // anomalously cheap stretches
	DirectionPeak Direction = "peak" // anomalously expensive stretches
)

// Detection bounds. Flex is clamped to these regardless of what the caller
// validated upstream; the engine re-clamps as the last line of defense.
const (
	MaxFlexPct       = 50.0
	MaxRelaxAttempts = 12
	RelaxStepPct     = 3.0  // fixed step per attempt, not proportional to base flex
	SoftFlexPct      = 20.0 // above this the distance requirement is scaled down
	MinDistanceScale = 0.25 // distance never scaled below this share of its base
)

// Criteria drives period detection for one direction. Percent fields are
// whole percents (FlexPct 15 = 15%). FlexPct is positive for best, negative
// for peak.
type Criteria struct {
	Direction      Direction     `yaml:"direction" json:"direction" default:"best" validate:"oneof=best peak"`
	FlexPct        float64       `yaml:"flex_pct" json:"flex_pct" default:"10" validate:"gte=-50,lte=50"`
	MinDistancePct float64       `yaml:"min_distance_pct" json:"min_distance_pct" default:"2" validate:"gte=0,lte=100"`
	MinDuration    time.Duration `yaml:"min_duration" json:"min_duration" default:"1h"`
	Level          PriceLevel    `yaml:"level" json:"level"`
	GapTolerance   int           `yaml:"gap_tolerance" json:"gap_tolerance" default:"2" validate:"gte=0,lte=10"`
	Relax          bool          `yaml:"relax" json:"relax" default:"true"`
	TargetCount    int           `yaml:"target_count" json:"target_count" default:"1" validate:"gte=0,lte=10"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts" default:"8" validate:"gte=1,lte=12"`
}

// Clamp forces the criteria into the supported ranges. Upstream callers
// validate user input first; Clamp catches anything that slips through.
func (c *Criteria) Clamp() {
	if c.Direction != DirectionPeak {
		c.Direction = DirectionBest
	}
	switch c.Direction {
	case DirectionBest:
		if c.FlexPct < 0 {
			c.FlexPct = -c.FlexPct
		}
		if c.FlexPct > MaxFlexPct {
			c.FlexPct = MaxFlexPct
		}
	case DirectionPeak:
		if c.FlexPct > 0 {
			c.FlexPct = -c.FlexPct
		}
		if c.FlexPct < -MaxFlexPct {
			c.FlexPct = -MaxFlexPct
		}
	}
	if c.MinDistancePct < 0 {
		c.MinDistancePct = 0
	}
	if c.MinDistancePct > 100 {
		c.MinDistancePct = 100
	}
	if c.GapTolerance < 0 {
		c.GapTolerance = 0
	}
	if c.TargetCount < 1 {
		c.TargetCount = 1
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.MaxAttempts > MaxRelaxAttempts {
		c.MaxAttempts = MaxRelaxAttempts
	}
}

// Fingerprint returns a stable serialization used in cache keys. Two criteria
// with equal fingerprints produce bit-identical detection results.
func (c Criteria) Fingerprint() string {
	return fmt.Sprintf("%s|%.4f|%.4f|%d|%d|%d|%t|%d|%d",
		c.Direction, c.FlexPct, c.MinDistancePct, int64(c.MinDuration/time.Second),
		c.Level, c.GapTolerance, c.Relax, c.TargetCount, c.MaxAttempts)
}
