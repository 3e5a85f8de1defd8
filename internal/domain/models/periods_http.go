package models

import "time"

// Requests for period HTTP endpoints. Defined in domain for consistency and reuse.

type PeriodsRequest struct {
	Zone      string `query:"zone" json:"zone" validate:"required"`
	Date      string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
	Direction string `query:"direction" json:"direction" default:"best" validate:"oneof=best peak"`
}

type DayRequest struct {
	Zone string `query:"zone" json:"zone" validate:"required"`
}

// DetectRequest carries an ad-hoc series for one-shot detection. The series
// must be ordered and contiguous; criteria fields mirror Criteria with the
// same defaults and bounds.
type DetectRequest struct {
	Zone      string              `json:"zone" validate:"required"`
	Intervals []DetectReqInterval `json:"intervals" validate:"required,min=2,dive"`
	Criteria  Criteria            `json:"criteria"`
}

type DetectReqInterval struct {
	Start    time.Time `json:"start" validate:"required"`
	Duration string    `json:"duration" default:"15m"`
	Price    float64   `json:"price" validate:"gte=0"`
	Level    string    `json:"level"`
	Rating   float64   `json:"rating"`
}
