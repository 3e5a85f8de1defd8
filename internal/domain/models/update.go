package models

import "time"

// PriceUpdate is one raw price message from the provider: either a live spot
// update or one slice of a freshly published day-ahead curve.
type PriceUpdate struct {
	Zone     string  `json:"zone"`
	StartsAt int64   `json:"starts_at"` // unix seconds
	Duration int64   `json:"duration"`  // seconds
	Price    float64 `json:"price"`
	Level    string  `json:"level,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// Interval converts the raw update into the engine's interval form.
func (u *PriceUpdate) Interval() PriceInterval {
	d := time.Duration(u.Duration) * time.Second
	if d <= 0 {
		d = time.Hour
	}
	return PriceInterval{
		Start:    time.Unix(u.StartsAt, 0).UTC(),
		Duration: d,
		Zone:     u.Zone,
		Price:    u.Price,
		Smoothed: u.Price,
		Level:    ParsePriceLevel(u.Level),
	}
}
