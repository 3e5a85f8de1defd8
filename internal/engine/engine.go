package engine

import (
	"sort"
	"time"

	"GridPulse/internal/domain/models"
	applogger "GridPulse/pkg/logger"
)

// A day whose full price spread is within this share of the average is
// degenerate: still computed, never an error.
const degenerateSpread = 0.01

// Engine detects best/peak price periods over an interval series. It is a
// pure function of (series, criteria): no I/O, identical inputs yield
// bit-identical output.
type Engine struct {
	smoother SmootherConfig
	log      *applogger.Logger
}

type Option func(*Engine)

// WithSmoother overrides the outlier smoother tuning.
func WithSmoother(cfg SmootherConfig) Option {
	return func(e *Engine) { e.smoother = cfg }
}

// WithLogger injects a structured logger for informational events.
func WithLogger(l *applogger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	e.smoother.normalize()
	return e
}

// Run groups the series into zone-local days and runs per-day detection.
// Criteria problems abort the whole call; a broken day aborts only that day
// (reported in DetectionResult.Errors) while sibling days proceed. The input
// slice is never mutated.
func (e *Engine) Run(series []models.PriceInterval, crit models.Criteria) (*models.DetectionResult, error) {
	crit.Clamp()
	if crit.MinDuration <= 0 {
		return nil, configErrorf("minimum period duration must be positive")
	}
	if crit.MinDuration > 24*time.Hour {
		return nil, configErrorf("minimum period duration %s exceeds a full day", crit.MinDuration)
	}
	if len(series) == 0 {
		return nil, inputErrorf("", "empty interval series")
	}
	for i := 1; i < len(series); i++ {
		if series[i].Start.Before(series[i-1].Start) {
			return nil, inputErrorf("", "interval series not ordered by start")
		}
	}

	// Work on a snapshot: only the Smoothed field is ever written, and only
	// on our copy.
	sc := make([]models.PriceInterval, len(series))
	copy(sc, series)
	smoothedIdx := Smooth(sc, e.smoother)
	smoothedSet := make(map[int]bool, len(smoothedIdx))
	for _, i := range smoothedIdx {
		smoothedSet[i] = true
	}

	res := sc[0].Duration
	result := &models.DetectionResult{
		Zone:   sc[0].Zone,
		Days:   make(map[string]*models.DayResult),
		Errors: make(map[string]string),
	}

	type dayRange struct {
		date       string
		start, end int // indexes into sc
	}
	var days []dayRange
	for i := 0; i < len(sc); {
		date := sc[i].Date()
		j := i
		for j < len(sc) && sc[j].Date() == date {
			j++
		}
		days = append(days, dayRange{date: date, start: i, end: j})
		i = j
	}

	var prevOverhang time.Time
	for di, d := range days {
		iv := sc[d.start:d.end]
		if err := validateDay(iv, res); err != nil {
			result.Errors[d.date] = err.Error()
			prevOverhang = time.Time{}
			continue
		}

		st := dayStats(iv)
		degenerate := st.Avg > 0 && (st.Max-st.Min) <= degenerateSpread*st.Avg
		if degenerate && e.log != nil {
			e.log.Info("degenerate flat-price day",
				applogger.String("date", d.date),
				applogger.Any("spread", st.Max-st.Min))
		}

		// Periods may run past local midnight: extend the working slice
		// with the next day's intervals but keep this day's statistics for
		// every threshold comparison.
		tailEnd := d.end
		if di+1 < len(days) {
			next := days[di+1]
			if sc[next.start].Start.Equal(sc[d.end-1].End()) {
				tailEnd = next.end
			}
		}

		outcome := runDay(dayInput{
			iv:     sc[d.start:tailEnd],
			dayLen: d.end - d.start,
			st:     st,
			res:    res,
		}, crit)

		dr := &models.DayResult{
			Date:             d.date,
			Zone:             result.Zone,
			Direction:        crit.Direction,
			RelaxationActive: outcome.relaxed,
			Relaxation:       outcome.descriptor,
			TargetMet:        outcome.targetMet,
			Degenerate:       degenerate,
		}
		for i := d.start; i < d.end; i++ {
			if smoothedSet[i] {
				dr.SmoothedCount++
			}
		}
		for _, c := range outcome.cands {
			p := toPeriod(sc, d.start, c, smoothedSet)
			if !prevOverhang.IsZero() && p.Start.Before(prevOverhang) {
				// already reported as the previous day's overhanging period
				continue
			}
			dr.Periods = append(dr.Periods, p)
		}
		sort.Slice(dr.Periods, func(i, j int) bool { return dr.Periods[i].Start.Before(dr.Periods[j].Start) })

		prevOverhang = time.Time{}
		if n := len(dr.Periods); n > 0 {
			if end := dr.Periods[n-1].End; end.After(sc[d.end-1].End()) {
				prevOverhang = end
			}
		}

		result.Days[d.date] = dr
	}
	return result, nil
}

// validateDay checks the external input contract: ordered, contiguous,
// gap-free, uniform durations.
func validateDay(iv []models.PriceInterval, res time.Duration) error {
	if len(iv) == 0 {
		return inputErrorf("", "empty day series")
	}
	date := iv[0].Date()
	for i := range iv {
		if iv[i].Duration != res {
			return inputErrorf(date, "mixed interval durations (%s vs %s)", iv[i].Duration, res)
		}
		if i > 0 && !iv[i].Start.Equal(iv[i-1].End()) {
			return inputErrorf(date, "gap or overlap at %s", iv[i].Start.Format(time.RFC3339))
		}
	}
	return nil
}

// toPeriod converts a candidate into the reported form. Aggregate statistics
// are computed over original prices, so a smoothed spike still surfaces in
// the period max.
func toPeriod(sc []models.PriceInterval, offset int, c candidate, smoothedSet map[int]bool) models.Period {
	lo, hi := offset+c.start, offset+c.end
	p := models.Period{
		Start:         sc[lo].Start,
		End:           sc[hi-1].End(),
		IntervalCount: hi - lo,
		GapCount:      len(c.gapIdx),
		Attempt:       c.attempt,
		LevelFiltered: c.levelOn,
	}
	p.Duration = p.End.Sub(p.Start)
	st := dayStats(sc[lo:hi])
	p.Stats = models.PeriodStats{Avg: st.Avg, Min: st.Min, Max: st.Max}
	for i := lo; i < hi; i++ {
		if smoothedSet[i] {
			p.SmoothedCount++
		}
	}
	return p
}
