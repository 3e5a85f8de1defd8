package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	applogger "GridPulse/pkg/logger"
)

// dayCoverage is how much of a day must be collected before the assembler
// considers the curve complete and fires detection.
const dayCoverage = 24 * time.Hour

// DayAssembler accumulates streamed price updates into per-zone day buckets
// and fires detection once a day's curve is complete. Days that never complete
// over the stream can be backfilled from the REST curve endpoint.
type DayAssembler struct {
	fetch   drepo.CurveFetcher
	det     *Detector
	sink    *ResultProcessor
	metrics drepo.Metrics
	log     *applogger.Logger

	best models.Criteria
	peak models.Criteria

	mu      sync.Mutex
	buckets map[string]map[string]map[int64]models.PriceInterval // zone -> date -> start unix -> interval
	done    map[string]bool                                      // zone|date already detected
}

func NewDayAssembler(fetch drepo.CurveFetcher, det *Detector, sink *ResultProcessor, metrics drepo.Metrics, log *applogger.Logger, best, peak models.Criteria) *DayAssembler {
	return &DayAssembler{
		fetch:   fetch,
		det:     det,
		sink:    sink,
		metrics: metrics,
		log:     log,
		best:    best,
		peak:    peak,
		buckets: make(map[string]map[string]map[int64]models.PriceInterval),
		done:    make(map[string]bool),
	}
}

// Offer adds one streamed update to its day bucket. Duplicate starts overwrite
// (a republished slice replaces the old value, which also makes the cache key
// change and forces recomputation on backfill).
func (a *DayAssembler) Offer(ctx context.Context, u *models.PriceUpdate) {
	if u == nil || u.Zone == "" {
		return
	}
	iv := u.Interval()
	date := iv.Date()

	a.mu.Lock()
	days, ok := a.buckets[u.Zone]
	if !ok {
		days = make(map[string]map[int64]models.PriceInterval)
		a.buckets[u.Zone] = days
	}
	day, ok := days[date]
	if !ok {
		day = make(map[int64]models.PriceInterval)
		days[date] = day
	}
	day[iv.Start.Unix()] = iv
	complete := a.complete(day) && !a.done[u.Zone+"|"+date]
	if complete {
		a.done[u.Zone+"|"+date] = true
	}
	a.mu.Unlock()

	if complete {
		go a.detect(ctx, u.Zone, date)
	}
}

// Backfill fetches the published curve for a day over REST, detects it, and
// seeds the bucket so a later stream replay does not retrigger.
func (a *DayAssembler) Backfill(ctx context.Context, zone, date string) (*models.DayResult, *models.DayResult, error) {
	iv, err := a.fetch.FetchDay(ctx, zone, date)
	if err != nil {
		a.metrics.RecordError("backfill")
		return nil, nil, err
	}

	a.mu.Lock()
	days, ok := a.buckets[zone]
	if !ok {
		days = make(map[string]map[int64]models.PriceInterval)
		a.buckets[zone] = days
	}
	day := make(map[int64]models.PriceInterval, len(iv))
	for _, p := range iv {
		day[p.Start.Unix()] = p
	}
	days[date] = day
	a.done[zone+"|"+date] = true
	a.mu.Unlock()

	return a.detect(ctx, zone, date)
}

// detect runs both directions for a completed day and hands the results to
// the sink. A next-day tail is appended when available so periods can run
// past midnight.
func (a *DayAssembler) detect(ctx context.Context, zone, date string) (*models.DayResult, *models.DayResult, error) {
	series := a.series(zone, date)
	if len(series) == 0 {
		return nil, nil, nil
	}

	bestRes, err := a.det.ComputeDay(ctx, zone, date, series, a.best)
	if err != nil {
		if a.log != nil {
			a.log.Error("best detection failed", applogger.String("zone", zone), applogger.String("date", date), applogger.Error(err))
		}
		return nil, nil, err
	}
	peakRes, err := a.det.ComputeDay(ctx, zone, date, series, a.peak)
	if err != nil {
		if a.log != nil {
			a.log.Error("peak detection failed", applogger.String("zone", zone), applogger.String("date", date), applogger.Error(err))
		}
		return bestRes, nil, err
	}

	if a.sink != nil {
		if err := a.sink.Handle(ctx, bestRes); err != nil && a.log != nil {
			a.log.Error("result sink", applogger.Error(err))
		}
		if err := a.sink.Handle(ctx, peakRes); err != nil && a.log != nil {
			a.log.Error("result sink", applogger.Error(err))
		}
	}
	a.evict(date)
	return bestRes, peakRes, nil
}

// series returns the sorted intervals for a day plus the next day's tail when
// its bucket is already populated and adjacent.
func (a *DayAssembler) series(zone, date string) []models.PriceInterval {
	a.mu.Lock()
	defer a.mu.Unlock()

	days, ok := a.buckets[zone]
	if !ok {
		return nil
	}
	day, ok := days[date]
	if !ok {
		return nil
	}
	series := sortedIntervals(day)
	if len(series) == 0 {
		return nil
	}

	nextDate := series[0].Start.AddDate(0, 0, 1).Format("2006-01-02")
	if next, ok := days[nextDate]; ok {
		tail := sortedIntervals(next)
		if len(tail) > 0 && tail[0].Start.Equal(series[len(series)-1].End()) {
			series = append(series, tail...)
		}
	}
	return series
}

// complete reports whether the collected intervals cover a full day without
// gaps. Durations are summed after a contiguity walk over the sorted starts.
func (a *DayAssembler) complete(day map[int64]models.PriceInterval) bool {
	if len(day) == 0 {
		return false
	}
	iv := sortedIntervals(day)
	var covered time.Duration
	for i := range iv {
		if i > 0 && !iv[i].Start.Equal(iv[i-1].End()) {
			return false
		}
		covered += iv[i].Duration
	}
	return covered >= dayCoverage
}

// evict drops buckets two or more days older than the given date. The next
// day is kept: it is the midnight tail of the day just detected and will be
// detected itself later.
func (a *DayAssembler) evict(date string) {
	cutoff, err := time.Parse("2006-01-02", date)
	if err != nil {
		return
	}
	cutoff = cutoff.AddDate(0, 0, -1)

	a.mu.Lock()
	defer a.mu.Unlock()
	for zone, days := range a.buckets {
		for d := range days {
			t, err := time.Parse("2006-01-02", d)
			if err != nil || t.Before(cutoff) {
				delete(days, d)
				delete(a.done, zone+"|"+d)
			}
		}
	}
}

func sortedIntervals(day map[int64]models.PriceInterval) []models.PriceInterval {
	iv := make([]models.PriceInterval, 0, len(day))
	for _, p := range day {
		iv = append(iv, p)
	}
	sort.Slice(iv, func(i, j int) bool { return iv[i].Start.Before(iv[j].Start) })
	return iv
}
