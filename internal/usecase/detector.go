package usecase

import (
	"context"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	"GridPulse/internal/engine"
	"GridPulse/internal/service/cache"
	applogger "GridPulse/pkg/logger"
)

// Detector runs period detection for complete days and memoizes the outcome.
// A cache key binds zone, date, criteria and the exact price sequence, so a
// republished curve recomputes instead of serving the stale generation.
type Detector struct {
	eng     *engine.Engine
	results *cache.ResultCache
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewDetector(eng *engine.Engine, results *cache.ResultCache, metrics drepo.Metrics, log *applogger.Logger) *Detector {
	return &Detector{eng: eng, results: results, metrics: metrics, log: log}
}

// ComputeDay detects periods for one zone-local day. The series may carry a
// tail of next-day intervals so periods can run past midnight; the reported
// result is always the one for date.
func (d *Detector) ComputeDay(ctx context.Context, zone, date string, iv []models.PriceInterval, crit models.Criteria) (*models.DayResult, error) {
	key := d.results.Key(zone, date, crit.Fingerprint(), iv)
	if dr, ok := d.results.Get(key); ok {
		d.metrics.RecordCacheOp("hit")
		return dr, nil
	}
	d.metrics.RecordCacheOp("miss")

	start := time.Now()
	res, err := d.eng.Run(iv, crit)
	d.metrics.RecordLatency("detect", time.Since(start).Seconds())
	if err != nil {
		d.metrics.RecordDayComputed(zone, string(crit.Direction), "error")
		return nil, fmt.Errorf("detect %s %s: %w", zone, date, err)
	}
	if msg, ok := res.Errors[date]; ok {
		d.metrics.RecordDayComputed(zone, string(crit.Direction), "error")
		return nil, fmt.Errorf("detect %s %s: %s", zone, date, msg)
	}
	dr, ok := res.Days[date]
	if !ok {
		d.metrics.RecordDayComputed(zone, string(crit.Direction), "error")
		return nil, fmt.Errorf("detect %s %s: day not in series", zone, date)
	}

	d.record(zone, dr)
	d.results.Put(zone, date, key, dr)

	if d.log != nil {
		d.log.Info("day computed",
			applogger.String("zone", zone),
			applogger.String("date", date),
			applogger.String("direction", string(dr.Direction)),
			applogger.Int("periods", len(dr.Periods)))
	}
	return dr, nil
}

// ComputeSeries runs detection over an ad-hoc multi-day series without
// touching the cache. Used by the one-shot detect endpoint.
func (d *Detector) ComputeSeries(ctx context.Context, zone string, iv []models.PriceInterval, crit models.Criteria) (*models.DetectionResult, error) {
	start := time.Now()
	res, err := d.eng.Run(iv, crit)
	d.metrics.RecordLatency("detect", time.Since(start).Seconds())
	if err != nil {
		d.metrics.RecordDayComputed(zone, string(crit.Direction), "error")
		return nil, err
	}
	for _, dr := range res.Days {
		d.record(zone, dr)
	}
	return res, nil
}

// Invalidate drops the cached result for a day, forcing the next lookup to
// recompute.
func (d *Detector) Invalidate(zone, date string) {
	d.results.Invalidate(zone, date)
}

func (d *Detector) record(zone string, dr *models.DayResult) {
	outcome := "target_met"
	if !dr.TargetMet {
		outcome = "target_missed"
	}
	d.metrics.RecordDayComputed(zone, string(dr.Direction), outcome)
	d.metrics.RecordPeriods(zone, string(dr.Direction), len(dr.Periods))
	if dr.Degenerate {
		d.metrics.RecordDegenerateDay(zone)
	}
	attempts := 0
	for _, p := range dr.Periods {
		if p.Attempt > attempts {
			attempts = p.Attempt
		}
	}
	if dr.RelaxationActive || attempts > 0 {
		d.metrics.RecordRelaxAttempts(attempts)
	}
}
