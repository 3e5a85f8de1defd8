package usecase

import (
	"context"
	"strings"
	"time"

	"GridPulse/pkg/logger"
	"GridPulse/pkg/queue"
)

// CurveFetchPayload identifies one zone-day to fetch from the provider.
type CurveFetchPayload struct {
	Zone string `json:"zone"`
	Date string `json:"date"`
}

const curveFetchType = "curve_fetch"

// CurveFetchJob pulls a published curve and runs detection on it. Day-ahead
// curves are polled before publication, so "not published" is a normal
// outcome, not a retryable failure.
type CurveFetchJob struct {
	assembler *DayAssembler
	log       *logger.Logger
}

func NewCurveFetchJob(assembler *DayAssembler, log *logger.Logger) *CurveFetchJob {
	return &CurveFetchJob{assembler: assembler, log: log}
}

func (j *CurveFetchJob) Name() string { return "curve-fetch" }
func (j *CurveFetchJob) Type() string { return curveFetchType }

func (j *CurveFetchJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[CurveFetchPayload](payload)
	if err != nil {
		return err
	}
	_, _, err = j.assembler.Backfill(ctx, p.Zone, p.Date)
	if err != nil {
		if strings.Contains(err.Error(), "not published") {
			j.log.Debug("curve not published yet",
				logger.String("zone", p.Zone),
				logger.String("date", p.Date))
			return nil
		}
		return err
	}
	return nil
}

var _ queue.Job = (*CurveFetchJob)(nil)

// CurvePoller periodically schedules curve fetches for every configured zone:
// today's curve plus tomorrow's, which appears around publication time. With a
// queue the fetches get retries and a DLQ; without one they run inline.
type CurvePoller struct {
	zones    []string
	interval time.Duration
	q        queue.QueueService
	job      *CurveFetchJob
	log      *logger.Logger
	stopCh   chan struct{}
}

func NewCurvePoller(zones []string, interval time.Duration, q queue.QueueService, job *CurveFetchJob, log *logger.Logger) *CurvePoller {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &CurvePoller{
		zones:    zones,
		interval: interval,
		q:        q,
		job:      job,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

func (p *CurvePoller) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
	p.log.Info("curve poller started",
		logger.Strings("zones", p.zones),
		logger.Duration("interval", p.interval))
}

func (p *CurvePoller) Stop() { close(p.stopCh) }

func (p *CurvePoller) tick(ctx context.Context) {
	now := time.Now().UTC()
	dates := []string{
		now.Format("2006-01-02"),
		now.AddDate(0, 0, 1).Format("2006-01-02"),
	}
	for _, zone := range p.zones {
		for _, date := range dates {
			payload := CurveFetchPayload{Zone: zone, Date: date}
			if p.q != nil {
				if err := p.q.PublishMessage(ctx, curveFetchType, payload); err != nil {
					p.log.Warn("curve fetch enqueue failed",
						logger.String("zone", zone),
						logger.String("date", date),
						logger.Error(err))
				}
				continue
			}
			if err := p.job.Handle(ctx, payload); err != nil {
				p.log.Warn("curve fetch failed",
					logger.String("zone", zone),
					logger.String("date", date),
					logger.Error(err))
			}
		}
	}
}
