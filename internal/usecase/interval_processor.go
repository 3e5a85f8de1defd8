package usecase

import (
	"context"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
)

// IntervalProcessor routes incoming price updates to the configured backend.
type IntervalProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewIntervalProcessor creates a new IntervalProcessor instance.
func NewIntervalProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *IntervalProcessor {
	return &IntervalProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single price update to the configured backend.
func (p *IntervalProcessor) Process(ctx context.Context, u *models.PriceUpdate) error {
	if u == nil {
		return fmt.Errorf("update is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, u)
	case "clickhouse":
		err = p.store.Store(ctx, u)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process update: %w", err)
	}

	p.metrics.RecordIntervalsStored(p.backend, u.Zone, 1)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple price updates in a batch.
func (p *IntervalProcessor) ProcessBatch(ctx context.Context, updates []*models.PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, updates)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, updates)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	byZone := make(map[string]int, 4)
	for _, u := range updates {
		byZone[u.Zone]++
	}
	for zone, n := range byZone {
		p.metrics.RecordIntervalsStored(p.backend, zone, n)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *IntervalProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
