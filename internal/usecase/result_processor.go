package usecase

import (
	"context"
	"fmt"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
)

// ResultProcessor persists finished day results and announces them on the
// result topic. Either side may be absent depending on the backend config.
type ResultProcessor struct {
	store   drepo.Storage
	pub     drepo.Publisher
	metrics drepo.Metrics
}

func NewResultProcessor(store drepo.Storage, pub drepo.Publisher, metrics drepo.Metrics) *ResultProcessor {
	return &ResultProcessor{store: store, pub: pub, metrics: metrics}
}

func (p *ResultProcessor) Handle(ctx context.Context, dr *models.DayResult) error {
	if dr == nil {
		return fmt.Errorf("day result is nil")
	}
	if p.store != nil {
		if err := p.store.StoreResult(ctx, dr); err != nil {
			p.metrics.RecordError("result_store")
			return fmt.Errorf("store result %s %s: %w", dr.Zone, dr.Date, err)
		}
	}
	if p.pub != nil {
		if err := p.pub.PublishResult(ctx, dr); err != nil {
			p.metrics.RecordError("result_publish")
			return fmt.Errorf("publish result %s %s: %w", dr.Zone, dr.Date, err)
		}
	}
	return nil
}
