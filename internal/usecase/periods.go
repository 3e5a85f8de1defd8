package usecase

import (
	"context"
	"fmt"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
)

// PeriodsUseCase provides business logic for querying stored periods.
type PeriodsUseCase struct {
	store domrepo.Storage
}

func NewPeriodsUseCase(store domrepo.Storage) *PeriodsUseCase {
	return &PeriodsUseCase{store: store}
}

type GetPeriodsParams struct {
	Zone  string
	From  time.Time
	To    time.Time
	Limit int
}

type GetPeriodsResult struct {
	Zone    string
	From    time.Time
	To      time.Time
	Count   int
	Periods []models.Period
}

func (uc *PeriodsUseCase) GetPeriods(ctx context.Context, p GetPeriodsParams) (*GetPeriodsResult, error) {
	if p.Zone == "" {
		return nil, fmt.Errorf("zone required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	if p.Limit > 10000 {
		p.Limit = 10000
	}

	periods, err := uc.store.QueryPeriods(ctx, p.Zone, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get periods: %w", err)
	}

	return &GetPeriodsResult{
		Zone:    p.Zone,
		From:    p.From,
		To:      p.To,
		Count:   len(periods),
		Periods: periods,
	}, nil
}
