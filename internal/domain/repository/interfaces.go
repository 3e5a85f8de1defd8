package repository

import (
	"context"
	"time"

	"GridPulse/internal/domain/models"
)

// PriceStream is the live provider feed (WebSocket).
type PriceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// CurveFetcher pulls a whole day-ahead curve over REST.
type CurveFetcher interface {
	FetchDay(ctx context.Context, zone, date string) ([]models.PriceInterval, error)
}

type Publisher interface {
	Publish(ctx context.Context, u *models.PriceUpdate) error
	PublishBatch(ctx context.Context, updates []*models.PriceUpdate) error
	PublishResult(ctx context.Context, dr *models.DayResult) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, u *models.PriceUpdate) error
	StoreBatch(ctx context.Context, updates []*models.PriceUpdate) error
	QueryDay(ctx context.Context, zone, date string) ([]models.PriceInterval, error)
	StoreResult(ctx context.Context, dr *models.DayResult) error
	QueryPeriods(ctx context.Context, zone string, from, to time.Time, limit int) ([]models.Period, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordDayComputed(zone, direction, outcome string)
	RecordPeriods(zone, direction string, n int)
	RecordRelaxAttempts(n int)
	RecordDegenerateDay(zone string)
	RecordCacheOp(result string)
	RecordIntervalsStored(backend, zone string, n int)
	RecordError(kind string)
	RecordLastPrice(zone string, price float64)
	RecordLatency(op string, seconds float64)
}
