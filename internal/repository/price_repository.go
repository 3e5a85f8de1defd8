package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"GridPulse/internal/domain/models"
	"GridPulse/internal/domain/repository"
	pkgkafka "GridPulse/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse: raw interval writes
// plus period rows written when a day result is stored.
type ClickHouseStorage struct {
	db           *sql.DB
	pricesTable  string
	periodsTable string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, pricesTable, periodsTable string) repository.Storage {
	return &ClickHouseStorage{db: db, pricesTable: pricesTable, periodsTable: periodsTable}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, u *models.PriceUpdate) error {
	q := fmt.Sprintf("INSERT INTO %s (starts_at, zone, duration_s, price, level, currency, event_id) VALUES (?, ?, ?, ?, ?, ?, ?)", s.pricesTable)
	// Idempotency: event_id derived from zone+slice start, so a republished
	// slice dedupes via ReplacingMergeTree.
	eventID := fmt.Sprintf("%s-%d", u.Zone, u.StartsAt)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(u.StartsAt, 0),
		u.Zone,
		u.Duration,
		u.Price,
		u.Level,
		u.Currency,
		eventID,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, updates []*models.PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(updates); start += chunkSize {
		end := start + chunkSize
		if end > len(updates) {
			end = len(updates)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, u := range updates[start:end] {
			if u == nil || u.Zone == "" || u.StartsAt == 0 {
				continue
			}
			eventID := fmt.Sprintf("%s-%d", u.Zone, u.StartsAt)
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(u.StartsAt, 0),
				u.Zone,
				u.Duration,
				u.Price,
				u.Level,
				u.Currency,
				eventID,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (starts_at, zone, duration_s, price, level, currency, event_id) VALUES %s", s.pricesTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// QueryDay reads back one zone-local day of intervals, ordered by start.
func (s *ClickHouseStorage) QueryDay(ctx context.Context, zone, date string) ([]models.PriceInterval, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("bad date %q: %w", date, err)
	}
	q := fmt.Sprintf("SELECT starts_at, duration_s, price, level FROM %s FINAL WHERE zone = ? AND starts_at >= ? AND starts_at < ? ORDER BY starts_at", s.pricesTable)
	rows, err := s.db.QueryContext(ctx, q, zone, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var iv []models.PriceInterval
	for rows.Next() {
		var (
			ts    time.Time
			durS  int64
			price float64
			level string
		)
		if err := rows.Scan(&ts, &durS, &price, &level); err != nil {
			return nil, err
		}
		d := time.Duration(durS) * time.Second
		if d <= 0 {
			d = time.Hour
		}
		iv = append(iv, models.PriceInterval{
			Start:    ts.UTC(),
			Duration: d,
			Zone:     zone,
			Price:    price,
			Smoothed: price,
			Level:    models.ParsePriceLevel(level),
		})
	}
	return iv, rows.Err()
}

// StoreResult writes one period row per detected period. Day-level flags are
// denormalized onto every row so queries never need a second table.
func (s *ClickHouseStorage) StoreResult(ctx context.Context, dr *models.DayResult) error {
	if dr == nil || len(dr.Periods) == 0 {
		return nil
	}
	values := make([]string, 0, len(dr.Periods))
	args := make([]interface{}, 0, len(dr.Periods)*14)
	for _, p := range dr.Periods {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			dr.Zone,
			dr.Date,
			string(dr.Direction),
			p.Start,
			p.End,
			int64(p.Duration/time.Second),
			p.IntervalCount,
			p.Stats.Avg,
			p.Stats.Min,
			p.Stats.Max,
			p.SmoothedCount,
			p.GapCount,
			p.Attempt,
			boolUint8(dr.TargetMet),
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (zone, date, direction, start, `end`, duration_s, interval_count, avg, min, max, smoothed_count, gap_count, attempt, target_met) VALUES %s",
		s.periodsTable, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

// QueryPeriods reads stored periods overlapping [from, to] for a zone.
func (s *ClickHouseStorage) QueryPeriods(ctx context.Context, zone string, from, to time.Time, limit int) ([]models.Period, error) {
	q := fmt.Sprintf("SELECT start, `end`, duration_s, interval_count, avg, min, max, smoothed_count, gap_count, attempt FROM %s FINAL WHERE zone = ? AND start <= ? AND `end` >= ? ORDER BY start LIMIT ?", s.periodsTable)
	rows, err := s.db.QueryContext(ctx, q, zone, to, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []models.Period
	for rows.Next() {
		var (
			p    models.Period
			durS int64
		)
		if err := rows.Scan(&p.Start, &p.End, &durS, &p.IntervalCount, &p.Stats.Avg, &p.Stats.Min, &p.Stats.Max, &p.SmoothedCount, &p.GapCount, &p.Attempt); err != nil {
			return nil, err
		}
		p.Start = p.Start.UTC()
		p.End = p.End.UTC()
		p.Duration = time.Duration(durS) * time.Second
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

func boolUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// KafkaPublisher implements Publisher for Kafka. Updates are keyed by zone so
// per-zone ordering survives partitioning; results go to a separate topic.
type KafkaPublisher struct {
	producer    *pkgkafka.Producer
	topic       string
	resultTopic string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic, resultTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic, resultTopic: resultTopic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, u *models.PriceUpdate) error {
	return p.producer.Publish(ctx, p.topic, []byte(u.Zone), u)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, updates []*models.PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(updates))
	for i, u := range updates {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(u.Zone),
			Value: u,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// PublishResult announces a finished day result, keyed by zone|date so
// consumers see at most one in-flight message per day.
func (p *KafkaPublisher) PublishResult(ctx context.Context, dr *models.DayResult) error {
	if p.resultTopic == "" {
		return nil
	}
	key := []byte(dr.Zone + "|" + dr.Date)
	return p.producer.Publish(ctx, p.resultTopic, key, dr)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
