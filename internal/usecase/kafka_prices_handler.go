package usecase

import (
	"context"
	"encoding/json"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	pkgkafka "GridPulse/pkg/kafka"
)

// KafkaPricesHandler consumes price updates from Kafka and writes to storage.
type KafkaPricesHandler struct {
	topic     string
	storage   domrepo.Storage
	assembler *DayAssembler
	metrics   domrepo.Metrics
}

func NewKafkaPricesHandler(topic string, storage domrepo.Storage, assembler *DayAssembler, metrics domrepo.Metrics) *KafkaPricesHandler {
	return &KafkaPricesHandler{topic: topic, storage: storage, assembler: assembler, metrics: metrics}
}

func (h *KafkaPricesHandler) Topic() string { return h.topic }

// incoming message schema matches models.PriceUpdate
func (h *KafkaPricesHandler) Handle(ctx context.Context, b []byte) error {
	var u models.PriceUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if u.StartsAt > 1e11 { // ms
		u.StartsAt = u.StartsAt / 1000
	}
	// E2E latency from slice start to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(u.StartsAt, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &u)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordIntervalsStored("clickhouse", u.Zone, 1)

	if h.assembler != nil {
		h.assembler.Offer(ctx, &u)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPricesHandler)(nil)
