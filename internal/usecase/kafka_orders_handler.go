package usecase

import (
	"context"
	"encoding/json"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	pkgkafka "StockPulse/pkg/kafka"
)

// KafkaOrdersHandler consumes order events off Kafka and writes them to
// storage.
type KafkaOrdersHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaOrdersHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaOrdersHandler {
	return &KafkaOrdersHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaOrdersHandler) Topic() string { return h.topic }

func (h *KafkaOrdersHandler) Handle(ctx context.Context, b []byte) error {
	var e models.OrderEvent
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if e.Timestamp > 1e11 { // ms
		e.Timestamp = e.Timestamp / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(e.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &e)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", e.StoreID)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOrdersHandler)(nil)
