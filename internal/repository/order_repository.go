package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	pkgkafka "StockPulse/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse order-event storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	if table == "" {
		table = eventsTable
	}
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, e *models.OrderEvent) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, store_id, product_id, variant_id, type, quantity, unit_price, event_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	price, _ := e.UnitPrice.Float64()
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(e.Timestamp, 0).UTC(),
		e.StoreID,
		e.ProductID,
		e.VariantID,
		e.Type,
		e.Quantity,
		price,
		eventID(e),
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, events []*models.OrderEvent) error {
	if len(events) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, e := range events[start:end] {
			if e == nil || e.ProductID == "" || e.Timestamp == 0 {
				continue
			}
			price, _ := e.UnitPrice.Float64()
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(e.Timestamp, 0).UTC(),
				e.StoreID,
				e.ProductID,
				e.VariantID,
				e.Type,
				e.Quantity,
				price,
				eventID(e),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, store_id, product_id, variant_id, type, quantity, unit_price, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// eventID falls back to a deterministic product+timestamp key when the feed
// did not supply one, so replays dedupe in ClickHouse.
func eventID(e *models.OrderEvent) string {
	if e.EventID != "" {
		return e.EventID
	}
	return fmt.Sprintf("%s-%s-%d", e.ProductID, e.VariantID, e.Timestamp)
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka order-event publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.OrderEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.ProductID), e)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []*models.OrderEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		// Keyed by product so per-product event order survives partitioning.
		msgs[i] = pkgkafka.Message{
			Key:   []byte(e.ProductID),
			Value: e,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
