package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
)

// OrderProcessor routes order events to the configured backend.
type OrderProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewOrderProcessor creates a new OrderProcessor instance.
func NewOrderProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *OrderProcessor {
	return &OrderProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single order event to the configured backend.
func (p *OrderProcessor) Process(ctx context.Context, e *models.OrderEvent) error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, e)
	case "clickhouse":
		err = p.store.Store(ctx, e)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process event: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, e.StoreID)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple order events in a batch.
func (p *OrderProcessor) ProcessBatch(ctx context.Context, events []*models.OrderEvent) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, events)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, events)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, e := range events {
		p.metrics.RecordMessageSent(p.backend, e.StoreID)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *OrderProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
