package usecase

import (
	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	mid "StockPulse/internal/middleware"
	"context"
)

// OrderCollector pulls events off the order feed and hands them to the
// ingest pipeline.
type OrderCollector struct {
	stream  drepo.OrderStream
	proc    *OrderProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewOrderCollector creates a new OrderCollector instance.
func NewOrderCollector(stream drepo.OrderStream, proc *OrderProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *OrderCollector {
	return &OrderCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the order feed is connected.
func (c *OrderCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *OrderCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *OrderCollector) consume(ctx context.Context, evCh <-chan *models.OrderEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case e := <-evCh:
			if e == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, e)
			} else {
				_ = c.proc.Process(ctx, e)
			}
		}
	}
}

func (c *OrderCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying OrderProcessor for lifecycle management.
func (c *OrderCollector) Processor() *OrderProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *OrderCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
