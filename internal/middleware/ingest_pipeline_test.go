package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

type fakeProc struct {
	events []*models.OrderEvent
	err    error
}

func (f *fakeProc) Process(ctx context.Context, e *models.OrderEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordMessageSent(backend, store string) {}

func (noopMetrics) RecordError(kind string) {}

func (noopMetrics) RecordUrgencyScore(productID string, score float64) {}

func (noopMetrics) RecordLatency(op string, seconds float64) {}

func saleEvent(product string) *models.OrderEvent {
	return &models.OrderEvent{
		ProductID: product,
		StoreID:   "store-1",
		Type:      "sale",
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(100),
		Timestamp: time.Now().Unix(),
	}
}

func TestPipelineRejectsInvalidEvents(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, noopMetrics{})

	// nil, missing product, missing timestamp, unknown type, zero quantity
	cases := []*models.OrderEvent{
		nil,
		{Type: "sale", Quantity: 1, Timestamp: 1},
		{ProductID: "p1", Type: "sale", Quantity: 1},
		{ProductID: "p1", Type: "exchange", Quantity: 1, Timestamp: 1},
		{ProductID: "p1", Type: "sale", Quantity: 0, Timestamp: 1},
	}
	for i, e := range cases {
		if err := p.Process(context.Background(), e); err == nil {
			t.Errorf("case %d: invalid event accepted", i)
		}
	}
	if len(proc.events) != 0 {
		t.Errorf("invalid events reached downstream: %d", len(proc.events))
	}
}

func TestPipelineForwardsValidEvent(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, noopMetrics{})

	if err := p.Process(context.Background(), saleEvent("p1")); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	if len(proc.events) != 1 {
		t.Fatalf("downstream got %d events, want 1", len(proc.events))
	}
}

func TestPipelineThrottlesPerProduct(t *testing.T) {
	proc := &fakeProc{}
	p := NewIngestPipeline(proc, noopMetrics{}, WithMaxRPS(1))

	// Two events for the same product inside the same second: second drops.
	_ = p.Process(context.Background(), saleEvent("p1"))
	_ = p.Process(context.Background(), saleEvent("p1"))
	if len(proc.events) != 1 {
		t.Errorf("throttle let through %d events, want 1", len(proc.events))
	}

	// A different product is not affected.
	_ = p.Process(context.Background(), saleEvent("p2"))
	if len(proc.events) != 2 {
		t.Errorf("other product throttled: got %d events, want 2", len(proc.events))
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &fakeProc{err: errors.New("backend down")}
	p := NewIngestPipeline(proc, noopMetrics{}, WithBufferSize(10))

	if err := p.Process(context.Background(), saleEvent("p1")); err == nil {
		t.Fatal("downstream error not surfaced")
	}
	if got := len(p.bufCh); got != 1 {
		t.Errorf("buffered %d events, want 1", got)
	}
}
