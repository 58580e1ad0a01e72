package repository

import (
	"context"
	"time"

	"StockPulse/internal/domain/models"
)

// OrderStream is a live feed of storefront order events.
type OrderStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.OrderEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher sends order events to the message backbone.
type Publisher interface {
	Publish(ctx context.Context, e *models.OrderEvent) error
	PublishBatch(ctx context.Context, events []*models.OrderEvent) error
	Close() error
}

// AlertPublisher emits restock alerts for urgent recommendations.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, res *models.AnalysisResult) error
}

// Storage is the raw order-event store.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, e *models.OrderEvent) error
	StoreBatch(ctx context.Context, events []*models.OrderEvent) error
	Health(ctx context.Context) error // ping
	Close() error
}

// Inventory is the repository adapter the analysis engine consumes.
// GetSalesSeries must return a gap-free, zero-filled daily series.
type Inventory interface {
	GetSalesSeries(ctx context.Context, productID, variantID string, days int) (models.SalesSeries, error)
	GetProductSnapshot(ctx context.Context, productID, variantID string) (*models.ProductSnapshot, error)
	GetCategoryAverageSales(ctx context.Context, category, petType string, days int) (*models.CategoryAverage, error)
	ListActiveProducts(ctx context.Context, storeID string, limit int) ([]*models.ProductSnapshot, error)
}

// AnalysisSink persists analysis results. Fire-and-forget: a sink failure
// must never affect the in-memory result already computed.
type AnalysisSink interface {
	PersistAnalysis(ctx context.Context, res *models.AnalysisResult) error
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordMessageSent(backend, store string)
	RecordError(kind string)
	RecordUrgencyScore(productID string, score float64)
	RecordLatency(op string, seconds float64)
}

// PredictionRecord is the persisted shape of one analysis run.
type PredictionRecord struct {
	ProductID         string
	VariantID         string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	PredictedDemand   float64
	Urgency           string
	SuggestedQuantity int
	Model             string
	Confidence        float64
	CreatedAt         time.Time
}
