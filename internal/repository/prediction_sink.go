package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
	"StockPulse/pkg/cache"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/queue"
)

// PersistAnalysisMsg is the queue message type for deferred persistence.
const PersistAnalysisMsg = "analysis.persist"

// KafkaAlertPublisher emits restock alerts on a dedicated topic.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) PublishAlert(ctx context.Context, res *models.AnalysisResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(res.ProductID), map[string]interface{}{
		"product_id":         res.ProductID,
		"variant_id":         res.VariantID,
		"name":               res.ProductName,
		"store_id":           res.StoreID,
		"urgency":            string(res.Stockout.Urgency),
		"urgency_score":      res.Stockout.UrgencyScore,
		"days_remaining":     res.Stockout.DaysRemaining,
		"suggested_quantity": res.Restock.SuggestedQuantity,
		"action":             res.Restock.Action,
		"analyzed_at":        res.AnalyzedAt.Unix(),
	})
}

// CHPredictionStore writes finished analyses to ClickHouse, refreshes the
// latest-analysis cache entry, and raises an alert for the urgent tiers.
type CHPredictionStore struct {
	db          *sql.DB
	alerts      repository.AlertPublisher
	cache       cache.Service
	analysisTTL time.Duration
	horizonDays int
	l           *applogger.Logger
}

func NewCHPredictionStore(db *sql.DB, horizonDays int) *CHPredictionStore {
	return &CHPredictionStore{db: db, horizonDays: horizonDays}
}

func (s *CHPredictionStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPredictionStore) SetAlerts(a repository.AlertPublisher) { s.alerts = a }

func (s *CHPredictionStore) SetCache(c cache.Service, ttl time.Duration) {
	s.cache = c
	s.analysisTTL = ttl
}

func (s *CHPredictionStore) PersistAnalysis(ctx context.Context, res *models.AnalysisResult) error {
	if res == nil || !res.Success {
		return nil
	}
	rec := s.record(res)
	q := fmt.Sprintf(`INSERT INTO %s
        (product_id, variant_id, period_start, period_end, predicted_demand,
         urgency, suggested_quantity, model, confidence, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, predictionsTable)
	if _, err := s.db.ExecContext(ctx, q,
		rec.ProductID, rec.VariantID, rec.PeriodStart, rec.PeriodEnd,
		rec.PredictedDemand, rec.Urgency, rec.SuggestedQuantity,
		rec.Model, rec.Confidence, rec.CreatedAt,
	); err != nil {
		if s.l != nil {
			s.l.Error("prediction insert failed",
				applogger.String("product", res.ProductID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("persist analysis: %w", err)
	}

	if s.cache != nil {
		key := cache.GenerateKeyWithParams("analysis", res.ProductID, res.VariantID)
		if err := s.cache.Set(ctx, key, res, s.analysisTTL); err != nil && s.l != nil {
			s.l.Warn("analysis cache set failed", applogger.Error(err))
		}
	}

	if s.alerts != nil && urgentTier(res.Stockout.Urgency) {
		if err := s.alerts.PublishAlert(ctx, res); err != nil && s.l != nil {
			s.l.Warn("restock alert publish failed",
				applogger.String("product", res.ProductID),
				applogger.Error(err),
			)
		}
	}
	return nil
}

func (s *CHPredictionStore) record(res *models.AnalysisResult) repository.PredictionRecord {
	start := models.Midnight(res.AnalyzedAt.UTC())
	return repository.PredictionRecord{
		ProductID:         res.ProductID,
		VariantID:         res.VariantID,
		PeriodStart:       start,
		PeriodEnd:         start.AddDate(0, 0, s.horizonDays),
		PredictedDemand:   res.Forecast.TotalDemand,
		Urgency:           string(res.Stockout.Urgency),
		SuggestedQuantity: res.Restock.SuggestedQuantity,
		Model:             res.Model,
		Confidence:        res.Confidence,
		CreatedAt:         res.AnalyzedAt.UTC(),
	}
}

func urgentTier(u models.Urgency) bool {
	return u == models.UrgencyCritical || u == models.UrgencyHigh
}

// QueuedAnalysisSink defers persistence to the redis-backed job queue, so
// API latency never pays for ClickHouse writes or Kafka alert delivery.
type QueuedAnalysisSink struct {
	q queue.QueueService
}

func NewQueuedAnalysisSink(q queue.QueueService) *QueuedAnalysisSink {
	return &QueuedAnalysisSink{q: q}
}

func (s *QueuedAnalysisSink) PersistAnalysis(ctx context.Context, res *models.AnalysisResult) error {
	return s.q.PublishMessage(ctx, PersistAnalysisMsg, res)
}

// PersistAnalysisJob drains queued analyses into the prediction store.
type PersistAnalysisJob struct {
	store *CHPredictionStore
}

func NewPersistAnalysisJob(store *CHPredictionStore) *PersistAnalysisJob {
	return &PersistAnalysisJob{store: store}
}

func (j *PersistAnalysisJob) Name() string { return "persist_analysis_job" }

func (j *PersistAnalysisJob) Type() string { return PersistAnalysisMsg }

func (j *PersistAnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	res, err := queue.ParsePayload[models.AnalysisResult](payload)
	if err != nil {
		return fmt.Errorf("parse analysis payload: %w", err)
	}
	return j.store.PersistAnalysis(ctx, res)
}
