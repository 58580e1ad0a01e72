package service

import (
	"context"

	"StockPulse/internal/domain/models"
)

// Capabilities is the model availability set, resolved once at process
// start from config. A missing family makes the forecasters cascade to the
// next simpler method; the engine stays functional with everything off.
type Capabilities struct {
	Decomposition   bool
	Smoothing       bool
	Trees           bool
	IsolationForest bool
}

// AllCapabilities enables every model family.
func AllCapabilities() Capabilities {
	return Capabilities{Decomposition: true, Smoothing: true, Trees: true, IsolationForest: true}
}

// DemandForecaster produces statistical demand forecasts.
type DemandForecaster interface {
	Forecast(ctx context.Context, series models.SalesSeries, horizonDays int, method string) models.ForecastResult
	ClassifyTrend(series models.SalesSeries) string
	HasWeeklySeasonality(series models.SalesSeries) bool
}

// AdvancedForecaster produces tree-ensemble forecasts. Nil results mean the
// layer is unavailable for this series, which is a valid outcome.
type AdvancedForecaster interface {
	ForecastTreeModel(ctx context.Context, series models.SalesSeries, horizonDays int, variant string) *models.ForecastResult
	ForecastAdvancedEnsemble(ctx context.Context, series models.SalesSeries, horizonDays int, forecasts []models.ForecastResult) *models.ForecastResult
}

// SeasonalAnalyzer derives calendar adjustment factors.
type SeasonalAnalyzer interface {
	AdjustmentFactors(series models.SalesSeries, petType, category string) models.SeasonalAdjustment
}

// AnomalyDetector flags irregular days in the sales history.
type AnomalyDetector interface {
	Detect(series models.SalesSeries) models.AnomalyReport
}
