package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	domsvc "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

const (
	// ErrProductNotFound is the user-facing hard-failure message.
	ErrProductNotFound = "Product not found"

	categoryVelocityDiscount = 0.7
	coldStartFloor           = 0.5 // units/day
	coldStartAccuracy        = 65
	perishableSafetyMargin   = 0.8
	priceElasticity          = -1.5
)

// InventoryPredictor orchestrates a full per-product analysis: velocity,
// forecast, seasonal adjustment, anomaly scan, stockout prediction, restock
// sizing and insights. Stateless between calls; long-lived model components
// are injected by the composition root.
type InventoryPredictor struct {
	repo       domrepo.Inventory
	sink       domrepo.AnalysisSink
	forecaster domsvc.DemandForecaster
	advanced   domsvc.AdvancedForecaster
	seasonal   domsvc.SeasonalAnalyzer
	anomaly    domsvc.AnomalyDetector
	metrics    domrepo.Metrics
	l          *applogger.Logger

	windowDays      int
	safetyStockDays int
	batchWorkers    int
	batchLimit      int
	analysisTimeout time.Duration
	priceImpact     bool
	now             func() time.Time
}

type PredictorOption func(*InventoryPredictor)

func WithWindowDays(n int) PredictorOption {
	return func(p *InventoryPredictor) {
		if n > 0 {
			p.windowDays = n
		}
	}
}

func WithSafetyStockDays(n int) PredictorOption {
	return func(p *InventoryPredictor) {
		if n > 0 {
			p.safetyStockDays = n
		}
	}
}

func WithBatchWorkers(n int) PredictorOption {
	return func(p *InventoryPredictor) {
		if n > 0 {
			p.batchWorkers = n
		}
	}
}

func WithBatchLimit(n int) PredictorOption {
	return func(p *InventoryPredictor) {
		if n > 0 {
			p.batchLimit = n
		}
	}
}

func WithAnalysisTimeout(d time.Duration) PredictorOption {
	return func(p *InventoryPredictor) {
		if d > 0 {
			p.analysisTimeout = d
		}
	}
}

func WithPriceImpact(enabled bool) PredictorOption {
	return func(p *InventoryPredictor) { p.priceImpact = enabled }
}

func WithSink(sink domrepo.AnalysisSink) PredictorOption {
	return func(p *InventoryPredictor) { p.sink = sink }
}

func WithPredictorLogger(l *applogger.Logger) PredictorOption {
	return func(p *InventoryPredictor) { p.l = l }
}

func WithPredictorClock(now func() time.Time) PredictorOption {
	return func(p *InventoryPredictor) { p.now = now }
}

func NewInventoryPredictor(
	repo domrepo.Inventory,
	forecaster domsvc.DemandForecaster,
	advanced domsvc.AdvancedForecaster,
	seasonal domsvc.SeasonalAnalyzer,
	anomaly domsvc.AnomalyDetector,
	metrics domrepo.Metrics,
	opts ...PredictorOption,
) *InventoryPredictor {
	p := &InventoryPredictor{
		repo:            repo,
		forecaster:      forecaster,
		advanced:        advanced,
		seasonal:        seasonal,
		anomaly:         anomaly,
		metrics:         metrics,
		windowDays:      90,
		safetyStockDays: 7,
		batchWorkers:    4,
		batchLimit:      500,
		analysisTimeout: 30 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AnalysisParams are the per-call knobs of AnalyzeProduct.
type AnalysisParams struct {
	ProductID    string
	VariantID    string
	LeadTimeDays int
	HorizonDays  int
	Persist      bool
}

func (p AnalysisParams) withDefaults() AnalysisParams {
	if p.LeadTimeDays <= 0 {
		p.LeadTimeDays = 7
	}
	if p.HorizonDays <= 0 {
		p.HorizonDays = 30
	}
	return p
}

// AnalyzeProduct runs the full analysis for one product. Only a missing
// product (or a repository failure on the snapshot fetch) produces a
// success=false result; every downstream stage degrades to a conservative
// default instead of failing the analysis.
func (p *InventoryPredictor) AnalyzeProduct(ctx context.Context, params AnalysisParams) *models.AnalysisResult {
	params = params.withDefaults()
	start := p.now()

	ctx, cancel := context.WithTimeout(ctx, p.analysisTimeout)
	defer cancel()

	snapshot, err := p.repo.GetProductSnapshot(ctx, params.ProductID, params.VariantID)
	if err != nil {
		p.metrics.RecordError("snapshot_fetch")
		if p.l != nil {
			p.l.Error("snapshot fetch failed",
				applogger.String("product", params.ProductID), applogger.Error(err))
		}
		return &models.AnalysisResult{
			Success:   false,
			Error:     fmt.Sprintf("product lookup failed: %v", err),
			ProductID: params.ProductID,
			VariantID: params.VariantID,
		}
	}
	if snapshot == nil {
		return &models.AnalysisResult{Success: false, Error: ErrProductNotFound, ProductID: params.ProductID}
	}

	series, err := p.repo.GetSalesSeries(ctx, params.ProductID, params.VariantID, p.windowDays)
	if err != nil {
		// A fetch failure is not the same as an empty history: the cold-start
		// path would silently misprice a product with real sales, so the
		// analysis fails instead.
		p.metrics.RecordError("series_fetch")
		if p.l != nil {
			p.l.Error("sales series fetch failed",
				applogger.String("product", params.ProductID), applogger.Error(err))
		}
		return &models.AnalysisResult{
			Success:   false,
			Error:     fmt.Sprintf("sales history unavailable: %v", err),
			ProductID: params.ProductID,
			VariantID: params.VariantID,
		}
	}

	velocity := p.computeVelocity(ctx, series, snapshot)

	forecast, source := p.selectForecast(ctx, series, velocity, params.HorizonDays)

	adjustment := p.seasonal.AdjustmentFactors(series, snapshot.PetType(), snapshot.Category)
	applyFactor(&forecast, adjustment.CombinedFactor)

	if p.priceImpact && snapshot.PriceChangePct != 0 {
		applyFactor(&forecast, priceImpactFactor(snapshot.PriceChangePct))
	}

	anomalies := p.anomaly.Detect(series)

	available := snapshot.AvailableStock()
	stockout := p.predictStockout(available, velocity.DailyAvg30)
	restock := p.sizeRestock(snapshot, stockout, forecast, velocity.DailyAvg30, params.LeadTimeDays)

	res := &models.AnalysisResult{
		Success:          true,
		ProductID:        params.ProductID,
		VariantID:        params.VariantID,
		ProductName:      snapshot.Name,
		Category:         snapshot.Category,
		StoreID:          snapshot.StoreID,
		CurrentStock:     snapshot.CurrentStock,
		ReservedStock:    snapshot.ReservedStock,
		AvailableStock:   available,
		Velocity:         velocity,
		Forecast:         forecast,
		Stockout:         stockout,
		Restock:          restock,
		Seasonal:         adjustment,
		Anomalies:        anomalies,
		PredictionSource: source,
		Model:            forecast.Model,
		Confidence:       forecast.Accuracy,
		DataPoints:       len(series),
		AnalyzedAt:       p.now(),
	}
	res.Insights = p.generateInsights(res)

	p.metrics.RecordLatency("analyze_product", p.now().Sub(start).Seconds())
	p.metrics.RecordUrgencyScore(params.ProductID, float64(stockout.UrgencyScore))

	if params.Persist && p.sink != nil {
		// Fire-and-forget: a sink failure never touches the computed result.
		if err := p.sink.PersistAnalysis(ctx, res); err != nil {
			p.metrics.RecordError("persist_analysis")
			if p.l != nil {
				p.l.Warn("persist analysis failed",
					applogger.String("product", params.ProductID), applogger.Error(err))
			}
		}
	}
	return res
}

// computeVelocity derives trailing averages and trend. A product with zero
// recorded sales falls back to a category-level estimate rather than zero,
// tagged with its provenance so consumers can discount confidence.
func (p *InventoryPredictor) computeVelocity(ctx context.Context, series models.SalesSeries, snapshot *models.ProductSnapshot) models.VelocityMetrics {
	n := len(series)
	if n > 0 && series.TotalUnits() > 0 {
		v := models.VelocityMetrics{
			DailyAvg7:    avgOver(series, 7),
			DailyAvg30:   avgOver(series, 30),
			DailyAvg90:   avgOver(series, 90),
			WeeklyTotal:  series.SumUnits(7),
			MonthlyTotal: series.SumUnits(30),
			Source:       models.SourceActualSales,
		}
		v.Trend, v.TrendPct = weekTrend(series)
		return v
	}

	// Cold start: a conservative per-product share of the category average.
	daily := 0.0
	source := models.SourceBaseline
	if avg, err := p.repo.GetCategoryAverageSales(ctx, snapshot.Category, snapshot.PetType(), 30); err == nil && avg != nil && avg.DailyAveragePerProduct > 0 {
		daily = avg.DailyAveragePerProduct * categoryVelocityDiscount
		source = models.SourceCategoryAI
	} else if err != nil {
		p.metrics.RecordError("category_average")
		if p.l != nil {
			p.l.Warn("category average lookup failed",
				applogger.String("category", snapshot.Category), applogger.Error(err))
		}
	}
	if daily < coldStartFloor {
		daily = coldStartFloor
		if source == models.SourceCategoryAI {
			// floor bound: category estimate too weak to trust on its own
			source = models.SourceBaseline
		}
	}

	return models.VelocityMetrics{
		DailyAvg7:  daily,
		DailyAvg30: daily,
		DailyAvg90: daily,
		Trend:      models.TrendNoData,
		Source:     source,
	}
}

func avgOver(series models.SalesSeries, days int) float64 {
	if len(series) < days {
		days = len(series)
	}
	if days == 0 {
		return 0
	}
	return float64(series.SumUnits(days)) / float64(days)
}

// weekTrend compares the last 7-day sum to the preceding 7-day sum with a
// +/-10% threshold.
func weekTrend(series models.SalesSeries) (string, float64) {
	if len(series) < 14 {
		return models.TrendInsufficient, 0
	}
	last := float64(series.SumUnits(7))
	prev := float64(series[len(series)-14:len(series)-7].SumUnits(7))
	if prev == 0 {
		if last > 0 {
			return models.TrendIncreasing, 100
		}
		return models.TrendStable, 0
	}
	pct := (last - prev) / prev * 100
	switch {
	case pct > 10:
		return models.TrendIncreasing, pct
	case pct < -10:
		return models.TrendDecreasing, pct
	default:
		return models.TrendStable, pct
	}
}

// selectForecast chooses the forecast stack by history. An empty history
// skips the models entirely: running them on an all-zero series produces
// degenerate output, so a flat rate from the cold-start velocity is used
// instead. Each tree variant is fitted at most once; the advanced ensemble
// blends the prefit results rather than retraining.
func (p *InventoryPredictor) selectForecast(ctx context.Context, series models.SalesSeries, velocity models.VelocityMetrics, horizon int) (models.ForecastResult, string) {
	if len(series) == 0 || series.TotalUnits() == 0 {
		return flatForecast(velocity.DailyAvg30, horizon), velocity.Source
	}

	base := p.forecaster.Forecast(ctx, series, horizon, models.ModelEnsemble)
	if p.advanced == nil {
		return base, models.SourceActualSales
	}

	members := []models.ForecastResult{base}
	if tree := p.advanced.ForecastTreeModel(ctx, series, horizon, models.ModelTreeA); tree != nil {
		members = append(members, *tree)
	}
	if tree := p.advanced.ForecastTreeModel(ctx, series, horizon, models.ModelTreeB); tree != nil {
		members = append(members, *tree)
	}
	if len(members) > 1 {
		if adv := p.advanced.ForecastAdvancedEnsemble(ctx, series, horizon, members); adv != nil {
			return *adv, models.SourceActualSales
		}
	}
	return base, models.SourceActualSales
}

// flatForecast synthesizes a constant-rate forecast for cold-start products.
func flatForecast(daily float64, horizon int) models.ForecastResult {
	if daily < 0 {
		daily = 0
	}
	preds := make([]float64, horizon)
	for i := range preds {
		preds[i] = daily
	}
	total := daily * float64(horizon)
	return models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  total,
		DailyAverage: daily,
		LowerBound:   total * 0.7,
		UpperBound:   total * 1.3,
		Model:        models.ModelCategoryBaseline,
		Accuracy:     coldStartAccuracy,
	}
}

// applyFactor scales a forecast multiplicatively; 1.0 is a no-op.
func applyFactor(f *models.ForecastResult, factor float64) {
	if factor == 1.0 || factor <= 0 {
		return
	}
	for i := range f.Predictions {
		f.Predictions[i] *= factor
	}
	f.TotalDemand *= factor
	f.DailyAverage *= factor
	f.LowerBound *= factor
	f.UpperBound *= factor
}

// priceImpactFactor is the optional elasticity heuristic: a price increase
// suppresses expected demand and a cut lifts it, clamped to [0.5, 1.5].
func priceImpactFactor(changePct float64) float64 {
	factor := 1 + priceElasticity*changePct/100
	return math.Min(1.5, math.Max(0.5, factor))
}

// predictStockout derives days-until-stockout and the urgency tier. Urgency
// takes the more severe of the days-remaining and absolute-stock checks: a
// slow mover can still be dangerously low in absolute terms.
func (p *InventoryPredictor) predictStockout(available int, dailyDemand float64) models.StockoutPrediction {
	pred := models.StockoutPrediction{Urgency: models.UrgencyNone}

	if dailyDemand > 0 {
		days := float64(available) / dailyDemand
		date := p.now().AddDate(0, 0, int(days))
		pred.DaysRemaining = &days
		pred.StockoutDate = &date
		switch {
		case days <= 3:
			pred.Urgency = models.UrgencyCritical
		case days <= 7:
			pred.Urgency = models.UrgencyHigh
		case days <= 14:
			pred.Urgency = models.UrgencyMedium
		case days <= 30:
			pred.Urgency = models.UrgencyLow
		}
	}

	pred.Urgency = pred.Urgency.MoreSevere(absoluteStockUrgency(available))
	pred.UrgencyScore = pred.Urgency.Score()
	return pred
}

func absoluteStockUrgency(available int) models.Urgency {
	switch {
	case available < 10:
		return models.UrgencyCritical
	case available < 20:
		return models.UrgencyHigh
	case available < 40:
		return models.UrgencyMedium
	}
	return models.UrgencyNone
}

var urgencyActions = map[models.Urgency]string{
	models.UrgencyCritical: "Order immediately - stockout imminent",
	models.UrgencyHigh:     "Order within 2-3 days",
	models.UrgencyMedium:   "Plan restock within a week",
	models.UrgencyLow:      "Monitor and restock as needed",
	models.UrgencyNone:     "Stock level healthy",
}

// sizeRestock computes the bounded order suggestion. Perishable products
// are capped so stock cannot outlive its shelf life (20% spoilage margin).
func (p *InventoryPredictor) sizeRestock(snapshot *models.ProductSnapshot, stockout models.StockoutPrediction, forecast models.ForecastResult, dailyDemand float64, leadTimeDays int) models.RestockRecommendation {
	safetyStock := dailyDemand * float64(p.safetyStockDays)
	leadTimeDemand := dailyDemand * float64(leadTimeDays)
	idealStock := forecast.TotalDemand + safetyStock + leadTimeDemand

	suggested := int(math.Round(idealStock - float64(snapshot.AvailableStock())))
	if suggested < 0 {
		suggested = 0
	}

	rec := models.RestockRecommendation{
		Urgency:        stockout.Urgency,
		Priority:       stockout.Urgency.Priority(),
		SafetyStock:    safetyStock,
		LeadTimeDemand: leadTimeDemand,
		IdealStock:     idealStock,
		ReorderPoint:   safetyStock + leadTimeDemand,
		Action:         urgencyActions[stockout.Urgency],
	}

	if snapshot.IsPerishable && dailyDemand > 0 {
		if shelfDays := snapshot.ShelfLifeDays(p.now()); shelfDays > 0 {
			maxSellable := int(float64(shelfDays) * dailyDemand * perishableSafetyMargin)
			if suggested > maxSellable {
				suggested = maxSellable
				rec.ShelfLifeWarning = fmt.Sprintf(
					"Order capped at %d units: stock beyond that would expire within the %d-day shelf life",
					maxSellable, shelfDays)
			}
		}
	}

	rec.SuggestedQuantity = suggested
	return rec
}

// generateInsights builds the ordered advisory list. Absent inputs simply
// omit their insight; generation never fails the analysis.
func (p *InventoryPredictor) generateInsights(res *models.AnalysisResult) []models.Insight {
	var out []models.Insight

	if res.Stockout.Urgency == models.UrgencyCritical || res.Stockout.Urgency == models.UrgencyHigh {
		msg := "Stock is critically low"
		if res.Stockout.DaysRemaining != nil {
			msg = fmt.Sprintf("Stock will run out in about %.0f days", *res.Stockout.DaysRemaining)
		}
		out = append(out, models.Insight{Type: "stockout_warning", Severity: string(res.Stockout.Urgency), Message: msg})
	}

	switch res.Velocity.Trend {
	case models.TrendIncreasing:
		out = append(out, models.Insight{
			Type: "trend", Severity: "info",
			Message: fmt.Sprintf("Sales are trending up %.0f%% week over week", res.Velocity.TrendPct),
		})
	case models.TrendDecreasing:
		out = append(out, models.Insight{
			Type: "trend", Severity: "info",
			Message: fmt.Sprintf("Sales are trending down %.0f%% week over week", -res.Velocity.TrendPct),
		})
	}

	if ev := res.Seasonal.Event; ev != nil {
		msg := fmt.Sprintf("%s is driving demand (x%.1f)", ev.Name, ev.Multiplier)
		if !ev.Active {
			msg = ev.Recommendation
		}
		out = append(out, models.Insight{Type: "event", Severity: "info", Message: msg})
	}

	out = append(out, models.Insight{
		Type: "confidence", Severity: "info",
		Message: fmt.Sprintf("Forecast by %s at %.0f%% confidence on %d days of data",
			res.Model, res.Confidence, res.DataPoints),
	})

	if res.Restock.Urgency == models.UrgencyCritical || res.Restock.Urgency == models.UrgencyHigh {
		out = append(out, models.Insight{
			Type: "restock_action", Severity: string(res.Restock.Urgency),
			Message: fmt.Sprintf("Restock recommended: order %d units", res.Restock.SuggestedQuantity),
		})
	}

	return out
}
