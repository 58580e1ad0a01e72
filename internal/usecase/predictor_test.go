package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
	"StockPulse/internal/services/anomaly"
	"StockPulse/internal/services/forecast"
	"StockPulse/internal/services/seasonal"

	"github.com/shopspring/decimal"
)

// testClock is winter with no calendar event in range, so the combined
// seasonal factor is exactly 1.0 and forecast numbers stay unscaled.
var testClock = time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	snapshots   map[string]*models.ProductSnapshot
	series      map[string]models.SalesSeries
	categoryAvg *models.CategoryAverage
	active      []*models.ProductSnapshot
	snapshotErr error
	seriesErr   error
}

func (f *fakeRepo) GetSalesSeries(_ context.Context, productID, _ string, days int) (models.SalesSeries, error) {
	if f.seriesErr != nil {
		return nil, f.seriesErr
	}
	if s, ok := f.series[productID]; ok {
		return s, nil
	}
	// gap-free zero-filled window, like the real adapter
	end := models.Midnight(testClock)
	start := end.AddDate(0, 0, -(days - 1))
	return models.BuildDailySeries(nil, start, end), nil
}

func (f *fakeRepo) GetProductSnapshot(_ context.Context, productID, _ string) (*models.ProductSnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshots[productID], nil
}

func (f *fakeRepo) GetCategoryAverageSales(_ context.Context, _, _ string, _ int) (*models.CategoryAverage, error) {
	return f.categoryAvg, nil
}

func (f *fakeRepo) ListActiveProducts(_ context.Context, _ string, limit int) ([]*models.ProductSnapshot, error) {
	if len(f.active) > limit {
		return f.active[:limit], nil
	}
	return f.active, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordMessageSent(string, string) {}

func (noopMetrics) RecordError(string) {}

func (noopMetrics) RecordUrgencyScore(string, float64) {}

func (noopMetrics) RecordLatency(string, float64) {}

type failingSink struct{ calls int }

func (s *failingSink) PersistAnalysis(context.Context, *models.AnalysisResult) error {
	s.calls++
	return errors.New("sink down")
}

func constantSeries(days, units int) models.SalesSeries {
	end := models.Midnight(testClock)
	start := end.AddDate(0, 0, -(days - 1))
	s := make(models.SalesSeries, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		s = append(s, models.SalesPoint{Date: d, UnitsSold: units})
	}
	return s
}

func newTestPredictor(repo *fakeRepo, opts ...PredictorOption) *InventoryPredictor {
	caps := domsvc.AllCapabilities()
	clock := func() time.Time { return testClock }
	base := []PredictorOption{WithPredictorClock(clock)}
	return NewInventoryPredictor(
		repo,
		forecast.New(caps),
		forecast.NewAdvanced(caps),
		seasonal.New(seasonal.WithClock(clock)),
		anomaly.New(caps),
		noopMetrics{},
		append(base, opts...)...,
	)
}

func TestAnalyzeProductMissing(t *testing.T) {
	p := newTestPredictor(&fakeRepo{snapshots: map[string]*models.ProductSnapshot{}})
	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "nonexistent"})
	if res.Success {
		t.Fatal("missing product must not succeed")
	}
	if res.Error != ErrProductNotFound {
		t.Errorf("error = %q, want %q", res.Error, ErrProductNotFound)
	}
}

func TestSnapshotFetchErrorCarriesCause(t *testing.T) {
	repo := &fakeRepo{snapshotErr: errors.New("connection refused")}
	p := newTestPredictor(repo)

	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "p1"})
	if res.Success {
		t.Fatal("snapshot I/O error must fail the analysis")
	}
	if res.Error == ErrProductNotFound {
		t.Error("I/O failure must not masquerade as a missing product")
	}
	if !strings.Contains(res.Error, "connection refused") {
		t.Errorf("error = %q, want the underlying cause", res.Error)
	}
}

func TestSeriesFetchFailureFailsAnalysis(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"p1": {ProductID: "p1", Category: "food", CurrentStock: 40},
		},
		seriesErr: errors.New("storage unreachable"),
	}
	p := newTestPredictor(repo)

	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "p1"})
	if res.Success {
		t.Fatal("sales history outage must not degrade to a cold-start analysis")
	}
	if !strings.Contains(res.Error, "storage unreachable") {
		t.Errorf("error = %q, want the underlying cause", res.Error)
	}
}

func TestAnalyzeProductEndToEnd(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"p1": {ProductID: "p1", Name: "Dog Chow", Category: "food", PetTypes: []string{"husky"}, CurrentStock: 10},
		},
		series: map[string]models.SalesSeries{"p1": constantSeries(14, 2)},
	}
	p := newTestPredictor(repo)

	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "p1", LeadTimeDays: 7, HorizonDays: 30})
	if !res.Success {
		t.Fatalf("analysis failed: %s", res.Error)
	}
	if res.Velocity.DailyAvg30 != 2 {
		t.Errorf("daily demand = %v, want 2", res.Velocity.DailyAvg30)
	}
	if res.Stockout.DaysRemaining == nil || *res.Stockout.DaysRemaining != 5 {
		t.Fatalf("days remaining = %v, want 5", res.Stockout.DaysRemaining)
	}
	if res.Stockout.Urgency != models.UrgencyHigh {
		t.Errorf("urgency = %q, want high", res.Stockout.Urgency)
	}
	if res.Restock.SafetyStock != 14 || res.Restock.LeadTimeDemand != 14 {
		t.Errorf("safety/lead = %v/%v, want 14/14", res.Restock.SafetyStock, res.Restock.LeadTimeDemand)
	}
	if math.Abs(res.Forecast.TotalDemand-60) > 3 {
		t.Errorf("forecast total = %v, want ~60", res.Forecast.TotalDemand)
	}
	if math.Abs(res.Restock.IdealStock-88) > 3 {
		t.Errorf("ideal stock = %v, want ~88", res.Restock.IdealStock)
	}
	if got := res.Restock.SuggestedQuantity; got < 75 || got > 81 {
		t.Errorf("suggested quantity = %d, want ~78", got)
	}
	if res.PredictionSource != models.SourceActualSales {
		t.Errorf("source = %q, want actual_sales", res.PredictionSource)
	}
}

func TestDualThresholdUrgency(t *testing.T) {
	// ~80 days of supply, but only 8 units on the shelf: the absolute-stock
	// rule must still force critical.
	p := newTestPredictor(&fakeRepo{})
	pred := p.predictStockout(8, 0.1)
	if pred.Urgency != models.UrgencyCritical {
		t.Errorf("urgency = %q, want critical via absolute-stock rule", pred.Urgency)
	}
	if pred.UrgencyScore != 100 {
		t.Errorf("score = %d, want 100", pred.UrgencyScore)
	}
	if pred.DaysRemaining == nil || *pred.DaysRemaining < 79 {
		t.Errorf("days remaining = %v, want ~80", pred.DaysRemaining)
	}
}

func TestShelfLifeCap(t *testing.T) {
	p := newTestPredictor(&fakeRepo{})
	snapshot := &models.ProductSnapshot{
		ProductID:    "fresh",
		IsPerishable: true,
		ShelfLife:    "30 days",
		CurrentStock: 0,
	}
	stockout := p.predictStockout(0, 2)
	// Unconstrained quantity would be 100+; the cap is 30*2*0.8 = 48.
	fc := models.ForecastResult{TotalDemand: 100}
	rec := p.sizeRestock(snapshot, stockout, fc, 2, 7)
	if rec.SuggestedQuantity != 48 {
		t.Errorf("suggested = %d, want 48", rec.SuggestedQuantity)
	}
	if rec.ShelfLifeWarning == "" {
		t.Error("binding cap must attach a warning")
	}
}

func TestColdStartUsesCategoryAverage(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"new": {ProductID: "new", Name: "New Treats", Category: "food", CurrentStock: 5},
		},
		categoryAvg: &models.CategoryAverage{DailyAveragePerProduct: 3, SampleSize: 12},
	}
	p := newTestPredictor(repo)

	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "new"})
	if !res.Success {
		t.Fatalf("cold start failed: %s", res.Error)
	}
	if res.PredictionSource != models.SourceCategoryAI {
		t.Errorf("source = %q, want category_ai", res.PredictionSource)
	}
	// 3 * 0.7 discount = 2.1 units/day
	if math.Abs(res.Velocity.DailyAvg30-2.1) > 1e-9 {
		t.Errorf("cold-start daily = %v, want 2.1", res.Velocity.DailyAvg30)
	}
	if res.Restock.SuggestedQuantity <= 0 {
		t.Error("cold start must still suggest a positive quantity")
	}
	if res.Confidence != coldStartAccuracy {
		t.Errorf("confidence = %v, want %v", res.Confidence, float64(coldStartAccuracy))
	}
}

func TestColdStartFloorWithoutCategoryData(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"new": {ProductID: "new", Category: "misc", CurrentStock: 100},
		},
	}
	p := newTestPredictor(repo)
	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "new"})
	if res.Velocity.DailyAvg30 != coldStartFloor {
		t.Errorf("daily = %v, want the %v floor", res.Velocity.DailyAvg30, coldStartFloor)
	}
	if res.PredictionSource != models.SourceBaseline {
		t.Errorf("source = %q, want baseline", res.PredictionSource)
	}
}

func TestAnalyzeProductIdempotent(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"p1": {ProductID: "p1", Category: "food", CurrentStock: 40},
		},
		series: map[string]models.SalesSeries{"p1": constantSeries(45, 3)},
	}
	p := newTestPredictor(repo)
	params := AnalysisParams{ProductID: "p1", HorizonDays: 30}

	a := p.AnalyzeProduct(context.Background(), params)
	b := p.AnalyzeProduct(context.Background(), params)
	if a.Forecast.TotalDemand != b.Forecast.TotalDemand ||
		a.Restock.SuggestedQuantity != b.Restock.SuggestedQuantity ||
		a.Model != b.Model {
		t.Errorf("analysis not idempotent: %+v vs %+v", a.Forecast, b.Forecast)
	}
}

func TestPersistFailureDoesNotAffectResult(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"p1": {ProductID: "p1", Category: "food", CurrentStock: 40},
		},
		series: map[string]models.SalesSeries{"p1": constantSeries(30, 2)},
	}
	sink := &failingSink{}
	p := newTestPredictor(repo, WithSink(sink))

	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "p1", Persist: true})
	if !res.Success {
		t.Fatal("sink failure must not fail the analysis")
	}
	if sink.calls != 1 {
		t.Errorf("sink calls = %d, want 1", sink.calls)
	}
}

type countingAdvanced struct {
	inner domsvc.AdvancedForecaster
	fits  map[string]int
}

func (c *countingAdvanced) ForecastTreeModel(ctx context.Context, series models.SalesSeries, horizonDays int, variant string) *models.ForecastResult {
	c.fits[variant]++
	return c.inner.ForecastTreeModel(ctx, series, horizonDays, variant)
}

func (c *countingAdvanced) ForecastAdvancedEnsemble(ctx context.Context, series models.SalesSeries, horizonDays int, forecasts []models.ForecastResult) *models.ForecastResult {
	return c.inner.ForecastAdvancedEnsemble(ctx, series, horizonDays, forecasts)
}

func TestTreeVariantsFitOncePerAnalysis(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"p1": {ProductID: "p1", Category: "food", CurrentStock: 40},
		},
		series: map[string]models.SalesSeries{"p1": constantSeries(45, 3)},
	}
	caps := domsvc.AllCapabilities()
	clock := func() time.Time { return testClock }
	counting := &countingAdvanced{inner: forecast.NewAdvanced(caps), fits: map[string]int{}}
	p := NewInventoryPredictor(
		repo,
		forecast.New(caps),
		counting,
		seasonal.New(seasonal.WithClock(clock)),
		anomaly.New(caps),
		noopMetrics{},
		WithPredictorClock(clock),
	)

	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "p1", HorizonDays: 30})
	if !res.Success {
		t.Fatalf("analysis failed: %s", res.Error)
	}
	for _, variant := range []string{models.ModelTreeA, models.ModelTreeB} {
		if got := counting.fits[variant]; got != 1 {
			t.Errorf("%s fitted %d times, want exactly 1", variant, got)
		}
	}
}

func TestInsightsOrderingAndConfidenceLine(t *testing.T) {
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{
			"p1": {ProductID: "p1", Category: "food", CurrentStock: 4},
		},
		series: map[string]models.SalesSeries{"p1": constantSeries(14, 2)},
	}
	p := newTestPredictor(repo)
	res := p.AnalyzeProduct(context.Background(), AnalysisParams{ProductID: "p1"})

	if len(res.Insights) == 0 {
		t.Fatal("expected insights")
	}
	if res.Insights[0].Type != "stockout_warning" {
		t.Errorf("first insight = %q, want stockout_warning for critical stock", res.Insights[0].Type)
	}
	hasConfidence := false
	for _, in := range res.Insights {
		if in.Type == "confidence" {
			hasConfidence = true
		}
	}
	if !hasConfidence {
		t.Error("confidence insight must always be present")
	}
}

func TestPriceImpactFactor(t *testing.T) {
	// 10% price increase with elasticity -1.5 suppresses demand by 15%.
	if f := priceImpactFactor(10); math.Abs(f-0.85) > 1e-9 {
		t.Errorf("factor(+10%%) = %v, want 0.85", f)
	}
	// Extreme cut clamps at 1.5.
	if f := priceImpactFactor(-80); f != 1.5 {
		t.Errorf("factor(-80%%) = %v, want clamp 1.5", f)
	}
}

func TestAnalyzeAllSortsAndCounts(t *testing.T) {
	healthy := &models.ProductSnapshot{ProductID: "healthy", Category: "food", CurrentStock: 500, IsActive: true}
	low := &models.ProductSnapshot{ProductID: "low", Category: "food", CurrentStock: 3, IsActive: true}
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{"healthy": healthy, "low": low},
		series: map[string]models.SalesSeries{
			"healthy": constantSeries(30, 1),
			"low":     constantSeries(30, 2),
		},
		active: []*models.ProductSnapshot{healthy, low},
	}
	p := newTestPredictor(repo, WithBatchWorkers(2))

	batch, err := p.AnalyzeAll(context.Background(), "", false)
	if err != nil {
		t.Fatalf("AnalyzeAll: %v", err)
	}
	if batch.AnalyzedProducts != 2 {
		t.Errorf("analyzed = %d, want 2", batch.AnalyzedProducts)
	}
	if batch.CriticalCount != 1 {
		t.Errorf("critical count = %d, want 1", batch.CriticalCount)
	}
	if batch.Results[0].ProductID != "low" {
		t.Errorf("results not sorted by urgency: first = %s", batch.Results[0].ProductID)
	}
}

func TestGetCriticalItemsFiltersTiers(t *testing.T) {
	healthy := &models.ProductSnapshot{ProductID: "healthy", Category: "food", CurrentStock: 500, IsActive: true}
	low := &models.ProductSnapshot{ProductID: "low", Category: "food", CurrentStock: 3, IsActive: true}
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{"healthy": healthy, "low": low},
		series: map[string]models.SalesSeries{
			"healthy": constantSeries(30, 1),
			"low":     constantSeries(30, 2),
		},
		active: []*models.ProductSnapshot{healthy, low},
	}
	p := newTestPredictor(repo)

	items, err := p.GetCriticalItems(context.Background(), "", 20)
	if err != nil {
		t.Fatalf("GetCriticalItems: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != "low" {
		t.Errorf("critical items = %v, want only the low-stock product", items)
	}
}

func TestRestockReportTotals(t *testing.T) {
	low := &models.ProductSnapshot{
		ProductID: "low", Name: "Cat Litter", Category: "litter",
		CurrentStock: 3, IsActive: true, Price: decimal.NewFromInt(10),
	}
	repo := &fakeRepo{
		snapshots: map[string]*models.ProductSnapshot{"low": low},
		series:    map[string]models.SalesSeries{"low": constantSeries(30, 2)},
		active:    []*models.ProductSnapshot{low},
	}
	p := newTestPredictor(repo)

	report, err := p.GetRestockReport(context.Background(), "")
	if err != nil {
		t.Fatalf("GetRestockReport: %v", err)
	}
	if report.TotalItems != 1 || report.TotalSuggestedUnits <= 0 {
		t.Fatalf("report totals wrong: %+v", report)
	}
	wantCost := decimal.NewFromInt(int64(report.TotalSuggestedUnits * 10))
	if !report.EstimatedCost.Equal(wantCost) {
		t.Errorf("estimated cost = %s, want %s", report.EstimatedCost, wantCost)
	}
	if len(report.Recommendations) == 0 {
		t.Error("report should carry recommendations")
	}
}
