package models

import "time"

// Forecasting method identifiers.
const (
	ModelNaive            = "simple_average"
	ModelLinear           = "linear_trend"
	ModelSmoothing        = "exponential_smoothing"
	ModelAutoregressive   = "autoregressive"
	ModelDecomposition    = "seasonal_decomposition"
	ModelEnsemble         = "ensemble"
	ModelTreeA            = "gbt_a"
	ModelTreeB            = "gbt_b"
	ModelAdvancedEnsemble = "advanced_ensemble"
	ModelCategoryBaseline = "category_baseline"
)

// ForecastResult is the common contract returned by every forecasting
// method. All predictions and the lower bound are >= 0, and
// LowerBound <= TotalDemand <= UpperBound.
type ForecastResult struct {
	Predictions  []float64 // one value per horizon day
	TotalDemand  float64
	DailyAverage float64
	LowerBound   float64 // 95% lower, summed over horizon
	UpperBound   float64 // 95% upper, summed over horizon
	Model        string
	Accuracy     float64 // advisory score in [0,100]
	Details      map[string]any
}

// Velocity trend labels.
const (
	TrendIncreasing   = "increasing"
	TrendDecreasing   = "decreasing"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
	TrendNoData       = "no_data"
)

// Velocity provenance tags.
const (
	SourceActualSales = "actual_sales"
	SourceCategoryAI  = "category_ai"
	SourceBaseline    = "baseline"
)

// VelocityMetrics summarizes recent sales speed over trailing windows.
type VelocityMetrics struct {
	DailyAvg7    float64
	DailyAvg30   float64
	DailyAvg90   float64
	WeeklyTotal  int
	MonthlyTotal int
	Trend        string
	TrendPct     float64
	Source       string // actual_sales | category_ai | baseline
}

// EventImpact describes an active or upcoming calendar event.
type EventImpact struct {
	Name           string
	Multiplier     float64
	Active         bool
	DaysUntil      int
	Recommendation string
}

// WeeklyPattern classifies weekday vs weekend demand shape.
type WeeklyPattern struct {
	Detected   bool
	Type       string // weekend_heavy | weekday_heavy | uniform
	PeakDay    string
	TroughDay  string
	WeekendAvg float64
	WeekdayAvg float64
}

// MonthlyPattern reports which part of the month sells hardest.
type MonthlyPattern struct {
	Detected   bool
	PeakPeriod string // start | mid | end
	StartAvg   float64
	MidAvg     float64
	EndAvg     float64
}

// SeasonalAdjustment bundles the multiplicative calendar adjustments for a
// product. CombinedFactor = SeasonalFactor * event multiplier.
type SeasonalAdjustment struct {
	Season         string
	SeasonalFactor float64
	Event          *EventImpact
	Weekly         *WeeklyPattern
	Monthly        *MonthlyPattern
	CombinedFactor float64
}

// Urgency is the ordinal restock urgency tier.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
	UrgencyNone     Urgency = "none"
)

// Score maps the tier to its fixed ordinal urgency score.
func (u Urgency) Score() int {
	switch u {
	case UrgencyCritical:
		return 100
	case UrgencyHigh:
		return 80
	case UrgencyMedium:
		return 50
	case UrgencyLow:
		return 25
	case UrgencyNone:
		return 10
	}
	return 0
}

// Priority maps the tier to a 1-based ordering (1 = most urgent).
func (u Urgency) Priority() int {
	switch u {
	case UrgencyCritical:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 3
	case UrgencyLow:
		return 4
	}
	return 5
}

// MoreSevere returns the more urgent of the two tiers.
func (u Urgency) MoreSevere(other Urgency) Urgency {
	if other.Score() > u.Score() {
		return other
	}
	return u
}

// StockoutPrediction estimates when available stock runs out.
// DaysRemaining is nil when daily demand is zero (never runs out).
type StockoutPrediction struct {
	DaysRemaining *float64
	StockoutDate  *time.Time
	Urgency       Urgency
	UrgencyScore  int
}

// RestockRecommendation is the sized, bounded restock order suggestion.
type RestockRecommendation struct {
	SuggestedQuantity int
	Urgency           Urgency
	Priority          int
	SafetyStock       float64
	LeadTimeDemand    float64
	IdealStock        float64
	ReorderPoint      float64
	Action            string
	ShelfLifeWarning  string // non-empty when the perishability cap bound
}

// AnomalyPoint is one flagged day in the sales history.
type AnomalyPoint struct {
	Date   time.Time
	Units  float64
	ZScore float64
}

// AnomalyReport is the outcome of outlier detection over the series.
type AnomalyReport struct {
	Detected bool
	Method   string // z_score | ensemble | insufficient_data
	Points   []AnomalyPoint
	Count    int
}

// Insight is one structured advisory line for the ops workflow.
type Insight struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// AnalysisResult is the full per-product analysis contract. Success is
// false only for "Product not found" or an unrecoverable repository
// failure; every other stage degrades to a conservative default.
type AnalysisResult struct {
	Success          bool
	Error            string
	ProductID        string
	VariantID        string
	ProductName      string
	Category         string
	StoreID          string
	CurrentStock     int
	ReservedStock    int
	AvailableStock   int
	Velocity         VelocityMetrics
	Forecast         ForecastResult
	Stockout         StockoutPrediction
	Restock          RestockRecommendation
	Seasonal         SeasonalAdjustment
	Anomalies        AnomalyReport
	Insights         []Insight
	PredictionSource string
	Model            string
	Confidence       float64
	DataPoints       int
	AnalyzedAt       time.Time
}

// BatchAnalysis aggregates independent per-product analyses.
type BatchAnalysis struct {
	Results          []*AnalysisResult
	CriticalCount    int
	HighCount        int
	AnalyzedProducts int
}

// CategoryAverage is the cold-start estimate derived from similar products.
type CategoryAverage struct {
	DailyAveragePerProduct float64
	SampleSize             int
}
