package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
)

func seriesOf(units ...int) models.SalesSeries {
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.SalesSeries, 0, len(units))
	for i, u := range units {
		s = append(s, models.SalesPoint{Date: start.AddDate(0, 0, i), UnitsSold: u})
	}
	return s
}

func repeating(days int, pattern ...int) models.SalesSeries {
	units := make([]int, days)
	for i := range units {
		units[i] = pattern[i%len(pattern)]
	}
	return seriesOf(units...)
}

func checkInvariants(t *testing.T, res models.ForecastResult, horizon int) {
	t.Helper()
	if len(res.Predictions) != horizon {
		t.Fatalf("predictions len = %d, want %d", len(res.Predictions), horizon)
	}
	for i, p := range res.Predictions {
		if p < 0 {
			t.Errorf("prediction[%d] = %v, want >= 0", i, p)
		}
	}
	if res.LowerBound < 0 {
		t.Errorf("lower bound = %v, want >= 0", res.LowerBound)
	}
	if res.LowerBound > res.TotalDemand+1e-9 || res.TotalDemand > res.UpperBound+1e-9 {
		t.Errorf("bound ordering violated: %v <= %v <= %v",
			res.LowerBound, res.TotalDemand, res.UpperBound)
	}
}

func TestAutoSelectByDataVolume(t *testing.T) {
	f := New(domsvc.AllCapabilities())

	cases := []struct {
		days int
		want string
	}{
		{5, models.ModelNaive},
		{7, MethodLinear},
		{14, MethodSmoothing},
		{40, MethodDecomposition},
	}
	for _, c := range cases {
		if got := f.autoSelect(c.days); got != c.want {
			t.Errorf("autoSelect(%d) = %q, want %q", c.days, got, c.want)
		}
	}
}

func TestAutoSelectRespectsCapabilities(t *testing.T) {
	f := New(domsvc.Capabilities{}) // everything off
	if got := f.autoSelect(60); got != MethodLinear {
		t.Errorf("autoSelect(60) without model families = %q, want linear", got)
	}
}

func TestForecastShortSeriesNeverPicksRichModel(t *testing.T) {
	f := New(domsvc.AllCapabilities())
	res := f.Forecast(context.Background(), seriesOf(1, 2, 1, 3, 2), 14, MethodAuto)
	if res.Model != models.ModelNaive {
		t.Errorf("model = %q, want %q for 5-day series", res.Model, models.ModelNaive)
	}
	checkInvariants(t, res, 14)
}

func TestForecastInvariantsAcrossMethods(t *testing.T) {
	f := New(domsvc.AllCapabilities())
	series := repeating(45, 3, 5, 2, 7, 4, 9, 6)

	methods := []string{
		MethodAuto, MethodDecomposition, MethodSmoothing, MethodLinear,
		models.ModelAutoregressive, models.ModelEnsemble,
	}
	for _, method := range methods {
		res := f.Forecast(context.Background(), series, 30, method)
		checkInvariants(t, res, 30)
		if res.Accuracy < 40 || res.Accuracy > 95 {
			t.Errorf("%s accuracy = %v, out of [40,95]", method, res.Accuracy)
		}
	}
}

func TestSmoothingCascadesOnZeroVariance(t *testing.T) {
	f := New(domsvc.AllCapabilities())
	// Constant series: smoothing refuses the fit, cascade ends at a valid
	// simpler model rather than an error.
	res := f.Forecast(context.Background(), repeating(20, 4), 10, MethodSmoothing)
	checkInvariants(t, res, 10)
	if res.Model == models.ModelSmoothing {
		t.Errorf("zero-variance series should not fit smoothing, got %q", res.Model)
	}
	if math.Abs(res.DailyAverage-4) > 0.5 {
		t.Errorf("daily average = %v, want ~4", res.DailyAverage)
	}
}

func TestForecastDeterministic(t *testing.T) {
	f := New(domsvc.AllCapabilities())
	series := repeating(60, 2, 6, 3, 8, 5, 4, 7)

	a := f.Forecast(context.Background(), series, 30, MethodAuto)
	b := f.Forecast(context.Background(), series, 30, MethodAuto)
	if a.TotalDemand != b.TotalDemand || a.Model != b.Model {
		t.Errorf("forecast not deterministic: %v/%q vs %v/%q",
			a.TotalDemand, a.Model, b.TotalDemand, b.Model)
	}
	for i := range a.Predictions {
		if a.Predictions[i] != b.Predictions[i] {
			t.Fatalf("prediction[%d] differs across identical runs", i)
		}
	}
}

func TestAutoregressiveMethod(t *testing.T) {
	f := New(domsvc.AllCapabilities())
	series := repeating(60, 2, 6, 3, 8, 5, 4, 7)

	res := f.Forecast(context.Background(), series, 30, models.ModelAutoregressive)
	if res.Model != models.ModelAutoregressive {
		t.Fatalf("model = %q, want %q", res.Model, models.ModelAutoregressive)
	}
	checkInvariants(t, res, 30)

	// Below the 14-day minimum the method cascades instead of erroring.
	short := f.Forecast(context.Background(), seriesOf(1, 3, 2, 4, 2, 5, 3), 14, models.ModelAutoregressive)
	if short.Model == models.ModelAutoregressive {
		t.Errorf("7-day series must cascade, got %q", short.Model)
	}
	checkInvariants(t, short, 14)
}

func TestAutoregressiveCascadesWithoutCapability(t *testing.T) {
	f := New(domsvc.Capabilities{}) // stats families off
	res := f.Forecast(context.Background(), repeating(60, 2, 6, 3, 8, 5, 4, 7), 30, models.ModelAutoregressive)
	if res.Model != models.ModelLinear {
		t.Errorf("model = %q, want linear once the stats family is off", res.Model)
	}
}

func TestClassifyTrend(t *testing.T) {
	f := New(domsvc.AllCapabilities())

	if got := f.ClassifyTrend(seriesOf(1, 2)); got != models.TrendInsufficient {
		t.Errorf("2 points = %q, want insufficient_data", got)
	}
	if got := f.ClassifyTrend(repeating(14, 2, 2, 2, 2, 2, 2, 2, 8, 8, 8, 8, 8, 8, 8)); got != models.TrendIncreasing {
		t.Errorf("rising halves = %q, want increasing", got)
	}
	if got := f.ClassifyTrend(repeating(14, 8, 8, 8, 8, 8, 8, 8, 2, 2, 2, 2, 2, 2, 2)); got != models.TrendDecreasing {
		t.Errorf("falling halves = %q, want decreasing", got)
	}
	if got := f.ClassifyTrend(repeating(14, 5)); got != models.TrendStable {
		t.Errorf("flat halves = %q, want stable", got)
	}
}

func TestHasWeeklySeasonality(t *testing.T) {
	f := New(domsvc.AllCapabilities())

	// Strong weekly cycle: spike every 7th day.
	spiky := repeating(28, 20, 1, 1, 1, 1, 1, 1)
	if !f.HasWeeklySeasonality(spiky) {
		t.Error("weekly spike train should register seasonality")
	}
	if f.HasWeeklySeasonality(spiky[:10]) {
		t.Error("under 14 days must never report seasonality")
	}
}

func TestAccuracyScoreClamped(t *testing.T) {
	// High-variance short series with the weakest model stays >= 40.
	lowUnits := []float64{0, 30, 0, 0, 28, 0, 0}
	if s := accuracyScore(models.ModelNaive, lowUnits); s < 40 || s > 95 {
		t.Errorf("accuracy %v outside [40,95]", s)
	}
	// Long low-variance series with the strongest model stays <= 95.
	highUnits := make([]float64, 120)
	for i := range highUnits {
		highUnits[i] = 10
	}
	if s := accuracyScore(models.ModelAdvancedEnsemble, highUnits); s != 95 {
		t.Errorf("accuracy = %v, want clamp at 95", s)
	}
}
