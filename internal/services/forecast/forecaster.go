package forecast

import (
	"context"
	"math"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

// Short method identifiers accepted by Forecast. The canonical model names
// from the models package are accepted too; where the two vocabularies
// collide ("ensemble", "autoregressive") only the models constant exists.
const (
	MethodAuto          = "auto"
	MethodDecomposition = "decomposition"
	MethodSmoothing     = "smoothing"
	MethodLinear        = "linear"
)

// Statistical ensemble weights, renormalized over the members that succeed.
var ensembleWeights = map[string]float64{
	models.ModelDecomposition: 0.40,
	models.ModelSmoothing:     0.35,
	models.ModelLinear:        0.25,
}

// Forecaster is the statistical forecasting layer. The capability set is
// resolved once at construction; an absent family makes the cascade skip
// straight to the next simpler method.
type Forecaster struct {
	caps domsvc.Capabilities
	l    *applogger.Logger
}

type Option func(*Forecaster)

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(f *Forecaster) { f.l = l }
}

func New(caps domsvc.Capabilities, opts ...Option) *Forecaster {
	f := &Forecaster{caps: caps}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forecast always returns a usable result: every concrete method silently
// cascades to the next simpler one on unavailability or fit failure, down
// to the naive average which cannot fail.
func (f *Forecaster) Forecast(ctx context.Context, series models.SalesSeries, horizonDays int, method string) models.ForecastResult {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	units := series.Units()

	if method == "" || method == MethodAuto {
		method = f.autoSelect(len(units))
	}

	out := f.run(method, units, horizonDays)
	for !out.ok {
		if f.l != nil {
			f.l.Debug("forecast cascade",
				applogger.String("method", method),
				applogger.String("reason", out.reason))
		}
		method = nextSimpler(method)
		out = f.run(method, units, horizonDays)
	}

	res := out.result
	res.Accuracy = accuracyScore(res.Model, units)
	return res
}

// autoSelect picks the richest method the data volume and capability set
// allow.
func (f *Forecaster) autoSelect(n int) string {
	switch {
	case n >= minDaysDecomposition && f.caps.Decomposition:
		return MethodDecomposition
	case n >= minDaysSmoothing && f.caps.Smoothing:
		return MethodSmoothing
	case n >= minDaysLinear:
		return MethodLinear
	default:
		return models.ModelNaive
	}
}

func (f *Forecaster) run(method string, units []float64, horizon int) outcome {
	switch method {
	case models.ModelEnsemble:
		return f.ensemble(units, horizon)
	case MethodDecomposition, models.ModelDecomposition:
		if !f.caps.Decomposition {
			return unavailable()
		}
		return decompositionForecast(units, horizon)
	case models.ModelAutoregressive:
		// Same model family as smoothing: both need the stats toolkit.
		if !f.caps.Smoothing {
			return unavailable()
		}
		return autoregressiveForecast(units, horizon)
	case MethodSmoothing, models.ModelSmoothing:
		if !f.caps.Smoothing {
			return unavailable()
		}
		return smoothingForecast(units, horizon)
	case MethodLinear, models.ModelLinear:
		return linearForecast(units, horizon)
	default:
		return naiveForecast(units, horizon)
	}
}

func nextSimpler(method string) string {
	switch method {
	case models.ModelEnsemble:
		return MethodDecomposition
	case MethodDecomposition, models.ModelDecomposition, models.ModelAutoregressive:
		return MethodSmoothing
	case MethodSmoothing, models.ModelSmoothing:
		return MethodLinear
	case MethodLinear, models.ModelLinear:
		return models.ModelNaive
	default:
		return models.ModelNaive
	}
}

// ensemble combines decomposition, smoothing and linear forecasts with
// fixed weights over whichever members succeed.
func (f *Forecaster) ensemble(units []float64, horizon int) outcome {
	type member struct {
		res    models.ForecastResult
		weight float64
	}
	var members []member

	if f.caps.Decomposition {
		if out := decompositionForecast(units, horizon); out.ok {
			members = append(members, member{out.result, ensembleWeights[models.ModelDecomposition]})
		}
	}
	if f.caps.Smoothing {
		if out := smoothingForecast(units, horizon); out.ok {
			members = append(members, member{out.result, ensembleWeights[models.ModelSmoothing]})
		}
	}
	if out := linearForecast(units, horizon); out.ok {
		members = append(members, member{out.result, ensembleWeights[models.ModelLinear]})
	}
	if len(members) == 0 {
		return fitFailed("no ensemble members succeeded")
	}

	totalWeight := 0.0
	for _, m := range members {
		totalWeight += m.weight
	}

	preds := make([]float64, horizon)
	for _, m := range members {
		w := m.weight / totalWeight
		for i, p := range m.res.Predictions {
			preds[i] += w * p
		}
	}
	clampNonNegative(preds)

	var lower, upper float64
	if len(members) >= 2 {
		// Spread across member predictions estimates the band.
		for i := 0; i < horizon; i++ {
			day := make([]float64, len(members))
			for j, m := range members {
				day[j] = m.res.Predictions[i]
			}
			spread := stdDev(day)
			lo := preds[i] - 1.96*spread
			if lo < 0 {
				lo = 0
			}
			lower += lo
			upper += preds[i] + 1.96*spread
		}
	} else {
		sd := stdDev(members[0].res.Predictions)
		lower, upper = boundsFromResidualStd(preds, 0.3*sd)
	}

	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.res.Model
	}

	return succeeded(models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: sum(preds) / float64(horizon),
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        models.ModelEnsemble,
		Details:      map[string]any{"members": names},
	})
}

// accuracyScore is the advisory accuracy heuristic: a base score per model
// adjusted for data length and series variability, clamped to [40,95].
func accuracyScore(model string, units []float64) float64 {
	base := map[string]float64{
		models.ModelDecomposition:    85,
		models.ModelSmoothing:        80,
		models.ModelAutoregressive:   75,
		models.ModelLinear:           70,
		models.ModelNaive:            50,
		models.ModelEnsemble:         82,
		models.ModelTreeA:            88,
		models.ModelTreeB:            87,
		models.ModelAdvancedEnsemble: 90,
	}
	score, ok := base[model]
	if !ok {
		score = 50
	}

	n := len(units)
	if n > 60 {
		score += 5
	}
	if n > 90 {
		score += 3
	}

	m := mean(units)
	if m > 0 {
		cv := stdDev(units) / m
		if cv < 0.5 {
			score += 5
		} else if cv > 1.5 {
			score -= 10
		}
	}

	return math.Min(95, math.Max(40, score))
}

// ClassifyTrend compares first-half vs second-half means with a +/-10%
// relative threshold.
func (f *Forecaster) ClassifyTrend(series models.SalesSeries) string {
	units := series.Units()
	n := len(units)
	if n < 4 {
		return models.TrendInsufficient
	}
	first := mean(units[:n/2])
	second := mean(units[n/2:])
	if first == 0 {
		if second > 0 {
			return models.TrendIncreasing
		}
		return models.TrendStable
	}
	change := (second - first) / first * 100
	switch {
	case change > 10:
		return models.TrendIncreasing
	case change < -10:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// HasWeeklySeasonality checks lag-7 autocorrelation on series of at least
// 14 days.
func (f *Forecaster) HasWeeklySeasonality(series models.SalesSeries) bool {
	units := series.Units()
	if len(units) < 14 {
		return false
	}
	return autocorrelation(units, 7) > 0.3
}
