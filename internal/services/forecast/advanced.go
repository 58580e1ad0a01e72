package forecast

import (
	"context"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

// Tree variant identifiers.
const (
	VariantA = "gbt_a"
	VariantB = "gbt_b"
)

// Advanced-ensemble blend weights. Base (statistical) forecasts are
// weighted by their own advisory accuracy, capped at 0.35 each.
const (
	weightTreeA    = 0.35
	weightTreeB    = 0.30
	maxBaseWeight  = 0.35
	minHistoryDays = 14
	minCleanRows   = 7
)

var variantParams = map[string]gbrtParams{
	VariantA: {nTrees: 100, maxDepth: 4, rate: 0.1, minLeaf: 2},
	VariantB: {nTrees: 100, maxDepth: 5, rate: 0.05, minLeaf: 2},
}

// Advanced is the tree-ensemble forecasting layer. A nil result from either
// method means the layer cannot serve this series, which callers treat as
// a valid outcome, not an error.
type Advanced struct {
	caps domsvc.Capabilities
	l    *applogger.Logger
}

type AdvancedOption func(*Advanced)

func WithAdvancedLogger(l *applogger.Logger) AdvancedOption {
	return func(a *Advanced) { a.l = l }
}

func NewAdvanced(caps domsvc.Capabilities, opts ...AdvancedOption) *Advanced {
	a := &Advanced{caps: caps}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ForecastTreeModel trains one gradient-boosted variant and generates the
// horizon iteratively so lag features can reach into the model's own prior
// predictions.
func (a *Advanced) ForecastTreeModel(ctx context.Context, series models.SalesSeries, horizonDays int, variant string) *models.ForecastResult {
	if !a.caps.Trees || len(series) < minHistoryDays {
		return nil
	}
	params, ok := variantParams[variant]
	if !ok {
		return nil
	}

	X, y := buildTrainingRows(series)
	if len(X) < minCleanRows {
		if a.l != nil {
			a.l.Debug("tree model skipped",
				applogger.String("variant", variant),
				applogger.Int("clean_rows", len(X)))
		}
		return nil
	}

	model := trainGBRT(X, y, params)

	// In-sample residual spread for the confidence band.
	resid := make([]float64, len(y))
	for i := range X {
		resid[i] = y[i] - model.predict(X[i])
	}
	residStd := stdDev(resid)

	// Iterative horizon: the buffer starts as actual history and grows with
	// each predicted day, so multi-day-ahead lag features stay meaningful.
	units := series.Units()
	buffer := make([]float64, len(units), len(units)+horizonDays)
	copy(buffer, units)
	lastDate := series[len(series)-1].Date

	preds := make([]float64, horizonDays)
	x := make([]float64, len(featureNames))
	for h := 0; h < horizonDays; h++ {
		date := lastDate.AddDate(0, 0, h+1)
		for i := range x {
			x[i] = 0
		}
		calendarFeatures(date, x)
		lagFeatures(buffer, x)
		p := model.predict(x)
		if p < 0 {
			p = 0
		}
		preds[h] = p
		buffer = append(buffer, p)
	}

	lower, upper := boundsFromResidualStd(preds, residStd)
	modelName := models.ModelTreeA
	if variant == VariantB {
		modelName = models.ModelTreeB
	}

	return &models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: sum(preds) / float64(horizonDays),
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        modelName,
		Accuracy:     accuracyScore(modelName, units),
		Details: map[string]any{
			"features":  featureNames,
			"n_trees":   params.nTrees,
			"max_depth": params.maxDepth,
			"rate":      params.rate,
		},
	}
}

// ForecastAdvancedEnsemble blends caller-supplied member forecasts. Tree
// variants carry their fixed weights; every other member is weighted by its
// own advisory accuracy, capped at 0.35. The trees are expensive to fit, so
// the caller fits them once via ForecastTreeModel and passes the results in
// instead of this method retraining. Returns nil when no member is usable
// for the horizon.
func (a *Advanced) ForecastAdvancedEnsemble(ctx context.Context, series models.SalesSeries, horizonDays int, forecasts []models.ForecastResult) *models.ForecastResult {
	type member struct {
		res    models.ForecastResult
		weight float64
	}
	var members []member

	for _, f := range forecasts {
		if len(f.Predictions) != horizonDays {
			continue
		}
		var w float64
		switch f.Model {
		case models.ModelTreeA:
			w = weightTreeA
		case models.ModelTreeB:
			w = weightTreeB
		default:
			w = f.Accuracy / 100 * maxBaseWeight
		}
		if w <= 0 {
			continue
		}
		members = append(members, member{f, w})
	}
	if len(members) == 0 {
		return nil
	}

	totalWeight := 0.0
	for _, m := range members {
		totalWeight += m.weight
	}

	preds := make([]float64, horizonDays)
	for _, m := range members {
		w := m.weight / totalWeight
		for i, p := range m.res.Predictions {
			preds[i] += w * p
		}
	}
	clampNonNegative(preds)

	var spread float64
	if len(members) >= 2 {
		for _, m := range members {
			spread += stdDev(m.res.Predictions)
		}
		spread /= float64(len(members))
	} else {
		spread = 0.3 * stdDev(preds)
	}
	lower, upper := boundsFromResidualStd(preds, spread)

	names := make([]string, len(members))
	weights := make([]float64, len(members))
	for i, m := range members {
		names[i] = m.res.Model
		weights[i] = m.weight / totalWeight
	}

	return &models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: sum(preds) / float64(horizonDays),
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        models.ModelAdvancedEnsemble,
		Accuracy:     accuracyScore(models.ModelAdvancedEnsemble, series.Units()),
		Details:      map[string]any{"members": names, "weights": weights},
	}
}
