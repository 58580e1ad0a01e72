package forecast

import (
	"StockPulse/internal/domain/models"
)

// Minimum history each model family needs.
const (
	minDaysNaive          = 1
	minDaysLinear         = 7
	minDaysSmoothing      = 14
	minDaysAutoregressive = 14
	minDaysDecomposition  = 30
)

// outcome is the tagged result every concrete model returns. The cascade
// logic switches on the tag instead of catching errors: a model that cannot
// run hands control to the next simpler one.
type outcome struct {
	ok          bool
	unavailable bool
	reason      string
	result      models.ForecastResult
}

func succeeded(r models.ForecastResult) outcome { return outcome{ok: true, result: r} }
func unavailable() outcome                      { return outcome{unavailable: true, reason: "model family unavailable"} }
func fitFailed(reason string) outcome           { return outcome{reason: reason} }

// naiveForecast is the terminal fallback: flat repetition of the historical
// daily average. Never fails.
func naiveForecast(units []float64, horizon int) outcome {
	daily := mean(units)
	if daily < 0 {
		daily = 0
	}
	preds := make([]float64, horizon)
	for i := range preds {
		preds[i] = daily
	}
	sd := stdDev(units)
	lower, upper := boundsFromResidualStd(preds, sd)
	return succeeded(models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: daily,
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        models.ModelNaive,
	})
}

// linearForecast fits ordinary least squares on the day index. Always
// available; the last resort before the naive average.
func linearForecast(units []float64, horizon int) outcome {
	if len(units) < minDaysLinear {
		return fitFailed("insufficient data for linear trend")
	}
	slope, intercept := olsFit(units)

	// In-sample residuals for the interval width.
	resid := make([]float64, len(units))
	for i, v := range units {
		resid[i] = v - (intercept + slope*float64(i))
	}
	residStd := stdDev(resid)

	preds := make([]float64, horizon)
	for i := range preds {
		preds[i] = intercept + slope*float64(len(units)+i)
	}
	clampNonNegative(preds)
	lower, upper := boundsFromResidualStd(preds, residStd)

	return succeeded(models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: sum(preds) / float64(horizon),
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        models.ModelLinear,
		Details:      map[string]any{"slope": slope, "intercept": intercept},
	})
}

// smoothingForecast runs triple exponential smoothing (additive trend and
// seasonality) with seasonal period min(7, len/2). With fewer than two full
// periods it degrades to trend-only smoothing. A small positive offset is
// added before fitting and removed after, so all-zero stretches do not
// produce a degenerate fit.
func smoothingForecast(units []float64, horizon int) outcome {
	n := len(units)
	if n < minDaysSmoothing {
		return fitFailed("insufficient data for smoothing")
	}
	if stdDev(units) == 0 {
		return fitFailed("zero variance series")
	}

	const offset = 0.1
	const (
		alpha = 0.3
		beta  = 0.1
		gamma = 0.1
	)

	y := make([]float64, n)
	for i, v := range units {
		y[i] = v + offset
	}

	period := 7
	if n/2 < period {
		period = n / 2
	}
	if period < 2 {
		return fitFailed("series too short for a seasonal period")
	}

	var preds, fitted []float64
	if n >= 2*period {
		preds, fitted = holtWinters(y, period, horizon, alpha, beta, gamma)
	} else {
		preds, fitted = holt(y, horizon, alpha, beta)
	}

	resid := make([]float64, len(fitted))
	for i := range fitted {
		resid[i] = y[i] - fitted[i]
	}
	residStd := stdDev(resid)

	for i := range preds {
		preds[i] -= offset
	}
	clampNonNegative(preds)
	lower, upper := boundsFromResidualStd(preds, residStd)

	return succeeded(models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: sum(preds) / float64(horizon),
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        models.ModelSmoothing,
		Details:      map[string]any{"seasonal_period": period},
	})
}

// autoregressiveForecast fits AR(1) with drift on the first-differenced
// series. Differencing removes the trend; the AR coefficient is the lag-1
// autocorrelation of the differences (Yule-Walker at order one). Forecasts
// integrate the predicted differences back onto the last observed level.
func autoregressiveForecast(units []float64, horizon int) outcome {
	n := len(units)
	if n < minDaysAutoregressive {
		return fitFailed("insufficient data for autoregressive model")
	}
	if stdDev(units) == 0 {
		return fitFailed("zero variance series")
	}

	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = units[i] - units[i-1]
	}

	phi := autocorrelation(diffs, 1)
	// Keep the recursion stationary.
	if phi > 0.95 {
		phi = 0.95
	} else if phi < -0.95 {
		phi = -0.95
	}
	drift := mean(diffs)

	// One-step-ahead residuals on the differences size the interval.
	resid := make([]float64, 0, len(diffs)-1)
	for i := 1; i < len(diffs); i++ {
		predicted := drift + phi*(diffs[i-1]-drift)
		resid = append(resid, diffs[i]-predicted)
	}
	residStd := stdDev(resid)

	preds := make([]float64, horizon)
	level := units[n-1]
	d := diffs[len(diffs)-1]
	for h := 0; h < horizon; h++ {
		d = drift + phi*(d-drift)
		level += d
		if level < 0 {
			level = 0
			d = 0
		}
		preds[h] = level
	}

	lower, upper := boundsFromResidualStd(preds, residStd)
	return succeeded(models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: sum(preds) / float64(horizon),
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        models.ModelAutoregressive,
		Details:      map[string]any{"phi": phi, "drift": drift},
	})
}

// holtWinters is additive-trend, additive-seasonal exponential smoothing.
func holtWinters(y []float64, period, horizon int, alpha, beta, gamma float64) (preds, fitted []float64) {
	n := len(y)

	// Initialize level and trend from the first two periods.
	var first, second float64
	for i := 0; i < period; i++ {
		first += y[i]
		second += y[period+i]
	}
	first /= float64(period)
	second /= float64(period)

	level := first
	trend := (second - first) / float64(period)
	seasonal := make([]float64, period)
	for i := 0; i < period; i++ {
		seasonal[i] = y[i] - first
	}

	fitted = make([]float64, n)
	for i := 0; i < n; i++ {
		s := seasonal[i%period]
		fitted[i] = level + trend + s
		prevLevel := level
		level = alpha*(y[i]-s) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[i%period] = gamma*(y[i]-level) + (1-gamma)*s
	}

	preds = make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		preds[h] = level + float64(h+1)*trend + seasonal[(n+h)%period]
	}
	return preds, fitted
}

// holt is trend-only double exponential smoothing.
func holt(y []float64, horizon int, alpha, beta float64) (preds, fitted []float64) {
	n := len(y)
	level := y[0]
	trend := 0.0
	if n > 1 {
		trend = y[1] - y[0]
	}

	fitted = make([]float64, n)
	for i := 0; i < n; i++ {
		fitted[i] = level + trend
		prevLevel := level
		level = alpha*y[i] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	preds = make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		preds[h] = level + float64(h+1)*trend
	}
	return preds, fitted
}

// decompositionForecast models the series as an OLS trend times a weekly
// seasonal index (multiplicative), with a yearly index only when a full
// year of history exists. This is the richest statistical model and needs
// the longest history.
func decompositionForecast(units []float64, horizon int) outcome {
	n := len(units)
	if n < minDaysDecomposition {
		return fitFailed("insufficient data for decomposition")
	}
	overall := mean(units)
	if overall <= 0 {
		return fitFailed("non-positive series mean")
	}

	slope, intercept := olsFit(units)

	// Weekly seasonal index: mean of each weekday slot relative to the
	// overall mean. Slots are positions mod 7 relative to series start.
	weekly := seasonalIndex(units, overall, 7, func(i int) int { return i % 7 })

	// Yearly seasonality only with a full year of history, bucketed in
	// 30-day blocks.
	var yearly []float64
	if n >= 365 {
		yearly = seasonalIndex(units, overall, 12, func(i int) int { return (i / 30) % 12 })
	}

	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		fitted[i] = (intercept + slope*float64(i)) * weekly[i%7]
		if yearly != nil {
			fitted[i] *= yearly[(i/30)%12]
		}
	}
	resid := make([]float64, n)
	for i := range fitted {
		resid[i] = units[i] - fitted[i]
	}
	residStd := stdDev(resid)

	preds := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		i := n + h
		preds[h] = (intercept + slope*float64(i)) * weekly[i%7]
		if yearly != nil {
			preds[h] *= yearly[(i/30)%12]
		}
	}
	clampNonNegative(preds)
	lower, upper := boundsFromResidualStd(preds, residStd)

	return succeeded(models.ForecastResult{
		Predictions:  preds,
		TotalDemand:  sum(preds),
		DailyAverage: sum(preds) / float64(horizon),
		LowerBound:   lower,
		UpperBound:   upper,
		Model:        models.ModelDecomposition,
		Details:      map[string]any{"weekly_index": weekly, "yearly": yearly != nil},
	})
}

// seasonalIndex computes the multiplicative index for each slot of a cycle.
// Empty or non-positive slots fall back to 1.0.
func seasonalIndex(units []float64, overall float64, slots int, slotFor func(i int) int) []float64 {
	sums := make([]float64, slots)
	counts := make([]int, slots)
	for i, v := range units {
		slot := slotFor(i)
		sums[slot] += v
		counts[slot]++
	}
	idx := make([]float64, slots)
	for i := range idx {
		if counts[i] == 0 {
			idx[i] = 1.0
			continue
		}
		idx[i] = (sums[i] / float64(counts[i])) / overall
		if idx[i] <= 0 {
			idx[i] = 1.0
		}
	}
	return idx
}
