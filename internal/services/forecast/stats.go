package forecast

import "math"

// Small numeric helpers shared by the forecasting models.

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// olsFit returns slope and intercept of y regressed on its index.
func olsFit(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// autocorrelation at the given lag; 0 when undefined.
func autocorrelation(xs []float64, lag int) float64 {
	n := len(xs)
	if lag <= 0 || n <= lag {
		return 0
	}
	m := mean(xs)
	var num, den float64
	for i := 0; i < n; i++ {
		d := xs[i] - m
		den += d * d
	}
	if den == 0 {
		return 0
	}
	for i := lag; i < n; i++ {
		num += (xs[i] - m) * (xs[i-lag] - m)
	}
	return num / den
}

func clampNonNegative(xs []float64) {
	for i, x := range xs {
		if x < 0 {
			xs[i] = 0
		}
	}
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

// boundsFromResidualStd builds ordered, non-negative 95% interval sums
// around per-day predictions.
func boundsFromResidualStd(preds []float64, residStd float64) (lower, upper float64) {
	for _, p := range preds {
		lo := p - 1.96*residStd
		if lo < 0 {
			lo = 0
		}
		if lo > p {
			lo = p
		}
		lower += lo
		upper += p + 1.96*residStd
	}
	return lower, upper
}
