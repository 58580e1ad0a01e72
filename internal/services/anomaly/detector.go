package anomaly

import (
	"math"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
)

// Detection methods reported on the AnomalyReport.
const (
	MethodZScore       = "z_score"
	MethodEnsemble     = "ensemble"
	MethodInsufficient = "insufficient_data"
)

const (
	minDays       = 7
	zThreshold    = 2.5
	contamination = 0.1
)

// Detector flags irregular days in a sales history. The z-score pass always
// runs; the isolation forest joins in when its capability is enabled, and
// the merged report is labeled "ensemble".
type Detector struct {
	caps domsvc.Capabilities
}

func New(caps domsvc.Capabilities) *Detector {
	return &Detector{caps: caps}
}

// Detect never fails: below the data minimum it reports insufficient data,
// and each detector independently degrades to "no anomalies".
func (d *Detector) Detect(series models.SalesSeries) models.AnomalyReport {
	if len(series) < minDays {
		return models.AnomalyReport{Method: MethodInsufficient}
	}

	flagged := zScoreAnomalies(series)
	method := MethodZScore

	if d.caps.IsolationForest {
		method = MethodEnsemble
		for _, idx := range isolationForestAnomalies(series) {
			if _, ok := flagged[idx]; !ok {
				flagged[idx] = 0 // flagged by the forest alone
			}
		}
	}

	report := models.AnomalyReport{Method: method}
	for i, p := range series {
		z, ok := flagged[i]
		if !ok {
			continue
		}
		report.Points = append(report.Points, models.AnomalyPoint{
			Date:   p.Date,
			Units:  float64(p.UnitsSold),
			ZScore: z,
		})
	}
	report.Count = len(report.Points)
	report.Detected = report.Count > 0
	return report
}

// zScoreAnomalies flags days beyond 2.5 standard deviations on raw units.
func zScoreAnomalies(series models.SalesSeries) map[int]float64 {
	units := series.Units()
	m := mean(units)
	sd := stdDev(units)
	out := make(map[int]float64)
	if sd == 0 {
		return out
	}
	for i, u := range units {
		z := (u - m) / sd
		if math.Abs(z) > zThreshold {
			out[i] = z
		}
	}
	return out
}

// isolationForestAnomalies runs the multivariate detector over
// {units, day-of-week, 7-day rolling mean} and returns the indices of the
// most isolated contamination share of days.
func isolationForestAnomalies(series models.SalesSeries) []int {
	n := len(series)
	units := series.Units()

	X := make([][]float64, n)
	for i := 0; i < n; i++ {
		lo := i - 6
		if lo < 0 {
			lo = 0
		}
		X[i] = []float64{
			units[i],
			float64(series[i].Date.Weekday()),
			mean(units[lo : i+1]),
		}
	}

	forest := newIsolationForest(forestTrees, forestSampleSize, forestSeed)
	forest.fit(X)

	scores := make([]float64, n)
	for i := range X {
		scores[i] = forest.score(X[i])
	}

	// Top contamination-share scores are anomalies.
	k := int(float64(n) * contamination)
	if k == 0 {
		return nil
	}
	threshold := kthLargest(scores, k)
	var idx []int
	for i, s := range scores {
		if s >= threshold && len(idx) < k {
			idx = append(idx, i)
		}
	}
	return idx
}

func kthLargest(scores []float64, k int) float64 {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	// insertion sort descending; series are at most a few hundred days
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] > sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[k-1]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
