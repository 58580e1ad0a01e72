package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesPoint is one calendar day of aggregated sales for a product.
type SalesPoint struct {
	Date         time.Time
	UnitsSold    int
	ReturnsCount int
	Revenue      decimal.Decimal
}

// NetUnits is units sold minus returns for the day.
func (p SalesPoint) NetUnits() int { return p.UnitsSold - p.ReturnsCount }

// SalesSeries is an ordered, gap-free daily series over a fixed window.
// Exactly one entry per calendar day; days without sales are zero-filled.
type SalesSeries []SalesPoint

// Units extracts the units-sold values as a float slice for the models.
func (s SalesSeries) Units() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = float64(p.UnitsSold)
	}
	return out
}

// TotalUnits sums units sold across the window.
func (s SalesSeries) TotalUnits() int {
	total := 0
	for _, p := range s {
		total += p.UnitsSold
	}
	return total
}

// TotalRevenue sums revenue across the window.
func (s SalesSeries) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s {
		total = total.Add(p.Revenue)
	}
	return total
}

// Tail returns the last n points (the whole series when n >= len).
func (s SalesSeries) Tail(n int) SalesSeries {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// SumUnits sums units sold over the last n days.
func (s SalesSeries) SumUnits(n int) int {
	total := 0
	for _, p := range s.Tail(n) {
		total += p.UnitsSold
	}
	return total
}

// BuildDailySeries assembles a gap-free daily series from sparse per-day
// aggregates. Days absent from points get a zero-filled entry. The window is
// [start, end] inclusive, dates truncated to UTC midnight.
func BuildDailySeries(points map[time.Time]SalesPoint, start, end time.Time) SalesSeries {
	start = Midnight(start)
	end = Midnight(end)
	if end.Before(start) {
		return SalesSeries{}
	}
	days := int(end.Sub(start).Hours()/24) + 1
	series := make(SalesSeries, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if p, ok := points[d]; ok {
			p.Date = d
			series = append(series, p)
		} else {
			series = append(series, SalesPoint{Date: d, Revenue: decimal.Zero})
		}
	}
	return series
}

// Midnight truncates t to its UTC calendar day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
