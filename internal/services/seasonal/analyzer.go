package seasonal

import (
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
)

// Season labels for the Indian retail calendar.
const (
	SeasonSummer   = "summer"   // Mar-May
	SeasonMonsoon  = "monsoon"  // Jun-Sep
	SeasonFestival = "festival" // Oct-Nov
	SeasonWinter   = "winter"   // Dec-Feb
)

// defaultSeasonFactors applies when a pet type has no dedicated table.
var defaultSeasonFactors = map[string]float64{
	SeasonSummer:   1.1,
	SeasonMonsoon:  0.9,
	SeasonFestival: 1.3,
	SeasonWinter:   1.0,
}

// petSeasonFactors maps petType -> category -> season -> multiplier.
// "regular" is the per-pet fallback category.
var petSeasonFactors = map[string]map[string]map[string]float64{
	"dog": {
		"food": {
			SeasonSummer: 1.1, SeasonMonsoon: 0.95, SeasonFestival: 1.25, SeasonWinter: 1.05,
		},
		"grooming": {
			SeasonSummer: 1.3, SeasonMonsoon: 0.7, SeasonFestival: 1.2, SeasonWinter: 0.9,
		},
		"accessories": {
			SeasonSummer: 1.0, SeasonMonsoon: 0.85, SeasonFestival: 1.4, SeasonWinter: 1.1,
		},
		"regular": {
			SeasonSummer: 1.1, SeasonMonsoon: 0.9, SeasonFestival: 1.3, SeasonWinter: 1.0,
		},
	},
	"cat": {
		"food": {
			SeasonSummer: 1.05, SeasonMonsoon: 1.0, SeasonFestival: 1.2, SeasonWinter: 1.1,
		},
		"litter": {
			SeasonSummer: 1.0, SeasonMonsoon: 1.15, SeasonFestival: 1.1, SeasonWinter: 1.05,
		},
		"regular": {
			SeasonSummer: 1.05, SeasonMonsoon: 0.95, SeasonFestival: 1.25, SeasonWinter: 1.05,
		},
	},
	"bird": {
		"food": {
			SeasonSummer: 1.15, SeasonMonsoon: 0.9, SeasonFestival: 1.2, SeasonWinter: 0.95,
		},
		"regular": {
			SeasonSummer: 1.1, SeasonMonsoon: 0.85, SeasonFestival: 1.2, SeasonWinter: 0.95,
		},
	},
}

// calendarEvent is a named demand event keyed by month and day range.
type calendarEvent struct {
	month      time.Month
	startDay   int
	endDay     int
	name       string
	multiplier float64
}

// events is the static demand-event calendar.
var events = []calendarEvent{
	{time.January, 13, 15, "Makar Sankranti", 1.2},
	{time.March, 1, 10, "Holi Week", 1.3},
	{time.August, 10, 20, "Independence Week", 1.15},
	{time.October, 15, 31, "Festive Season Start", 1.4},
	{time.November, 1, 15, "Diwali Week", 1.5},
	{time.December, 20, 31, "Christmas & New Year", 1.3},
}

// Analyzer derives multiplicative calendar adjustments for demand
// forecasts. Stateless apart from the injected clock.
type Analyzer struct {
	now func() time.Time
}

type Option func(*Analyzer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SeasonFor maps a month to its retail season.
func SeasonFor(m time.Month) string {
	switch {
	case m >= time.March && m <= time.May:
		return SeasonSummer
	case m >= time.June && m <= time.September:
		return SeasonMonsoon
	case m == time.October || m == time.November:
		return SeasonFestival
	default:
		return SeasonWinter
	}
}

// seasonalFactor resolves the (petType, category) multiplier for a season,
// falling back to the pet's "regular" table, then to the defaults.
func seasonalFactor(petType, category, season string) float64 {
	petType = strings.ToLower(strings.TrimSpace(petType))
	category = strings.ToLower(strings.TrimSpace(category))

	if cats, ok := petSeasonFactors[petType]; ok {
		if table, ok := cats[category]; ok {
			if f, ok := table[season]; ok {
				return f
			}
		}
		if table, ok := cats["regular"]; ok {
			if f, ok := table[season]; ok {
				return f
			}
		}
	}
	if f, ok := defaultSeasonFactors[season]; ok {
		return f
	}
	return 1.0
}

// EventImpact returns the active event for date, or the nearest event within
// the next 14 days, or nil when no event is in sight.
func (a *Analyzer) EventImpact(date time.Time) *models.EventImpact {
	if ev := eventOn(date); ev != nil {
		return &models.EventImpact{
			Name:       ev.name,
			Multiplier: ev.multiplier,
			Active:     true,
		}
	}
	for d := 1; d <= 14; d++ {
		probe := date.AddDate(0, 0, d)
		if ev := eventOn(probe); ev != nil {
			return &models.EventImpact{
				Name:           ev.name,
				Multiplier:     ev.multiplier,
				DaysUntil:      d,
				Recommendation: fmt.Sprintf("Stock up for %s (%d days away)", ev.name, d),
			}
		}
	}
	return nil
}

func eventOn(date time.Time) *calendarEvent {
	for i := range events {
		ev := &events[i]
		if date.Month() == ev.month && date.Day() >= ev.startDay && date.Day() <= ev.endDay {
			return ev
		}
	}
	return nil
}

// AdjustmentFactors computes the combined seasonal adjustment for a product.
func (a *Analyzer) AdjustmentFactors(series models.SalesSeries, petType, category string) models.SeasonalAdjustment {
	now := a.now().UTC()
	season := SeasonFor(now.Month())

	adj := models.SeasonalAdjustment{
		Season:         season,
		SeasonalFactor: seasonalFactor(petType, category, season),
	}

	eventMultiplier := 1.0
	if ev := a.EventImpact(now); ev != nil {
		adj.Event = ev
		eventMultiplier = ev.Multiplier
	}
	adj.CombinedFactor = adj.SeasonalFactor * eventMultiplier

	adj.Weekly = a.WeeklyPattern(series)
	adj.Monthly = a.MonthlyPattern(series)
	return adj
}

// WeeklyPattern needs at least 7 days of data; below that it reports
// not-detected rather than guessing.
func (a *Analyzer) WeeklyPattern(series models.SalesSeries) *models.WeeklyPattern {
	if len(series) < 7 {
		return &models.WeeklyPattern{Detected: false}
	}

	sums := make(map[time.Weekday]float64, 7)
	counts := make(map[time.Weekday]int, 7)
	for _, p := range series {
		wd := p.Date.Weekday()
		sums[wd] += float64(p.UnitsSold)
		counts[wd]++
	}

	var weekendSum, weekdaySum float64
	var weekendN, weekdayN int
	peak, trough := time.Sunday, time.Sunday
	peakAvg, troughAvg := -1.0, -1.0
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if counts[wd] == 0 {
			continue
		}
		avg := sums[wd] / float64(counts[wd])
		if peakAvg < 0 || avg > peakAvg {
			peakAvg, peak = avg, wd
		}
		if troughAvg < 0 || avg < troughAvg {
			troughAvg, trough = avg, wd
		}
		if wd == time.Saturday || wd == time.Sunday {
			weekendSum += avg
			weekendN++
		} else {
			weekdaySum += avg
			weekdayN++
		}
	}
	if weekendN == 0 || weekdayN == 0 {
		return &models.WeeklyPattern{Detected: false}
	}

	weekendAvg := weekendSum / float64(weekendN)
	weekdayAvg := weekdaySum / float64(weekdayN)

	ptype := "uniform"
	switch {
	case weekendAvg > 1.2*weekdayAvg:
		ptype = "weekend_heavy"
	case weekdayAvg > 1.2*weekendAvg:
		ptype = "weekday_heavy"
	}

	return &models.WeeklyPattern{
		Detected:   true,
		Type:       ptype,
		PeakDay:    peak.String(),
		TroughDay:  trough.String(),
		WeekendAvg: weekendAvg,
		WeekdayAvg: weekdayAvg,
	}
}

// MonthlyPattern needs at least 30 days; splits each month into
// start (1-10), mid (11-20) and end (21+) buckets.
func (a *Analyzer) MonthlyPattern(series models.SalesSeries) *models.MonthlyPattern {
	if len(series) < 30 {
		return &models.MonthlyPattern{Detected: false}
	}

	var sums [3]float64
	var counts [3]int
	for _, p := range series {
		idx := 2
		switch d := p.Date.Day(); {
		case d <= 10:
			idx = 0
		case d <= 20:
			idx = 1
		}
		sums[idx] += float64(p.UnitsSold)
		counts[idx]++
	}

	avgs := [3]float64{}
	for i := range sums {
		if counts[i] > 0 {
			avgs[i] = sums[i] / float64(counts[i])
		}
	}

	periods := [3]string{"start", "mid", "end"}
	peak := 0
	for i := 1; i < 3; i++ {
		if avgs[i] > avgs[peak] {
			peak = i
		}
	}

	return &models.MonthlyPattern{
		Detected:   true,
		PeakPeriod: periods[peak],
		StartAvg:   avgs[0],
		MidAvg:     avgs[1],
		EndAvg:     avgs[2],
	}
}
