package seasonal

import (
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func constantSeries(start time.Time, days, units int) models.SalesSeries {
	s := make(models.SalesSeries, 0, days)
	for i := 0; i < days; i++ {
		s = append(s, models.SalesPoint{Date: start.AddDate(0, 0, i), UnitsSold: units})
	}
	return s
}

func TestSeasonFor(t *testing.T) {
	cases := []struct {
		month time.Month
		want  string
	}{
		{time.March, SeasonSummer},
		{time.May, SeasonSummer},
		{time.June, SeasonMonsoon},
		{time.September, SeasonMonsoon},
		{time.October, SeasonFestival},
		{time.November, SeasonFestival},
		{time.December, SeasonWinter},
		{time.February, SeasonWinter},
	}
	for _, c := range cases {
		if got := SeasonFor(c.month); got != c.want {
			t.Errorf("SeasonFor(%v) = %q, want %q", c.month, got, c.want)
		}
	}
}

func TestSeasonalFactorFallbacks(t *testing.T) {
	// known pet + known category
	if f := seasonalFactor("dog", "grooming", SeasonSummer); f != 1.3 {
		t.Errorf("dog/grooming summer = %v, want 1.3", f)
	}
	// known pet + unknown category -> pet's regular table
	if f := seasonalFactor("dog", "toys", SeasonFestival); f != 1.3 {
		t.Errorf("dog/toys festival = %v, want regular fallback 1.3", f)
	}
	// unknown pet -> default table
	if f := seasonalFactor("hamster", "food", SeasonMonsoon); f != 0.9 {
		t.Errorf("hamster monsoon = %v, want default 0.9", f)
	}
}

func TestEventImpactActive(t *testing.T) {
	a := New()
	diwali := time.Date(2025, time.November, 5, 0, 0, 0, 0, time.UTC)
	ev := a.EventImpact(diwali)
	if ev == nil {
		t.Fatal("expected active event on Nov 5")
	}
	if !ev.Active || ev.Name != "Diwali Week" || ev.Multiplier != 1.5 {
		t.Errorf("got %+v, want active Diwali Week x1.5", ev)
	}
}

func TestEventImpactUpcoming(t *testing.T) {
	a := New()
	// Oct 5: Festive Season Start begins Oct 15 -> 10 days out.
	ev := a.EventImpact(time.Date(2025, time.October, 5, 0, 0, 0, 0, time.UTC))
	if ev == nil {
		t.Fatal("expected upcoming event")
	}
	if ev.Active {
		t.Error("event should not be active yet")
	}
	if ev.DaysUntil != 10 {
		t.Errorf("DaysUntil = %d, want 10", ev.DaysUntil)
	}
	if ev.Recommendation == "" {
		t.Error("upcoming event should carry a recommendation")
	}
}

func TestEventImpactNone(t *testing.T) {
	a := New()
	// Mid-June: nothing on the calendar within 14 days.
	if ev := a.EventImpact(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)); ev != nil {
		t.Errorf("expected no event, got %+v", ev)
	}
}

func TestAdjustmentFactorsCombined(t *testing.T) {
	// Nov 5: festival season and active Diwali Week.
	now := time.Date(2025, time.November, 5, 0, 0, 0, 0, time.UTC)
	a := New(WithClock(fixedClock(now)))

	adj := a.AdjustmentFactors(nil, "dog", "accessories")
	if adj.Season != SeasonFestival {
		t.Errorf("season = %q, want festival", adj.Season)
	}
	want := 1.4 * 1.5
	if diff := adj.CombinedFactor - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("combined = %v, want %v", adj.CombinedFactor, want)
	}
}

func TestWeeklyPatternInsufficientData(t *testing.T) {
	a := New()
	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	if p := a.WeeklyPattern(constantSeries(start, 5, 3)); p.Detected {
		t.Error("5 days must not detect a weekly pattern")
	}
}

func TestWeeklyPatternWeekendHeavy(t *testing.T) {
	a := New()
	start := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC) // a Monday
	s := make(models.SalesSeries, 0, 14)
	for i := 0; i < 14; i++ {
		d := start.AddDate(0, 0, i)
		units := 2
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			units = 10
		}
		s = append(s, models.SalesPoint{Date: d, UnitsSold: units})
	}
	p := a.WeeklyPattern(s)
	if !p.Detected || p.Type != "weekend_heavy" {
		t.Errorf("got %+v, want detected weekend_heavy", p)
	}
}

func TestMonthlyPatternThreshold(t *testing.T) {
	a := New()
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	if p := a.MonthlyPattern(constantSeries(start, 20, 1)); p.Detected {
		t.Error("20 days must not detect a monthly pattern")
	}
	if p := a.MonthlyPattern(constantSeries(start, 30, 1)); !p.Detected {
		t.Error("30 days should detect a monthly pattern")
	}
}
