package models

import (
	"testing"
	"time"
)

func TestAvailableStockClamps(t *testing.T) {
	p := ProductSnapshot{CurrentStock: 5, ReservedStock: 8}
	if got := p.AvailableStock(); got != 0 {
		t.Errorf("AvailableStock = %d, want 0", got)
	}
	p = ProductSnapshot{CurrentStock: 10, ReservedStock: 3}
	if got := p.AvailableStock(); got != 7 {
		t.Errorf("AvailableStock = %d, want 7", got)
	}
}

func TestShelfLifeDaysFromString(t *testing.T) {
	now := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		shelf string
		want  int
	}{
		{"6 months", 180},
		{"2 weeks", 14},
		{"30 days", 30},
		{"1 year", 365},
		{"", 0},
		{"fresh", 0},
		{"-3 days", 0},
	}
	for _, c := range cases {
		p := ProductSnapshot{ShelfLife: c.shelf}
		if got := p.ShelfLifeDays(now); got != c.want {
			t.Errorf("ShelfLifeDays(%q) = %d, want %d", c.shelf, got, c.want)
		}
	}
}

func TestShelfLifeDaysPrefersExpiry(t *testing.T) {
	now := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	exp := now.AddDate(0, 0, 12)
	p := ProductSnapshot{ShelfLife: "6 months", ExpiryDate: &exp}
	if got := p.ShelfLifeDays(now); got != 12 {
		t.Errorf("ShelfLifeDays = %d, want 12 from expiry date", got)
	}

	past := now.AddDate(0, 0, -2)
	p = ProductSnapshot{ExpiryDate: &past}
	if got := p.ShelfLifeDays(now); got != 0 {
		t.Errorf("expired product ShelfLifeDays = %d, want 0", got)
	}
}

func TestBuildDailySeriesZeroFills(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	points := make(map[time.Time]SalesPoint)
	points[start] = SalesPoint{Date: start, UnitsSold: 3}
	day4 := start.AddDate(0, 0, 4)
	points[day4] = SalesPoint{Date: day4, UnitsSold: 7, ReturnsCount: 2}

	series := BuildDailySeries(points, start, end)
	if len(series) != 7 {
		t.Fatalf("len = %d, want 7", len(series))
	}
	if series[0].UnitsSold != 3 || series[4].UnitsSold != 7 {
		t.Errorf("observed days not preserved: %+v", series)
	}
	for _, i := range []int{1, 2, 3, 5, 6} {
		if series[i].UnitsSold != 0 {
			t.Errorf("day %d not zero-filled: %+v", i, series[i])
		}
	}
	if series[4].NetUnits() != 5 {
		t.Errorf("NetUnits = %d, want 5", series[4].NetUnits())
	}
}
