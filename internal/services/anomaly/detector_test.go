package anomaly

import (
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

func TestDetectInsufficientData(t *testing.T) {
	d := New(domsvc.AllCapabilities())
	report := d.Detect(seriesOf(1, 2, 3))
	if report.Detected || report.Method != MethodInsufficient {
		t.Errorf("got %+v, want undetected insufficient_data", report)
	}
}

func TestDetectZScoreSpike(t *testing.T) {
	d := New(domsvc.Capabilities{}) // forest off, pure z-score
	units := make([]int, 30)
	for i := range units {
		units[i] = 5
	}
	units[20] = 80 // massive spike

	report := d.Detect(seriesOf(units...))
	if !report.Detected {
		t.Fatal("spike should be detected")
	}
	if report.Method != MethodZScore {
		t.Errorf("method = %q, want z_score without the forest", report.Method)
	}
	found := false
	for _, p := range report.Points {
		if p.Units == 80 && p.ZScore > zThreshold {
			found = true
		}
	}
	if !found {
		t.Errorf("spike day missing from points: %+v", report.Points)
	}
}

func TestDetectQuietSeries(t *testing.T) {
	d := New(domsvc.Capabilities{})
	report := d.Detect(seriesOf(4, 5, 4, 6, 5, 4, 5, 6, 4, 5))
	if report.Detected {
		t.Errorf("steady series flagged: %+v", report.Points)
	}
}

func TestDetectEnsembleMethod(t *testing.T) {
	d := New(domsvc.AllCapabilities())
	units := make([]int, 30)
	for i := range units {
		units[i] = 5
	}
	units[10] = 70

	report := d.Detect(seriesOf(units...))
	if report.Method != MethodEnsemble {
		t.Errorf("method = %q, want ensemble with the forest enabled", report.Method)
	}
	if !report.Detected {
		t.Error("spike should be detected by the merged detectors")
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := New(domsvc.AllCapabilities())
	units := []int{3, 9, 4, 50, 2, 7, 5, 3, 8, 4, 6, 2, 9, 5, 4, 7, 3, 6, 8, 5}
	s := seriesOf(units...)

	a := d.Detect(s)
	b := d.Detect(s)
	if a.Count != b.Count || a.Detected != b.Detected {
		t.Errorf("detection not deterministic: %d vs %d points", a.Count, b.Count)
	}
}
