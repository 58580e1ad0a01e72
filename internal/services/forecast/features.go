package forecast

import (
	"time"

	"StockPulse/internal/domain/models"
)

// Feature layout for the tree models. Lag offsets are in days; rolling
// stats cover the trailing 7 days.
var featureNames = []string{
	"day_of_week",
	"day_of_month",
	"iso_week",
	"month",
	"is_weekend",
	"lag_1",
	"lag_7",
	"lag_14",
	"rolling_mean_7",
	"rolling_std_7",
}

const maxLag = 14

// calendarFeatures fills the date-derived slots.
func calendarFeatures(date time.Time, x []float64) {
	_, isoWeek := date.ISOWeek()
	x[0] = float64(date.Weekday())
	x[1] = float64(date.Day())
	x[2] = float64(isoWeek)
	x[3] = float64(date.Month())
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		x[4] = 1
	}
}

// lagFeatures fills lag and rolling slots from the trailing buffer. The
// buffer must hold at least maxLag values.
func lagFeatures(buffer []float64, x []float64) {
	n := len(buffer)
	x[5] = buffer[n-1]
	x[6] = buffer[n-7]
	x[7] = buffer[n-14]
	window := buffer[n-7:]
	x[8] = mean(window)
	x[9] = stdDev(window)
}

// buildTrainingRows engineers the feature matrix from history. Rows whose
// lag features would reach before the series start are dropped; callers
// must check the clean-row minimum themselves.
func buildTrainingRows(series models.SalesSeries) (X [][]float64, y []float64) {
	units := series.Units()
	for i := maxLag; i < len(series); i++ {
		x := make([]float64, len(featureNames))
		calendarFeatures(series[i].Date, x)
		lagFeatures(units[:i], x)
		X = append(X, x)
		y = append(y, units[i])
	}
	return X, y
}
