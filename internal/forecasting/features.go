package forecasting

import (
	"math"
	"strconv"
	"time"

	"github.com/demandcast/demandcast/internal/models"
)

// featureSet is the design matrix shared by the regression and ensemble
// forecasters. Rows start at index maxLag so every lag and rolling window
// is fully populated.
type featureSet struct {
	X     [][]float64
	Y     []float64
	Names []string
}

var (
	featureLags    = []int{1, 3, 7, 14}
	featureWindows = []int{3, 7, 14}
)

const maxLag = 14

// buildFeatures constructs lag, rolling-statistic, calendar and price
// features from the series. Returns nil when the series is too short to
// produce a usable sample.
func buildFeatures(series models.TimeSeries) *featureSet {
	n := len(series)
	rows := n - maxLag
	if rows < 1 {
		return nil
	}

	demands := series.Demands()
	names := featureNames()

	fs := &featureSet{
		X:     make([][]float64, 0, rows),
		Y:     make([]float64, 0, rows),
		Names: names,
	}
	for i := maxLag; i < n; i++ {
		fs.X = append(fs.X, featureRow(demands, series[i].Date, series[i].UnitPrice, i))
		fs.Y = append(fs.Y, demands[i])
	}
	return fs
}

// featureRow builds one row for position i of the demand history; date and
// price describe the day being predicted.
func featureRow(demands []float64, date time.Time, price float64, i int) []float64 {
	row := make([]float64, 0, featureCount())
	for _, lag := range featureLags {
		row = append(row, demands[i-lag])
	}
	for _, w := range featureWindows {
		window := demands[i-w : i]
		m := mean(window)
		row = append(row, m, rollingStd(window, m))
	}
	// day-of-week dummies, Sunday as baseline
	for d := time.Monday; d <= time.Saturday; d++ {
		if date.Weekday() == d {
			row = append(row, 1)
		} else {
			row = append(row, 0)
		}
	}
	row = append(row, float64(date.Month()))
	row = append(row, price)
	return row
}

func featureNames() []string {
	var names []string
	for _, lag := range featureLags {
		names = append(names, "lag_"+strconv.Itoa(lag))
	}
	for _, w := range featureWindows {
		names = append(names, "roll_mean_"+strconv.Itoa(w), "roll_std_"+strconv.Itoa(w))
	}
	for d := time.Monday; d <= time.Saturday; d++ {
		names = append(names, "dow_"+d.String())
	}
	names = append(names, "month", "price")
	return names
}

func featureCount() int {
	return len(featureLags) + 2*len(featureWindows) + 6 + 2
}


func rollingStd(window []float64, m float64) float64 {
	if len(window) < 2 {
		return 0
	}
	var ss float64
	for _, v := range window {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(window)-1))
}

