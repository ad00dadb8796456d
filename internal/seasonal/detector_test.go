package seasonal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
)

func genSeries(start time.Time, n int, demand func(date time.Time, i int) float64) models.TimeSeries {
	series := make(models.TimeSeries, n)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, i)
		d := demand(date, i)
		if d < 0 {
			d = 0
		}
		series[i] = models.DataPoint{Date: date, Demand: d, Revenue: d * 5, UnitPrice: 5}
	}
	return series
}

func TestShortSeriesReturnsNeutralProfile(t *testing.T) {
	detector := NewDetector(zap.NewNop())
	series := genSeries(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 30,
		func(time.Time, int) float64 { return 10 })

	profile := detector.Detect(series, "US")
	assert.True(t, profile.Neutral())
	assert.InDelta(t, 0.1, profile.OverallStrength, 1e-9)
	for _, f := range profile.WeeklyFactors {
		assert.Equal(t, 1.0, f)
	}
	for _, f := range profile.MonthlyFactors {
		assert.Equal(t, 1.0, f)
	}
}

func TestWeeklyFactors(t *testing.T) {
	detector := NewDetector(zap.NewNop())
	// Saturdays sell triple.
	series := genSeries(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 90,
		func(date time.Time, i int) float64 {
			if date.Weekday() == time.Saturday {
				return 300
			}
			return 100
		})

	profile := detector.Detect(series, "US")
	require.False(t, profile.Neutral())
	assert.Greater(t, profile.WeeklyFactors[time.Saturday], profile.WeeklyFactors[time.Monday])
	assert.Greater(t, profile.WeeklyFactors[time.Saturday], 1.5)
	assert.Less(t, profile.WeeklyFactors[time.Monday], 1.0)
}

func TestHolidayEffects(t *testing.T) {
	cal := HolidayCalendar{
		MarketCode: "TEST",
		Holidays:   []Holiday{{"midsummer", time.June, 15}},
	}
	detector := NewDetectorWithCalendar(cal, DefaultTemplate(), zap.NewNop())

	// Demand doubles the week before the holiday.
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	holiday := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	series := genSeries(start, 90, func(date time.Time, i int) float64 {
		days := holiday.Sub(date).Hours() / 24
		if days > 0 && days <= 7 {
			return 200
		}
		return 100
	})

	profile := detector.Detect(series, "TEST")
	effect, ok := profile.HolidayEffects["midsummer"]
	require.True(t, ok)
	assert.Greater(t, effect.Pre, 1.3)
	assert.InDelta(t, 1.0, effect.Post, 0.2)
}

func TestAnomalyDetection(t *testing.T) {
	detector := NewDetector(zap.NewNop())
	series := genSeries(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 90,
		func(date time.Time, i int) float64 {
			switch i {
			case 40:
				return 500 // spike
			case 60:
				return 0 // dip
			default:
				return 100 + 3*math.Sin(float64(i))
			}
		})

	profile := detector.Detect(series, "US")
	var spike, dip bool
	for _, ev := range profile.DetectedEvents {
		if ev.Kind == models.AnomalySpike {
			spike = true
		}
		if ev.Kind == models.AnomalyDip {
			dip = true
		}
	}
	assert.True(t, spike, "expected a spike event")
	assert.True(t, dip, "expected a dip event")
}

func TestYearlyTrendClassification(t *testing.T) {
	detector := NewDetector(zap.NewNop())

	// Two full years with demand growing 30% year over year.
	series := genSeries(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 730,
		func(date time.Time, i int) float64 {
			if date.Year() == 2023 {
				return 100
			}
			return 130
		})

	profile := detector.Detect(series, "US")
	assert.Equal(t, models.TrendStrongGrowth, profile.YearlyTrend.Class)
	assert.Greater(t, profile.YearlyTrend.GrowthRate, 0.10)
}

func TestApplyClampsAndBreakdown(t *testing.T) {
	detector := NewDetector(zap.NewNop())
	series := genSeries(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 90,
		func(date time.Time, i int) float64 {
			if date.Weekday() == time.Sunday {
				return 250
			}
			return 100
		})
	profile := detector.Detect(series, "US")

	base := []float64{100, 100, 100, 100, 100, 100, 100}
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	adjusted, factors := detector.Apply(base, start, profile)

	require.Len(t, adjusted, len(base))
	require.Len(t, factors, len(base))
	for i := range adjusted {
		assert.GreaterOrEqual(t, adjusted[i], 0.0)
		assert.GreaterOrEqual(t, factors[i].Combined, 0.1)
		assert.LessOrEqual(t, factors[i].Combined, 3.0)
		assert.InDelta(t, base[i]*factors[i].Combined, adjusted[i], 1e-9)
	}

	// Sundays get a bigger combined factor than Mondays.
	var sunday, monday float64
	for i := range factors {
		switch factors[i].Date.Weekday() {
		case time.Sunday:
			sunday = factors[i].Combined
		case time.Monday:
			monday = factors[i].Combined
		}
	}
	assert.Greater(t, sunday, monday)
}

func TestConfidenceGrowsWithData(t *testing.T) {
	detector := NewDetector(zap.NewNop())
	weekly := func(date time.Time, i int) float64 {
		if date.Weekday() == time.Saturday {
			return 200
		}
		return 100
	}

	shortProfile := detector.Detect(genSeries(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 70, weekly), "US")
	longProfile := detector.Detect(genSeries(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 365, weekly), "US")
	assert.Greater(t, longProfile.Confidence, shortProfile.Confidence)
}
