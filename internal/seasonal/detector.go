package seasonal

import (
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/demandcast/demandcast/internal/models"
)

const (
	minObservations  = 60
	minWeeklyGroup   = 2
	minMonthlyGroup  = 5
	holidayWindow    = 7
	anomalyThreshold = 2.0
)

// Detector analyzes a series for seasonal structure. Calendars are resolved
// per market code through the injected lookup.
type Detector struct {
	calendars func(marketCode string) HolidayCalendar
	template  Template
	logger    *zap.Logger
}

// NewDetector builds a detector using the built-in market calendars and the
// default combination template.
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{calendars: CalendarFor, template: DefaultTemplate(), logger: logger}
}

// NewDetectorWithCalendar builds a detector with an explicit calendar and
// template, used by tests to supply deterministic holidays.
func NewDetectorWithCalendar(cal HolidayCalendar, template Template, logger *zap.Logger) *Detector {
	return &Detector{
		calendars: func(string) HolidayCalendar { return cal },
		template:  template,
		logger:    logger,
	}
}

// neutralProfile is the low-confidence default for short series.
func neutralProfile(marketCode string) models.SeasonalProfile {
	weekly := make(map[time.Weekday]float64, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekly[d] = 1.0
	}
	monthly := make(map[time.Month]float64, 12)
	for m := time.January; m <= time.December; m++ {
		monthly[m] = 1.0
	}
	return models.SeasonalProfile{
		MarketCode:      marketCode,
		WeeklyFactors:   weekly,
		MonthlyFactors:  monthly,
		YearlyTrend:     models.YearlyTrend{Class: models.TrendStable},
		OverallStrength: 0.1,
		Confidence:      0.1,
	}
}

// Detect builds a seasonal profile from the series. Series shorter than 60
// observations get the neutral profile; callers must treat it as
// low-confidence, not as an error.
func (d *Detector) Detect(series models.TimeSeries, marketCode string) models.SeasonalProfile {
	if len(series) < minObservations {
		d.logger.Debug("series too short for seasonal detection",
			zap.Int("observations", len(series)),
			zap.Int("minimum", minObservations))
		return neutralProfile(marketCode)
	}

	overall := series.Mean()
	profile := models.SeasonalProfile{
		MarketCode:     marketCode,
		WeeklyFactors:  weeklyFactors(series, overall),
		MonthlyFactors: monthlyFactors(series, overall),
		HolidayEffects: d.holidayEffects(series, marketCode, overall),
		YearlyTrend:    yearlyTrend(series),
		DetectedEvents: detectAnomalies(series),
	}
	profile.OverallStrength = overallStrength(profile)
	profile.Confidence = confidence(series, profile)
	return profile
}

// weeklyFactors computes group mean over overall mean per weekday. Groups
// below the minimum sample size stay neutral.
func weeklyFactors(series models.TimeSeries, overall float64) map[time.Weekday]float64 {
	sums := make(map[time.Weekday]float64)
	counts := make(map[time.Weekday]int)
	for _, pt := range series {
		sums[pt.Date.Weekday()] += pt.Demand
		counts[pt.Date.Weekday()]++
	}
	factors := make(map[time.Weekday]float64, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		factors[day] = 1.0
		if overall > 0 && counts[day] >= minWeeklyGroup {
			factors[day] = (sums[day] / float64(counts[day])) / overall
		}
	}
	return factors
}

// monthlyFactors computes group mean over overall mean per month.
func monthlyFactors(series models.TimeSeries, overall float64) map[time.Month]float64 {
	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)
	for _, pt := range series {
		sums[pt.Date.Month()] += pt.Demand
		counts[pt.Date.Month()]++
	}
	factors := make(map[time.Month]float64, 12)
	for m := time.January; m <= time.December; m++ {
		factors[m] = 1.0
		if overall > 0 && counts[m] >= minMonthlyGroup {
			factors[m] = (sums[m] / float64(counts[m])) / overall
		}
	}
	return factors
}

// holidayEffects compares the ±7 day window around each observed holiday to
// the overall mean, split into pre and post factors.
func (d *Detector) holidayEffects(series models.TimeSeries, marketCode string, overall float64) map[string]models.HolidayEffect {
	if overall <= 0 {
		return nil
	}
	cal := d.calendars(marketCode)

	byDate := make(map[time.Time]float64, len(series))
	for _, pt := range series {
		byDate[dateOnly(pt.Date)] = pt.Demand
	}
	firstYear := series[0].Date.Year()
	lastYear := series[len(series)-1].Date.Year()

	effects := make(map[string]models.HolidayEffect)
	for _, h := range cal.Holidays {
		var preSum, postSum float64
		var preCount, postCount int
		for year := firstYear; year <= lastYear; year++ {
			date := h.DateIn(year)
			for offset := 1; offset <= holidayWindow; offset++ {
				if v, ok := byDate[date.AddDate(0, 0, -offset)]; ok {
					preSum += v
					preCount++
				}
				if v, ok := byDate[date.AddDate(0, 0, offset)]; ok {
					postSum += v
					postCount++
				}
			}
		}
		if preCount == 0 && postCount == 0 {
			continue
		}
		effect := models.HolidayEffect{Pre: 1.0, Post: 1.0}
		if preCount > 0 {
			effect.Pre = (preSum / float64(preCount)) / overall
		}
		if postCount > 0 {
			effect.Post = (postSum / float64(postCount)) / overall
		}
		effects[h.Name] = effect
	}
	return effects
}

// yearlyTrend regresses annual totals against the year index and classifies
// the growth rate into five buckets.
func yearlyTrend(series models.TimeSeries) models.YearlyTrend {
	totals := make(map[int]float64)
	for _, pt := range series {
		totals[pt.Date.Year()] += pt.Demand
	}
	if len(totals) < 2 {
		return models.YearlyTrend{Class: models.TrendStable}
	}

	var xs, ys []float64
	firstYear := series[0].Date.Year()
	for year := firstYear; ; year++ {
		total, ok := totals[year]
		if !ok {
			break
		}
		xs = append(xs, float64(year-firstYear))
		ys = append(ys, total)
	}
	if len(ys) < 2 {
		return models.YearlyTrend{Class: models.TrendStable}
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	meanTotal := stat.Mean(ys, nil)
	var growth float64
	if meanTotal > 0 {
		growth = slope / meanTotal
	}

	var class models.TrendClass
	switch {
	case growth > 0.10:
		class = models.TrendStrongGrowth
	case growth > 0.05:
		class = models.TrendModerateGrowth
	case growth < -0.10:
		class = models.TrendStrongDecline
	case growth < -0.05:
		class = models.TrendModerateDecline
	default:
		class = models.TrendStable
	}
	return models.YearlyTrend{GrowthRate: growth, Class: class}
}

// detectAnomalies flags days deviating more than two standard deviations
// from a 7-day centered rolling mean.
func detectAnomalies(series models.TimeSeries) []models.AnomalyEvent {
	n := len(series)
	if n < holidayWindow {
		return nil
	}

	demands := series.Demands()
	std := series.Std()
	if std == 0 {
		return nil
	}

	var events []models.AnomalyEvent
	half := 3
	for i := half; i < n-half; i++ {
		var sum float64
		count := 0
		for j := i - half; j <= i+half; j++ {
			if j == i {
				continue
			}
			sum += demands[j]
			count++
		}
		expected := sum / float64(count)
		deviation := (demands[i] - expected) / std
		if math.Abs(deviation) <= anomalyThreshold {
			continue
		}
		kind := models.AnomalySpike
		if deviation < 0 {
			kind = models.AnomalyDip
		}
		events = append(events, models.AnomalyEvent{
			Date:      series[i].Date,
			Demand:    demands[i],
			Expected:  expected,
			Deviation: deviation,
			Kind:      kind,
		})
	}
	return events
}

// overallStrength measures how far the detected factors sit from neutral,
// in [0, 1].
func overallStrength(profile models.SeasonalProfile) float64 {
	var devSum float64
	count := 0
	for _, f := range profile.WeeklyFactors {
		devSum += math.Abs(f - 1)
		count++
	}
	for _, f := range profile.MonthlyFactors {
		devSum += math.Abs(f - 1)
		count++
	}
	for _, e := range profile.HolidayEffects {
		devSum += (math.Abs(e.Pre-1) + math.Abs(e.Post-1)) / 2
		count++
	}
	if count == 0 {
		return 0.1
	}
	strength := devSum / float64(count)
	if strength > 1 {
		strength = 1
	}
	if strength < 0.1 {
		strength = 0.1
	}
	return strength
}

// confidence averages a data-volume factor with the pattern strength.
func confidence(series models.TimeSeries, profile models.SeasonalProfile) float64 {
	volume := float64(len(series)) / 365.0
	if volume > 1 {
		volume = 1
	}
	return (volume + profile.OverallStrength) / 2
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
