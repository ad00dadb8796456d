package seasonal

import (
	"math"
	"time"

	"github.com/demandcast/demandcast/internal/models"
)

// Apply adjusts a base forecast with the profile's multiplicative factors.
// Each day's combined factor is a weighted geometric mean of the weekly,
// monthly, holiday and yearly components, clamped to the template bounds.
// The per-day breakdown is returned alongside the adjusted forecast.
func (d *Detector) Apply(base []float64, startDate time.Time, profile models.SeasonalProfile) ([]float64, []models.DailyFactor) {
	cal := d.calendars(profile.MarketCode)

	adjusted := make([]float64, len(base))
	factors := make([]models.DailyFactor, len(base))
	for i, v := range base {
		date := startDate.AddDate(0, 0, i)
		f := d.dailyFactor(date, profile, cal)
		factors[i] = f
		av := v * f.Combined
		if av < 0 {
			av = 0
		}
		adjusted[i] = av
	}
	return adjusted, factors
}

// dailyFactor resolves the four component factors for one day and combines
// them.
func (d *Detector) dailyFactor(date time.Time, profile models.SeasonalProfile, cal HolidayCalendar) models.DailyFactor {
	f := models.DailyFactor{
		Date:    date,
		Weekly:  1.0,
		Monthly: 1.0,
		Holiday: 1.0,
		Yearly:  1.0,
	}
	if v, ok := profile.WeeklyFactors[date.Weekday()]; ok && v > 0 {
		f.Weekly = v
	}
	if v, ok := profile.MonthlyFactors[date.Month()]; ok && v > 0 {
		f.Monthly = v
	}
	f.Holiday = holidayFactor(date, profile, cal)
	// Yearly growth applied pro rata per day.
	f.Yearly = 1 + profile.YearlyTrend.GrowthRate/365.0

	f.Combined = d.combine(f)
	return f
}

// holidayFactor finds the nearest holiday within the ±7 day window and
// returns its pre or post factor.
func holidayFactor(date time.Time, profile models.SeasonalProfile, cal HolidayCalendar) float64 {
	day := dateOnly(date)
	for _, h := range cal.Holidays {
		effect, ok := profile.HolidayEffects[h.Name]
		if !ok {
			continue
		}
		for _, year := range []int{day.Year() - 1, day.Year(), day.Year() + 1} {
			hd := h.DateIn(year)
			diff := int(day.Sub(hd).Hours() / 24)
			if diff >= -holidayWindow && diff < 0 && effect.Pre > 0 {
				return effect.Pre
			}
			if diff > 0 && diff <= holidayWindow && effect.Post > 0 {
				return effect.Post
			}
		}
	}
	return 1.0
}

// combine takes the weighted geometric mean of the component factors and
// clamps the result.
func (d *Detector) combine(f models.DailyFactor) float64 {
	t := d.template
	logSum := t.WeeklyWeight*math.Log(f.Weekly) +
		t.MonthlyWeight*math.Log(f.Monthly) +
		t.HolidayWeight*math.Log(f.Holiday) +
		t.YearlyWeight*math.Log(f.Yearly)
	weightSum := t.WeeklyWeight + t.MonthlyWeight + t.HolidayWeight + t.YearlyWeight

	combined := math.Exp(logSum / weightSum)
	if math.IsNaN(combined) || math.IsInf(combined, 0) {
		combined = 1.0
	}
	if combined < t.MinFactor {
		combined = t.MinFactor
	}
	if combined > t.MaxFactor {
		combined = t.MaxFactor
	}
	return combined
}
