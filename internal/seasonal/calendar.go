// Package seasonal detects weekly, monthly, holiday and yearly demand
// patterns and applies them as multiplicative forecast adjustments.
package seasonal

import "time"

// Holiday is a fixed-date calendar holiday.
type Holiday struct {
	Name  string
	Month time.Month
	Day   int
}

// HolidayCalendar lists the holidays of one market. Calendars are injected
// so tests can supply deterministic dates.
type HolidayCalendar struct {
	MarketCode string
	Holidays   []Holiday
}

// DateIn returns the holiday's date in the given year.
func (h Holiday) DateIn(year int) time.Time {
	return time.Date(year, h.Month, h.Day, 0, 0, 0, 0, time.UTC)
}

// Template holds the combination weights and clamps for seasonal
// adjustment. DefaultTemplate returns the standard weighting.
type Template struct {
	WeeklyWeight  float64
	MonthlyWeight float64
	HolidayWeight float64
	YearlyWeight  float64
	MinFactor     float64
	MaxFactor     float64
}

// DefaultTemplate weights monthly patterns heaviest and bounds the combined
// factor to [0.1, 3.0].
func DefaultTemplate() Template {
	return Template{
		WeeklyWeight:  0.3,
		MonthlyWeight: 0.4,
		HolidayWeight: 0.2,
		YearlyWeight:  0.1,
		MinFactor:     0.1,
		MaxFactor:     3.0,
	}
}

var builtinCalendars = map[string]HolidayCalendar{
	"US": {
		MarketCode: "US",
		Holidays: []Holiday{
			{"new_year", time.January, 1},
			{"independence_day", time.July, 4},
			{"thanksgiving", time.November, 27},
			{"black_friday", time.November, 28},
			{"christmas", time.December, 25},
		},
	},
	"DE": {
		MarketCode: "DE",
		Holidays: []Holiday{
			{"new_year", time.January, 1},
			{"labour_day", time.May, 1},
			{"unity_day", time.October, 3},
			{"christmas", time.December, 25},
			{"second_christmas", time.December, 26},
		},
	},
	"UK": {
		MarketCode: "UK",
		Holidays: []Holiday{
			{"new_year", time.January, 1},
			{"boxing_day", time.December, 26},
			{"christmas", time.December, 25},
		},
	},
}

// CalendarFor returns the built-in calendar for a market code, defaulting
// to US when the market is unknown.
func CalendarFor(marketCode string) HolidayCalendar {
	if cal, ok := builtinCalendars[marketCode]; ok {
		return cal
	}
	return builtinCalendars["US"]
}
