package models

import "time"

// HolidayEffect captures demand lift around a calendar holiday, split into the
// week before and the week after. Factors are multiplicative, centered near 1.0.
type HolidayEffect struct {
	Pre  float64 `json:"pre"`
	Post float64 `json:"post"`
}

// AnomalyKind tags a detected demand anomaly.
type AnomalyKind string

const (
	AnomalySpike AnomalyKind = "spike"
	AnomalyDip   AnomalyKind = "dip"
)

// AnomalyEvent is a day whose demand deviated more than two standard
// deviations from its 7-day centered rolling mean.
type AnomalyEvent struct {
	Date      time.Time   `json:"date"`
	Demand    float64     `json:"demand"`
	Expected  float64     `json:"expected"`
	Deviation float64     `json:"deviation"` // in standard deviations
	Kind      AnomalyKind `json:"kind"`
}

// TrendClass buckets the yearly growth rate.
type TrendClass string

const (
	TrendStrongGrowth    TrendClass = "strong_growth"
	TrendModerateGrowth  TrendClass = "moderate_growth"
	TrendStable          TrendClass = "stable"
	TrendModerateDecline TrendClass = "moderate_decline"
	TrendStrongDecline   TrendClass = "strong_decline"
)

// YearlyTrend is the annual-total regression summary.
type YearlyTrend struct {
	GrowthRate float64    `json:"growth_rate"` // fractional year-over-year growth
	Class      TrendClass `json:"class"`
}

// SeasonalProfile is the combined multi-layer seasonal analysis of a series.
// Factors are multiplicative and centered near 1.0; a neutral profile (all
// factors 1.0, strength 0.1) is returned for short series and must be treated
// as low-confidence by callers, not as an error.
type SeasonalProfile struct {
	MarketCode      string                   `json:"market_code,omitempty"`
	WeeklyFactors   map[time.Weekday]float64 `json:"weekly_factors"`
	MonthlyFactors  map[time.Month]float64   `json:"monthly_factors"`
	HolidayEffects  map[string]HolidayEffect `json:"holiday_effects,omitempty"`
	YearlyTrend     YearlyTrend              `json:"yearly_trend"`
	DetectedEvents  []AnomalyEvent           `json:"detected_events,omitempty"`
	OverallStrength float64                  `json:"overall_strength"` // in [0,1]
	Confidence      float64                  `json:"confidence"`       // in [0,1]
}

// Neutral reports whether the profile is the low-confidence default.
func (p *SeasonalProfile) Neutral() bool {
	return p.OverallStrength <= 0.1 && len(p.DetectedEvents) == 0
}

// DailyFactor is the per-day breakdown of an applied seasonal adjustment.
type DailyFactor struct {
	Date     time.Time `json:"date"`
	Weekly   float64   `json:"weekly"`
	Monthly  float64   `json:"monthly"`
	Holiday  float64   `json:"holiday"`
	Yearly   float64   `json:"yearly"`
	Combined float64   `json:"combined"` // clamped to [0.1, 3.0]
}
