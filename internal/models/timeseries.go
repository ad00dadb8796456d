package models

import (
	"fmt"
	"math"
	"time"
)

// DataPoint is a single day of sales history for a (product, channel) pair.
type DataPoint struct {
	Date      time.Time `json:"date"`
	Demand    float64   `json:"demand"`
	Revenue   float64   `json:"revenue"`
	UnitPrice float64   `json:"unit_price"`
}

// TimeSeries is an ordered, read-only snapshot of daily sales history.
// Dates are strictly increasing; gaps mean zero demand or missing data and
// are the caller's responsibility.
type TimeSeries []DataPoint

// Validate checks the strictly-increasing-dates invariant and non-negative values.
func (ts TimeSeries) Validate() error {
	for i, p := range ts {
		if p.Demand < 0 || p.Revenue < 0 || p.UnitPrice < 0 {
			return fmt.Errorf("%w: negative value at index %d", ErrInvalidParameter, i)
		}
		if i > 0 && !ts[i-1].Date.Before(p.Date) {
			return fmt.Errorf("%w: dates not strictly increasing at index %d", ErrInvalidParameter, i)
		}
	}
	return nil
}

// Demands returns the demand values as a plain slice.
func (ts TimeSeries) Demands() []float64 {
	out := make([]float64, len(ts))
	for i, p := range ts {
		out[i] = p.Demand
	}
	return out
}

// Tail returns the last n points, or the whole series when it is shorter.
func (ts TimeSeries) Tail(n int) TimeSeries {
	if n >= len(ts) {
		return ts
	}
	return ts[len(ts)-n:]
}

// LastDate returns the date of the final observation, or the zero time for an
// empty series.
func (ts TimeSeries) LastDate() time.Time {
	if len(ts) == 0 {
		return time.Time{}
	}
	return ts[len(ts)-1].Date
}

// Mean returns the average daily demand.
func (ts TimeSeries) Mean() float64 {
	if len(ts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range ts {
		sum += p.Demand
	}
	return sum / float64(len(ts))
}

// Std returns the sample standard deviation of daily demand.
func (ts TimeSeries) Std() float64 {
	n := len(ts)
	if n < 2 {
		return 0
	}
	mean := ts.Mean()
	var sumSq float64
	for _, p := range ts {
		d := p.Demand - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
