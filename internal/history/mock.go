package history

import (
	"context"
	"sort"
	"time"

	"github.com/demandcast/demandcast/internal/models"
)

var _ SalesHistory = (*MockHistory)(nil)

// MockHistory is an in-memory SalesHistory implementation for testing.
type MockHistory struct {
	events []SaleEvent
}

// NewMockHistory creates a new mock history instance.
func NewMockHistory() *MockHistory {
	return &MockHistory{}
}

// RecordSale appends the event to the in-memory log.
func (m *MockHistory) RecordSale(ctx context.Context, ev SaleEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.events = append(m.events, ev)
	return nil
}

// Seed loads a daily series for a product and channel, one event per point.
func (m *MockHistory) Seed(productID, channelID string, series models.TimeSeries) {
	for _, pt := range series {
		m.events = append(m.events, SaleEvent{
			Timestamp: pt.Date,
			ProductID: productID,
			ChannelID: channelID,
			Quantity:  pt.Demand,
			Revenue:   pt.Revenue,
			UnitPrice: pt.UnitPrice,
		})
	}
}

// GetSeries aggregates the in-memory events per calendar day.
func (m *MockHistory) GetSeries(ctx context.Context, productID, channelID string, from, to time.Time) (models.TimeSeries, error) {
	byDay := make(map[time.Time]*models.DataPoint)
	for _, ev := range m.events {
		if ev.ProductID != productID || ev.ChannelID != channelID {
			continue
		}
		if ev.Timestamp.Before(from) || ev.Timestamp.After(to.Add(24*time.Hour)) {
			continue
		}
		day := ev.Timestamp.Truncate(24 * time.Hour)
		pt, ok := byDay[day]
		if !ok {
			pt = &models.DataPoint{Date: day}
			byDay[day] = pt
		}
		pt.Demand += ev.Quantity
		pt.Revenue += ev.Revenue
		pt.UnitPrice = ev.UnitPrice
	}

	series := make(models.TimeSeries, 0, len(byDay))
	for _, pt := range byDay {
		series = append(series, *pt)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// GetAnnualDemand sums quantities per product over the trailing 365 days.
func (m *MockHistory) GetAnnualDemand(ctx context.Context) (map[string]float64, error) {
	cutoff := time.Now().AddDate(0, 0, -365)
	demand := make(map[string]float64)
	for _, ev := range m.events {
		if ev.Timestamp.After(cutoff) {
			demand[ev.ProductID] += ev.Quantity
		}
	}
	return demand, nil
}
