package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item in the catalog.
type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Category      string          `json:"category,omitempty"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	UnitVolume    float64         `json:"unit_volume"` // storage units per item
	LeadTimeDays  float64         `json:"lead_time_days"`
	ShelfLifeDays float64         `json:"shelf_life_days,omitempty"` // 0 = non-perishable
	Active        bool            `json:"active"`
}

// Location is a warehouse or store holding stock.
type Location struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	MarketCode      string  `json:"market_code"`
	StorageCapacity float64 `json:"storage_capacity"`
	Active          bool    `json:"active"`
}

// InventoryLevel is the current stock position of a product at a location.
type InventoryLevel struct {
	ProductID      string    `json:"product_id"`
	LocationID     string    `json:"location_id"`
	OnHand         float64   `json:"on_hand"`
	Allocated      float64   `json:"allocated"`
	AverageAgeDays float64   `json:"average_age_days"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Available returns stock on hand not yet committed.
func (l InventoryLevel) Available() float64 {
	avail := l.OnHand - l.Allocated
	if avail < 0 {
		return 0
	}
	return avail
}
