// Command fake_data seeds Postgres with a synthetic catalog and ClickHouse
// with two years of daily sales carrying weekly and yearly seasonality, so
// the forecasting and optimization endpoints have something realistic to
// chew on.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/db"
	"github.com/demandcast/demandcast/internal/history"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
)

var (
	productCount  = flag.Int("products", 20, "number of products")
	locationCount = flag.Int("locations", 3, "number of locations")
	days          = flag.Int("days", 730, "days of sales history")
	channels      = flag.Int("channels", 2, "sales channels per product")
	seed          = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
)

var categories = []string{"electronics", "apparel", "grocery", "home", "toys"}

var channelNames = []string{"retail", "online", "wholesale", "b2b"}

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pg.Close()

	hist, err := history.InitClickHouse(cfg.ClickHouseDSN, cfg.CHMaxOpenConns, cfg.CHMaxIdleConns, cfg.CHConnMaxLifetime, cfg.CHConnMaxIdleTime)
	if err != nil {
		logger.Fatal("connect clickhouse", zap.Error(err))
	}
	defer hist.Close()

	r := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	locations := seedLocations(logger, pg, *locationCount)
	products := seedProducts(logger, pg, r, *productCount)
	seedInventory(logger, pg, r, products, locations)

	var events int
	for _, product := range products {
		for c := 0; c < *channels && c < len(channelNames); c++ {
			events += seedSales(ctx, logger, hist, r, product, channelNames[c], locations, *days)
		}
	}

	logger.Info("seeded synthetic data",
		zap.Int("products", len(products)),
		zap.Int("locations", len(locations)),
		zap.Int("sale_events", events),
		zap.Int64("seed", *seed),
	)
}

func seedLocations(logger *zap.Logger, pg *db.Postgres, n int) []models.Location {
	markets := []string{"US", "DE", "UK"}
	out := make([]models.Location, 0, n)
	for i := 0; i < n; i++ {
		loc := models.Location{
			ID:              fmt.Sprintf("loc-%02d", i+1),
			Name:            fmt.Sprintf("DC %02d", i+1),
			MarketCode:      markets[i%len(markets)],
			StorageCapacity: 50000,
			Active:          true,
		}
		if err := pg.InsertLocation(loc); err != nil {
			logger.Fatal("insert location", zap.Error(err))
		}
		out = append(out, loc)
	}
	return out
}

func seedProducts(logger *zap.Logger, pg *db.Postgres, r *rand.Rand, n int) []models.Product {
	out := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		cost := 2 + r.Float64()*48
		product := models.Product{
			ID:            fmt.Sprintf("sku-%04d", i+1),
			SKU:           fmt.Sprintf("SKU-%04d", i+1),
			Name:          fmt.Sprintf("Product %04d", i+1),
			Category:      categories[i%len(categories)],
			UnitCost:      decimal.NewFromFloat(cost).Round(2),
			UnitPrice:     decimal.NewFromFloat(cost * (1.5 + r.Float64())).Round(2),
			UnitVolume:    0.5 + r.Float64()*2,
			LeadTimeDays:  3 + r.Float64()*18,
			ShelfLifeDays: 0,
			Active:        true,
		}
		if product.Category == "grocery" {
			product.ShelfLifeDays = 30 + r.Float64()*60
		}
		if err := pg.InsertProduct(product); err != nil {
			logger.Fatal("insert product", zap.Error(err))
		}
		out = append(out, product)
	}
	return out
}

func seedInventory(logger *zap.Logger, pg *db.Postgres, r *rand.Rand, products []models.Product, locations []models.Location) {
	for _, product := range products {
		for _, loc := range locations {
			lv := models.InventoryLevel{
				ProductID:      product.ID,
				LocationID:     loc.ID,
				OnHand:         float64(r.Intn(500)),
				Allocated:      float64(r.Intn(50)),
				AverageAgeDays: float64(r.Intn(180)),
				UpdatedAt:      time.Now().UTC(),
			}
			if err := pg.UpsertInventoryLevel(lv); err != nil {
				logger.Fatal("upsert inventory", zap.Error(err))
			}
		}
	}
}

// seedSales writes one aggregated event per day per channel. Demand carries
// a weekly cycle, a yearly sine, mild growth and occasional promotion spikes.
func seedSales(ctx context.Context, logger *zap.Logger, hist *history.History, r *rand.Rand, product models.Product, channel string, locations []models.Location, days int) int {
	base := 5 + r.Float64()*45
	growth := (r.Float64() - 0.3) * 0.0005 // per day, mostly positive
	weekendLift := 0.8 + r.Float64()*0.8
	price, _ := product.UnitPrice.Float64()

	start := time.Now().UTC().AddDate(0, 0, -days)
	events := 0
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)

		demand := base * (1 + growth*float64(d))
		demand *= 1 + 0.2*math.Sin(2*math.Pi*float64(date.YearDay())/365)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			demand *= weekendLift
		}
		if r.Float64() < 0.02 {
			demand *= 2 + r.Float64() // promotion spike
		}
		demand *= 0.8 + r.Float64()*0.4
		qty := math.Max(0, math.Round(demand))
		if qty == 0 {
			continue
		}

		ev := history.SaleEvent{
			Timestamp:  date.Add(12 * time.Hour),
			ProductID:  product.ID,
			ChannelID:  channel,
			LocationID: locations[r.Intn(len(locations))].ID,
			Quantity:   qty,
			Revenue:    qty * price,
			UnitPrice:  price,
		}
		if err := hist.RecordSale(ctx, ev); err != nil {
			logger.Fatal("record sale", zap.Error(err))
		}
		events++
	}
	return events
}
