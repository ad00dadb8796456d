package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq" // postgres driver
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS products (
    id TEXT PRIMARY KEY,
    sku TEXT NOT NULL,
    name TEXT NOT NULL,
    category TEXT,
    unit_cost NUMERIC(12,4) NOT NULL,
    unit_price NUMERIC(12,4) NOT NULL,
    unit_volume DOUBLE PRECISION NOT NULL DEFAULT 1,
    lead_time_days DOUBLE PRECISION NOT NULL DEFAULT 7,
    shelf_life_days DOUBLE PRECISION,
    active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS locations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    market_code TEXT NOT NULL DEFAULT 'US',
    storage_capacity DOUBLE PRECISION NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS inventory_levels (
    product_id TEXT REFERENCES products(id),
    location_id TEXT REFERENCES locations(id),
    on_hand DOUBLE PRECISION NOT NULL DEFAULT 0,
    allocated DOUBLE PRECISION NOT NULL DEFAULT 0,
    average_age_days DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (product_id, location_id)
);

-- Lookup indexes for optimization runs
CREATE INDEX IF NOT EXISTS idx_products_active ON products (active) WHERE active = true;
CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);
CREATE INDEX IF NOT EXISTS idx_inventory_location ON inventory_levels (location_id);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.connection_string", dsn),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadProducts retrieves active products from the database.
func (p *Postgres) LoadProducts() ([]models.Product, error) {
	rows, err := p.DB.QueryContext(context.Background(), `SELECT id, sku, name, category, unit_cost, unit_price, unit_volume, lead_time_days, shelf_life_days, active FROM products WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var products []models.Product
	for rows.Next() {
		var pr models.Product
		var category sql.NullString
		var shelfLife sql.NullFloat64
		var cost, price string
		if err := rows.Scan(&pr.ID, &pr.SKU, &pr.Name, &category, &cost, &price, &pr.UnitVolume, &pr.LeadTimeDays, &shelfLife, &pr.Active); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if category.Valid {
			pr.Category = category.String
		}
		if shelfLife.Valid {
			pr.ShelfLifeDays = shelfLife.Float64
		}
		if pr.UnitCost, err = parseDecimal(cost); err != nil {
			return nil, fmt.Errorf("parse unit cost for %s: %w", pr.ID, err)
		}
		if pr.UnitPrice, err = parseDecimal(price); err != nil {
			return nil, fmt.Errorf("parse unit price for %s: %w", pr.ID, err)
		}
		products = append(products, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return products, nil
}

// LoadLocations retrieves active locations from the database.
func (p *Postgres) LoadLocations() ([]models.Location, error) {
	rows, err := p.DB.QueryContext(context.Background(), `SELECT id, name, market_code, storage_capacity, active FROM locations WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.MarketCode, &l.StorageCapacity, &l.Active); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return locations, nil
}

// LoadInventoryLevels retrieves all current stock positions.
func (p *Postgres) LoadInventoryLevels() ([]models.InventoryLevel, error) {
	rows, err := p.DB.QueryContext(context.Background(), `SELECT product_id, location_id, on_hand, allocated, average_age_days, updated_at FROM inventory_levels`)
	if err != nil {
		return nil, fmt.Errorf("query inventory levels: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var levels []models.InventoryLevel
	for rows.Next() {
		var lv models.InventoryLevel
		if err := rows.Scan(&lv.ProductID, &lv.LocationID, &lv.OnHand, &lv.Allocated, &lv.AverageAgeDays, &lv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory level: %w", err)
		}
		levels = append(levels, lv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return levels, nil
}

// InsertProduct inserts a new product record.
func (p *Postgres) InsertProduct(pr models.Product) error {
	_, err := p.DB.ExecContext(context.Background(), `INSERT INTO products (id, sku, name, category, unit_cost, unit_price, unit_volume, lead_time_days, shelf_life_days, active) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		pr.ID, pr.SKU, pr.Name, pr.Category, pr.UnitCost.String(), pr.UnitPrice.String(), pr.UnitVolume, pr.LeadTimeDays, nullFloat(pr.ShelfLifeDays), pr.Active)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct updates an existing product.
func (p *Postgres) UpdateProduct(pr models.Product) error {
	_, err := p.DB.ExecContext(context.Background(), `UPDATE products SET sku=$1, name=$2, category=$3, unit_cost=$4, unit_price=$5, unit_volume=$6, lead_time_days=$7, shelf_life_days=$8, active=$9 WHERE id=$10`,
		pr.SKU, pr.Name, pr.Category, pr.UnitCost.String(), pr.UnitPrice.String(), pr.UnitVolume, pr.LeadTimeDays, nullFloat(pr.ShelfLifeDays), pr.Active, pr.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product by ID, first deleting its inventory rows.
func (p *Postgres) DeleteProduct(id string) error {
	_, err := p.DB.ExecContext(context.Background(), `DELETE FROM inventory_levels WHERE product_id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory for product: %w", err)
	}
	_, err = p.DB.ExecContext(context.Background(), `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// InsertLocation inserts a new location record.
func (p *Postgres) InsertLocation(l models.Location) error {
	_, err := p.DB.ExecContext(context.Background(), `INSERT INTO locations (id, name, market_code, storage_capacity, active) VALUES ($1,$2,$3,$4,$5)`,
		l.ID, l.Name, l.MarketCode, l.StorageCapacity, l.Active)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// UpdateLocation updates an existing location.
func (p *Postgres) UpdateLocation(l models.Location) error {
	_, err := p.DB.ExecContext(context.Background(), `UPDATE locations SET name=$1, market_code=$2, storage_capacity=$3, active=$4 WHERE id=$5`,
		l.Name, l.MarketCode, l.StorageCapacity, l.Active, l.ID)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location by ID, first deleting its inventory rows.
func (p *Postgres) DeleteLocation(id string) error {
	_, err := p.DB.ExecContext(context.Background(), `DELETE FROM inventory_levels WHERE location_id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory for location: %w", err)
	}
	_, err = p.DB.ExecContext(context.Background(), `DELETE FROM locations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}

// UpsertInventoryLevel persists the current stock position for a
// (product, location) pair.
func (p *Postgres) UpsertInventoryLevel(lv models.InventoryLevel) error {
	_, err := p.DB.ExecContext(context.Background(), `INSERT INTO inventory_levels (product_id, location_id, on_hand, allocated, average_age_days, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
        ON CONFLICT (product_id, location_id)
        DO UPDATE SET on_hand=$3, allocated=$4, average_age_days=$5, updated_at=NOW()`,
		lv.ProductID, lv.LocationID, lv.OnHand, lv.Allocated, lv.AverageAgeDays)
	if err != nil {
		return fmt.Errorf("upsert inventory level: %w", err)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v > 0}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
