package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/demandcast/demandcast/internal/models"
)

// SalesHistory defines the interface for reading and writing demand history.
// Implementations should handle cases where underlying storage is unavailable
// by returning ErrUnavailable.
type SalesHistory interface {
	// RecordSale records a single sales event.
	RecordSale(ctx context.Context, ev SaleEvent) error
	// GetSeries returns the daily demand series for a product and channel
	// over [from, to], aggregated per calendar day and ordered by date.
	GetSeries(ctx context.Context, productID, channelID string, from, to time.Time) (models.TimeSeries, error)
	// GetAnnualDemand returns total units sold per product over the trailing
	// 365 days, across all channels.
	GetAnnualDemand(ctx context.Context) (map[string]float64, error)
}

// ErrUnavailable is returned when the history DB is not configured.
var ErrUnavailable = fmt.Errorf("sales history unavailable")

// SaleEvent mirrors a row in the sales_events table.
type SaleEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	ProductID  string    `json:"product_id"`
	ChannelID  string    `json:"channel_id"`
	LocationID string    `json:"location_id,omitempty"`
	Quantity   float64   `json:"quantity"`
	Revenue    float64   `json:"revenue"`
	UnitPrice  float64   `json:"unit_price"`
}

// History wraps a ClickHouse DB connection holding sales events.
type History struct {
	DB *sql.DB
}

// InitClickHouse connects to ClickHouse and ensures the sales_events table exists.
func InitClickHouse(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*History, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS sales_events (
       timestamp   DateTime,
       product_id  String,
       channel_id  String,
       location_id Nullable(String),
       quantity    Float64,
       revenue     Float64,
       unit_price  Float64
   ) ENGINE=MergeTree() ORDER BY (product_id, channel_id, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &History{DB: db}, nil
}

// RecordSale inserts a single sales event row.
func (h *History) RecordSale(ctx context.Context, ev SaleEvent) error {
	if h == nil || h.DB == nil {
		return ErrUnavailable
	}
	var loc sql.NullString
	if ev.LocationID != "" {
		loc.String = ev.LocationID
		loc.Valid = true
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	stmt := `INSERT INTO sales_events (timestamp, product_id, channel_id, location_id, quantity, revenue, unit_price) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := h.DB.ExecContext(ctx, stmt, ts, ev.ProductID, ev.ChannelID, loc, ev.Quantity, ev.Revenue, ev.UnitPrice); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("product_id", ev.ProductID))
		return fmt.Errorf("insert sale event: %w", err)
	}
	return nil
}

// GetSeries returns the daily demand series for a product and channel.
// Days with no sales are absent from the result; the series carries only
// observed days, ordered by date.
func (h *History) GetSeries(ctx context.Context, productID, channelID string, from, to time.Time) (models.TimeSeries, error) {
	if h == nil || h.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT toDate(timestamp) AS day, sum(quantity) AS demand, sum(revenue) AS revenue, avg(unit_price) AS unit_price
        FROM sales_events
        WHERE product_id=? AND channel_id=? AND timestamp >= ? AND timestamp < ?
        GROUP BY day ORDER BY day`
	rows, err := h.DB.QueryContext(ctx, query, productID, channelID, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("query sales series: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var series models.TimeSeries
	for rows.Next() {
		var pt models.DataPoint
		if err := rows.Scan(&pt.Date, &pt.Demand, &pt.Revenue, &pt.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		series = append(series, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return series, nil
}

// GetAnnualDemand returns total units sold per product over the trailing 365 days.
func (h *History) GetAnnualDemand(ctx context.Context) (map[string]float64, error) {
	if h == nil || h.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT product_id, sum(quantity) FROM sales_events WHERE timestamp >= now() - INTERVAL 365 DAY GROUP BY product_id`
	rows, err := h.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query annual demand: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	demand := make(map[string]float64)
	for rows.Next() {
		var pid string
		var qty float64
		if err := rows.Scan(&pid, &qty); err != nil {
			return nil, fmt.Errorf("scan annual demand: %w", err)
		}
		demand[pid] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return demand, nil
}

// Close terminates the ClickHouse connection.
func (h *History) Close() {
	if h != nil && h.DB != nil {
		if err := h.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
