package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	applogger "StockPulse/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	eventsTable      = "stockpulse.order_events_raw"
	productsTable    = "stockpulse.products"
	predictionsTable = "stockpulse.inventory_predictions"
)

// CHInventory implements Inventory backed by ClickHouse, with an optional
// cache in front of the snapshot and category-average lookups. Sales series
// are always read from ClickHouse: they feed forecasts and must be fresh.
type CHInventory struct {
	db          *sql.DB
	cache       cache.Service
	snapshotTTL time.Duration
	categoryTTL time.Duration
	l           *applogger.Logger
}

func NewCHInventory(ch *pkgch.Client) *CHInventory {
	return &CHInventory{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHInventory) SetLogger(l *applogger.Logger) { s.l = l }

// SetCache puts a cache in front of snapshot and category-average reads.
func (s *CHInventory) SetCache(c cache.Service, snapshotTTL, categoryTTL time.Duration) {
	s.cache = c
	s.snapshotTTL = snapshotTTL
	s.categoryTTL = categoryTTL
}

// GetSalesSeries aggregates order events into a gap-free daily series of the
// trailing window. Days with no events come back zero-filled so downstream
// velocity math sees the true calendar, not just active days.
func (s *CHInventory) GetSalesSeries(ctx context.Context, productID, variantID string, days int) (models.SalesSeries, error) {
	started := time.Now()
	if days <= 0 {
		days = 1
	}
	end := models.Midnight(time.Now().UTC())
	start := end.AddDate(0, 0, -(days - 1))

	const qtpl = `
        SELECT toStartOfDay(ts) AS day,
               toInt64(sumIf(quantity, type = 'sale')) AS units,
               toInt64(sumIf(quantity, type = 'return')) AS returns,
               sumIf(quantity * unit_price, type = 'sale') AS revenue
        FROM %s
        WHERE product_id = ? AND (? = '' OR variant_id = ?)
          AND ts >= ? AND ts < ?
        GROUP BY day
        ORDER BY day ASC
    `
	q := fmt.Sprintf(qtpl, eventsTable)
	rows, err := s.db.QueryContext(ctx, q, productID, variantID, variantID, start, end.AddDate(0, 0, 1))
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse sales_series query error",
				applogger.String("product", productID),
				applogger.String("variant", variantID),
				applogger.Int("days", days),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get sales series: %w", err)
	}
	defer rows.Close()

	byDay := make(map[time.Time]models.SalesPoint, days)
	for rows.Next() {
		var (
			day            time.Time
			units, returns int64
			revenue        float64
		)
		if err := rows.Scan(&day, &units, &returns, &revenue); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse sales_series scan error",
					applogger.String("product", productID),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan sales day: %w", err)
		}
		day = models.Midnight(day.UTC())
		byDay[day] = models.SalesPoint{
			Date:         day,
			UnitsSold:    int(units),
			ReturnsCount: int(returns),
			Revenue:      decimal.NewFromFloat(revenue),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	series := models.BuildDailySeries(byDay, start, end)
	if s.l != nil {
		s.l.Info("clickhouse sales_series ok",
			applogger.String("product", productID),
			applogger.Int("days", days),
			applogger.Int("nonzero_days", len(byDay)),
			applogger.Duration("duration_ms", time.Since(started)),
		)
	}
	return series, nil
}

// GetProductSnapshot returns nil, nil when the product is unknown.
func (s *CHInventory) GetProductSnapshot(ctx context.Context, productID, variantID string) (*models.ProductSnapshot, error) {
	key := cache.GenerateKeyWithParams("snapshot", productID, variantID)
	if s.cache != nil {
		var cached models.ProductSnapshot
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	const qtpl = `
        SELECT product_id, variant_id, name, store_id, category, pet_types,
               price, current_stock, reserved_stock, low_stock_threshold,
               is_perishable, shelf_life, expiry_date, is_active, price_change_pct
        FROM %s
        WHERE product_id = ? AND (? = '' OR variant_id = ?)
        ORDER BY updated_at DESC
        LIMIT 1
    `
	q := fmt.Sprintf(qtpl, productsTable)
	row := s.db.QueryRowContext(ctx, q, productID, variantID, variantID)

	snap, err := scanSnapshot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse snapshot error",
				applogger.String("product", productID),
				applogger.String("variant", variantID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get product snapshot: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snap, s.snapshotTTL); err != nil && s.l != nil {
			s.l.Warn("snapshot cache set failed", applogger.Error(err))
		}
	}
	return snap, nil
}

// GetCategoryAverageSales computes the mean daily units sold per product
// across the category, used to seed forecasts for products without history.
func (s *CHInventory) GetCategoryAverageSales(ctx context.Context, category, petType string, days int) (*models.CategoryAverage, error) {
	if days <= 0 {
		days = 1
	}
	key := cache.GenerateKeyWithParams("category_avg", category, petType, days)
	if s.cache != nil {
		var cached models.CategoryAverage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	const qtpl = `
        SELECT count() AS products, avg(total_units) AS avg_units
        FROM (
            SELECT p.product_id, toFloat64(sumIf(e.quantity, e.type = 'sale')) AS total_units
            FROM %s AS p
            LEFT JOIN %s AS e
                ON e.product_id = p.product_id AND e.ts >= ?
            WHERE p.category = ? AND p.is_active = 1
              AND (? = '' OR position(p.pet_types, ?) > 0)
            GROUP BY p.product_id
        )
    `
	q := fmt.Sprintf(qtpl, productsTable, eventsTable)

	var (
		products int64
		avgUnits float64
	)
	err := s.db.QueryRowContext(ctx, q, since, category, petType, petType).Scan(&products, &avgUnits)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse category_avg error",
				applogger.String("category", category),
				applogger.String("pet_type", petType),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get category average: %w", err)
	}

	avg := &models.CategoryAverage{
		DailyAveragePerProduct: avgUnits / float64(days),
		SampleSize:             int(products),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, avg, s.categoryTTL); err != nil && s.l != nil {
			s.l.Warn("category_avg cache set failed", applogger.Error(err))
		}
	}
	return avg, nil
}

func (s *CHInventory) ListActiveProducts(ctx context.Context, storeID string, limit int) ([]*models.ProductSnapshot, error) {
	started := time.Now()
	const qtpl = `
        SELECT product_id, variant_id, name, store_id, category, pet_types,
               price, current_stock, reserved_stock, low_stock_threshold,
               is_perishable, shelf_life, expiry_date, is_active, price_change_pct
        FROM %s
        WHERE is_active = 1 AND (? = '' OR store_id = ?)
        ORDER BY product_id, variant_id
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, productsTable)
	rows, err := s.db.QueryContext(ctx, q, storeID, storeID, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_products query error",
				applogger.String("store", storeID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ProductSnapshot, 0, 64)
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse list_products ok",
			applogger.String("store", storeID),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(started)),
		)
	}
	return out, nil
}

// scanSnapshot maps one products row onto the domain snapshot. pet_types is
// stored as a comma-joined string, booleans as UInt8.
func scanSnapshot(scan func(dest ...any) error) (*models.ProductSnapshot, error) {
	var (
		snap       models.ProductSnapshot
		petTypes   string
		price      float64
		perishable uint8
		active     uint8
		expiry     sql.NullTime
	)
	if err := scan(
		&snap.ProductID, &snap.VariantID, &snap.Name, &snap.StoreID,
		&snap.Category, &petTypes, &price, &snap.CurrentStock,
		&snap.ReservedStock, &snap.LowStockThreshold, &perishable,
		&snap.ShelfLife, &expiry, &active, &snap.PriceChangePct,
	); err != nil {
		return nil, err
	}
	if petTypes != "" {
		for _, t := range strings.Split(petTypes, ",") {
			if t = strings.TrimSpace(t); t != "" {
				snap.PetTypes = append(snap.PetTypes, t)
			}
		}
	}
	snap.Price = decimal.NewFromFloat(price)
	snap.IsPerishable = perishable == 1
	snap.IsActive = active == 1
	if expiry.Valid {
		t := expiry.Time.UTC()
		snap.ExpiryDate = &t
	}
	return &snap, nil
}
