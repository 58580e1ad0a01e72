package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the read-only inventory state of a product (or one of
// its variants) at analysis time. Owned by the repository layer.
type ProductSnapshot struct {
	ProductID         string
	VariantID         string
	Name              string
	StoreID           string
	Category          string
	PetTypes          []string
	Price             decimal.Decimal
	CurrentStock      int
	ReservedStock     int
	LowStockThreshold int
	IsPerishable      bool
	ShelfLife         string // e.g. "6 months", "30 days"
	ExpiryDate        *time.Time
	IsActive          bool
	PriceChangePct    float64 // recent price move, for the optional price-impact adjustment
}

// AvailableStock is stock that can actually be sold.
func (p *ProductSnapshot) AvailableStock() int {
	avail := p.CurrentStock - p.ReservedStock
	if avail < 0 {
		return 0
	}
	return avail
}

// PetType returns the primary pet type tag, or "" when untagged.
func (p *ProductSnapshot) PetType() string {
	if len(p.PetTypes) == 0 {
		return ""
	}
	return p.PetTypes[0]
}

// ShelfLifeDays normalizes the shelf-life declaration to days. Prefers an
// explicit expiry date over the duration string. Returns 0 when the product
// carries no usable shelf-life information.
func (p *ProductSnapshot) ShelfLifeDays(now time.Time) int {
	if p.ExpiryDate != nil {
		d := int(p.ExpiryDate.Sub(now).Hours() / 24)
		if d < 0 {
			return 0
		}
		return d
	}
	s := strings.ToLower(strings.TrimSpace(p.ShelfLife))
	if s == "" {
		return 0
	}
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0
	}
	switch {
	case strings.HasPrefix(fields[1], "month"):
		return n * 30
	case strings.HasPrefix(fields[1], "week"):
		return n * 7
	case strings.HasPrefix(fields[1], "day"):
		return n
	case strings.HasPrefix(fields[1], "year"):
		return n * 365
	}
	return 0
}

// OrderEvent is a single sale or return observed on the order feed.
type OrderEvent struct {
	EventID   string          `json:"event_id"`
	StoreID   string          `json:"store_id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Type      string          `json:"type"` // "sale" | "return"
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Timestamp int64           `json:"timestamp"` // unix seconds
}

// IsReturn reports whether the event undoes prior sales.
func (e *OrderEvent) IsReturn() bool { return e.Type == "return" }
