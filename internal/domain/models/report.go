package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestockItem is one line of the restock report.
type RestockItem struct {
	ProductID         string
	VariantID         string
	Name              string
	Category          string
	Urgency           Urgency
	Priority          int
	SuggestedQuantity int
	EstimatedCost     decimal.Decimal
	Action            string
}

// RestockReport is the ops-facing purchase plan built from a batch analysis.
type RestockReport struct {
	GeneratedAt         time.Time
	TotalItems          int
	TotalSuggestedUnits int
	EstimatedCost       decimal.Decimal
	ByUrgency           map[Urgency]int
	Items               []RestockItem
	Recommendations     []string
}
