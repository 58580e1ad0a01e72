package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
)

// SalesHistoryUseCase provides business logic for reading the daily sales
// series behind a product.
type SalesHistoryUseCase struct {
	repo domrepo.Inventory
}

func NewSalesHistoryUseCase(repo domrepo.Inventory) *SalesHistoryUseCase {
	return &SalesHistoryUseCase{repo: repo}
}

type GetSalesHistoryParams struct {
	ProductID string
	VariantID string
	Days      int
}

type GetSalesHistoryResult struct {
	ProductID  string
	VariantID  string
	From       time.Time
	To         time.Time
	Days       int
	TotalUnits int
	Series     models.SalesSeries
}

func (uc *SalesHistoryUseCase) GetSalesHistory(ctx context.Context, p GetSalesHistoryParams) (*GetSalesHistoryResult, error) {
	if p.ProductID == "" {
		return nil, fmt.Errorf("product_id required")
	}
	if p.Days <= 0 {
		p.Days = 90
	}
	if p.Days > 365 {
		p.Days = 365
	}

	series, err := uc.repo.GetSalesSeries(ctx, p.ProductID, p.VariantID, p.Days)
	if err != nil {
		return nil, fmt.Errorf("get sales history: %w", err)
	}

	res := &GetSalesHistoryResult{
		ProductID:  p.ProductID,
		VariantID:  p.VariantID,
		Days:       p.Days,
		TotalUnits: series.TotalUnits(),
		Series:     series,
	}
	if len(series) > 0 {
		res.From = series[0].Date
		res.To = series[len(series)-1].Date
	}
	return res, nil
}
