package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"StockPulse/internal/domain/models"
	applogger "StockPulse/pkg/logger"

	"github.com/shopspring/decimal"
)

// AnalyzeAll runs independent per-product analyses across a bounded worker
// pool. One product never splits across workers, a failing product does not
// abort the batch, and results are re-sorted by urgency score after the
// pool drains rather than interleaved by completion order.
func (p *InventoryPredictor) AnalyzeAll(ctx context.Context, storeID string, persist bool) (*models.BatchAnalysis, error) {
	products, err := p.repo.ListActiveProducts(ctx, storeID, p.batchLimit)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	jobs := make(chan *models.ProductSnapshot)
	results := make(chan *models.AnalysisResult, len(products))
	var wg sync.WaitGroup

	for w := 0; w < p.batchWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snapshot := range jobs {
				results <- p.AnalyzeProduct(ctx, AnalysisParams{
					ProductID: snapshot.ProductID,
					VariantID: snapshot.VariantID,
					Persist:   persist,
				})
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, snapshot := range products {
			select {
			case jobs <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() { wg.Wait(); close(results) }()

	batch := &models.BatchAnalysis{}
	for res := range results {
		batch.Results = append(batch.Results, res)
		if !res.Success {
			if p.l != nil {
				p.l.Warn("batch item failed",
					applogger.String("product", res.ProductID),
					applogger.String("error", res.Error))
			}
			continue
		}
		batch.AnalyzedProducts++
		switch res.Stockout.Urgency {
		case models.UrgencyCritical:
			batch.CriticalCount++
		case models.UrgencyHigh:
			batch.HighCount++
		}
	}

	sort.SliceStable(batch.Results, func(i, j int) bool {
		return batch.Results[i].Stockout.UrgencyScore > batch.Results[j].Stockout.UrgencyScore
	})
	return batch, nil
}

// GetCriticalItems returns the most urgent analyses (critical and high
// tiers), bounded by limit.
func (p *InventoryPredictor) GetCriticalItems(ctx context.Context, storeID string, limit int) ([]*models.AnalysisResult, error) {
	if limit <= 0 {
		limit = 20
	}
	batch, err := p.AnalyzeAll(ctx, storeID, false)
	if err != nil {
		return nil, err
	}

	var critical []*models.AnalysisResult
	for _, res := range batch.Results {
		if !res.Success {
			continue
		}
		if res.Stockout.Urgency != models.UrgencyCritical && res.Stockout.Urgency != models.UrgencyHigh {
			continue
		}
		critical = append(critical, res)
		if len(critical) == limit {
			break
		}
	}
	return critical, nil
}

// GetRestockReport builds the ops-facing purchase plan over a fresh batch
// analysis.
func (p *InventoryPredictor) GetRestockReport(ctx context.Context, storeID string) (*models.RestockReport, error) {
	batch, err := p.AnalyzeAll(ctx, storeID, false)
	if err != nil {
		return nil, err
	}

	report := &models.RestockReport{
		GeneratedAt:   p.now(),
		ByUrgency:     make(map[models.Urgency]int),
		EstimatedCost: decimal.Zero,
	}

	for _, res := range batch.Results {
		if !res.Success || res.Restock.SuggestedQuantity <= 0 {
			continue
		}
		var price decimal.Decimal
		if snapshot, err := p.repo.GetProductSnapshot(ctx, res.ProductID, res.VariantID); err == nil && snapshot != nil {
			price = snapshot.Price
		}
		cost := price.Mul(decimal.NewFromInt(int64(res.Restock.SuggestedQuantity)))

		report.Items = append(report.Items, models.RestockItem{
			ProductID:         res.ProductID,
			VariantID:         res.VariantID,
			Name:              res.ProductName,
			Category:          res.Category,
			Urgency:           res.Restock.Urgency,
			Priority:          res.Restock.Priority,
			SuggestedQuantity: res.Restock.SuggestedQuantity,
			EstimatedCost:     cost,
			Action:            res.Restock.Action,
		})
		report.TotalItems++
		report.TotalSuggestedUnits += res.Restock.SuggestedQuantity
		report.EstimatedCost = report.EstimatedCost.Add(cost)
		report.ByUrgency[res.Restock.Urgency]++
	}

	if n := report.ByUrgency[models.UrgencyCritical]; n > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d items need immediate restocking", n))
	}
	if n := report.ByUrgency[models.UrgencyHigh]; n > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d items should be ordered within 2-3 days", n))
	}
	if report.TotalItems > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Total purchase plan: %d units across %d items (estimated cost %s)",
				report.TotalSuggestedUnits, report.TotalItems, report.EstimatedCost.StringFixed(2)))
	}
	return report, nil
}
