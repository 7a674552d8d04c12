package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/eshop-backend/pkg/enums"
)

// StockLine is one product row of a stock report.
type StockLine struct {
	ProductID uuid.UUID         `json:"product_id"`
	Title     string            `json:"title"`
	Quantity  int               `json:"quantity"`
	Sold      int               `json:"sold"`
	Status    enums.StockStatus `json:"status"`
}

// StockReport summarizes stock levels across the catalog.
type StockReport struct {
	Lines      []StockLine `json:"lines"`
	Total      int         `json:"total"`
	Negative   int         `json:"negative"`
	OutOfStock int         `json:"out_of_stock"`
	Low        int         `json:"low"`
}

// Auditor reports on and repairs stock levels.
type Auditor struct {
	repo *Repository
}

// NewAuditor builds an auditor over the product repository.
func NewAuditor(repo *Repository) (*Auditor, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &Auditor{repo: repo}, nil
}

// Report classifies every product by stock status.
func (a *Auditor) Report(ctx context.Context) (*StockReport, error) {
	rows, err := a.repo.ListByQuantity(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	report := &StockReport{Lines: make([]StockLine, 0, len(rows)), Total: len(rows)}
	for _, p := range rows {
		status := enums.StockStatusFor(p.Quantity)
		switch status {
		case enums.StockStatusNegative:
			report.Negative++
		case enums.StockStatusOutOfStock:
			report.OutOfStock++
		case enums.StockStatusLow:
			report.Low++
		}
		report.Lines = append(report.Lines, StockLine{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  p.Quantity,
			Sold:      p.Sold,
			Status:    status,
		})
	}
	return report, nil
}

// FixNegative resets negative quantities to zero.
func (a *Auditor) FixNegative(ctx context.Context) (int64, error) {
	n, err := a.repo.ResetNegativeQuantities(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset negative quantities: %w", err)
	}
	return n, nil
}
