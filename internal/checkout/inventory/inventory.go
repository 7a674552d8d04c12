// Package inventory checks and debits product stock for checkout. All calls
// take the transaction the order is written in.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshop-backend/internal/products"
	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
)

// Line is a product quantity requested by an order.
type Line struct {
	ProductID uuid.UUID
	Count     int
}

// DebitResult reports one product debit.
type DebitResult struct {
	ProductID  uuid.UUID
	Debited    int
	Clamped    bool
	OutOfStock bool
}

// Mode selects how Debit behaves when stock ran out since verification.
type Mode int

const (
	// ModeConditional rejects the debit when quantity < count.
	ModeConditional Mode = iota
	// ModeClamp floors quantity at zero and always records the sale.
	ModeClamp
)

// Ledger verifies and debits product stock.
type Ledger struct {
	mode Mode
}

func NewLedger(mode Mode) *Ledger {
	return &Ledger{mode: mode}
}

// Mode reports the configured debit mode.
func (l *Ledger) Mode() Mode {
	return l.mode
}

// Merge folds lines for the same product together, keeping first-seen order.
func Merge(lines []Line) []Line {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			out[i].Count += line.Count
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}

// Verify re-reads every product and fails with NotFound or InsufficientStock.
func (l *Ledger) Verify(ctx context.Context, tx *gorm.DB, lines []Line) (map[uuid.UUID]models.Product, error) {
	merged := Merge(lines)
	ids := make([]uuid.UUID, len(merged))
	for i, line := range merged {
		ids[i] = line.ProductID
	}

	found, err := products.NewRepository(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	for _, line := range merged {
		product, ok := found[line.ProductID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Product %s not found", line.ProductID)
		}
		if line.Count > product.Quantity {
			return nil, products.InsufficientStock(&product, 0, line.Count)
		}
	}
	return found, nil
}

// Debit subtracts each line from available stock and adds it to sold.
func (l *Ledger) Debit(ctx context.Context, tx *gorm.DB, lines []Line) ([]DebitResult, error) {
	merged := Merge(lines)
	results := make([]DebitResult, 0, len(merged))
	for _, line := range merged {
		if line.Count <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidQuantity, "Invalid quantity: %d. Quantity must be greater than 0", line.Count)
		}
		var (
			res DebitResult
			err error
		)
		switch l.mode {
		case ModeClamp:
			res, err = debitClamped(ctx, tx, line)
		default:
			res, err = debitConditional(ctx, tx, line)
		}
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func debitConditional(ctx context.Context, tx *gorm.DB, line Line) (DebitResult, error) {
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", line.ProductID, line.Count).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity - ?", line.Count),
			"sold":     gorm.Expr("sold + ?", line.Count),
		})
	if res.Error != nil {
		return DebitResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "debit inventory")
	}
	if res.RowsAffected == 0 {
		return DebitResult{}, shortfall(ctx, tx, line)
	}
	remaining, err := quantityOf(ctx, tx, line.ProductID)
	if err != nil {
		return DebitResult{}, err
	}
	return DebitResult{ProductID: line.ProductID, Debited: line.Count, OutOfStock: remaining == 0}, nil
}

func debitClamped(ctx context.Context, tx *gorm.DB, line Line) (DebitResult, error) {
	before, err := quantityOf(ctx, tx, line.ProductID)
	if err != nil {
		return DebitResult{}, err
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", line.ProductID).
		Updates(map[string]any{
			"quantity": gorm.Expr("CASE WHEN quantity - ? < 0 THEN 0 ELSE quantity - ? END", line.Count, line.Count),
			"sold":     gorm.Expr("sold + ?", line.Count),
		})
	if res.Error != nil {
		return DebitResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "debit inventory")
	}
	if res.RowsAffected == 0 {
		return DebitResult{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "Product %s not found", line.ProductID)
	}
	return DebitResult{
		ProductID:  line.ProductID,
		Debited:    line.Count,
		Clamped:    before < line.Count,
		OutOfStock: before <= line.Count,
	}, nil
}

// shortfall explains why a conditional debit matched no row.
func shortfall(ctx context.Context, tx *gorm.DB, line Line) error {
	product, err := products.NewRepository(tx).FindByID(ctx, line.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "Product %s not found", line.ProductID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return products.InsufficientStock(product, 0, line.Count)
}

func quantityOf(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int, error) {
	var quantity int
	res := tx.WithContext(ctx).Model(&models.Product{}).Select("quantity").Where("id = ?", id).Scan(&quantity)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "read product quantity")
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeNotFound, "Product %s not found", id)
	}
	return quantity, nil
}

// String implements fmt.Stringer for log fields.
func (m Mode) String() string {
	switch m {
	case ModeClamp:
		return "clamp"
	case ModeConditional:
		return "conditional"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
