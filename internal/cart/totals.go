package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/types"
)

// recalculate recomputes TotalPrice from the line items and drops any
// applied coupon. Every item mutation goes through here.
func recalculate(cart *models.Cart) {
	total := decimal.Zero
	for _, item := range cart.Items {
		total = total.Add(item.Subtotal())
	}
	cart.TotalPrice = types.Round2(total)
	cart.TotalAfterDiscount = nil
	cart.CouponName = nil
}

func findLine(items []models.CartItem, productID uuid.UUID, color string) *models.CartItem {
	for i := range items {
		if items[i].ProductID == productID && items[i].Color == color {
			return &items[i]
		}
	}
	return nil
}

func findItem(items []models.CartItem, itemID uuid.UUID) *models.CartItem {
	for i := range items {
		if items[i].ID == itemID {
			return &items[i]
		}
	}
	return nil
}

func withoutItem(items []models.CartItem, itemID uuid.UUID) []models.CartItem {
	out := items[:0]
	for _, item := range items {
		if item.ID != itemID {
			out = append(out, item)
		}
	}
	return out
}
