package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
)

type cartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Count     int             `json:"count"`
}

type cartResponse struct {
	ID                 uuid.UUID          `json:"id"`
	UserID             uuid.UUID          `json:"user_id"`
	Items              []cartItemResponse `json:"items"`
	NumOfCartItems     int                `json:"num_of_cart_items"`
	TotalPrice         decimal.Decimal    `json:"total_price"`
	TotalAfterDiscount *decimal.Decimal   `json:"total_after_discount,omitempty"`
	CouponName         *string            `json:"coupon_name,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type addItemResponse struct {
	Message string       `json:"message"`
	Cart    cartResponse `json:"cart"`
}

func newCartResponse(record *models.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, cartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Color:     item.Color,
			Price:     item.Price,
			Count:     item.Count,
		})
	}
	return cartResponse{
		ID:                 record.ID,
		UserID:             record.UserID,
		Items:              items,
		NumOfCartItems:     len(items),
		TotalPrice:         record.TotalPrice,
		TotalAfterDiscount: record.TotalAfterDiscount,
		CouponName:         record.CouponName,
		UpdatedAt:          record.UpdatedAt,
	}
}
