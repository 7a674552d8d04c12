package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/eshop-backend/api/validators"
	cartsvc "github.com/angelmondragon/eshop-backend/internal/cart"
)

const maxColorLen = 64

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Color     string `json:"color" validate:"omitempty,max=64"`
	Count     *int   `json:"count" validate:"omitempty,max=999"`
}

func (r addItemRequest) toInput() cartsvc.AddItemInput {
	count := 1
	if r.Count != nil {
		count = *r.Count
	}
	return cartsvc.AddItemInput{
		ProductID: uuid.MustParse(r.ProductID),
		Color:     validators.SanitizeString(r.Color, maxColorLen),
		Count:     count,
	}
}

type updateItemRequest struct {
	Count *int `json:"count" validate:"required,max=999"`
}

type applyCouponRequest struct {
	Coupon string `json:"coupon" validate:"required,max=64"`
}
