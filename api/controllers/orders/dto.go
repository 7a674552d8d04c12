package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/enums"
	pkgstripe "github.com/angelmondragon/eshop-backend/pkg/stripe"
	"github.com/angelmondragon/eshop-backend/pkg/types"
)

// checkoutRequest is the optional body of cash orders and checkout sessions.
type checkoutRequest struct {
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
}

type orderLineItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Count     int             `json:"count"`
}

type orderResponse struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uuid.UUID               `json:"user_id"`
	Items           []orderLineItemResponse `json:"items"`
	ShippingAddress types.ShippingAddress   `json:"shipping_address"`
	TaxPrice        decimal.Decimal         `json:"tax_price"`
	ShippingPrice   decimal.Decimal         `json:"shipping_price"`
	TotalPrice      decimal.Decimal         `json:"total_price"`
	PaymentMethod   enums.PaymentMethod     `json:"payment_method"`
	IsPaid          bool                    `json:"is_paid"`
	PaidAt          *time.Time              `json:"paid_at,omitempty"`
	IsDelivered     bool                    `json:"is_delivered"`
	DeliveredAt     *time.Time              `json:"delivered_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type sessionResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	CartID      string `json:"cart_id"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderLineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderLineItemResponse{
			ProductID: item.ProductID,
			Color:     item.Color,
			Price:     item.Price,
			Count:     item.Count,
		})
	}
	return orderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		TaxPrice:        order.TaxPrice,
		ShippingPrice:   order.ShippingPrice,
		TotalPrice:      order.TotalPrice,
		PaymentMethod:   order.PaymentMethod,
		IsPaid:          order.IsPaid,
		PaidAt:          order.PaidAt,
		IsDelivered:     order.IsDelivered,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
	}
}

func newSessionResponse(session *pkgstripe.CheckoutSession) sessionResponse {
	return sessionResponse{
		ID:          session.ID,
		URL:         session.URL,
		AmountTotal: session.AmountTotal,
		Currency:    session.Currency,
		CartID:      session.ClientReferenceID,
	}
}
