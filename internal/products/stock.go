package products

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
)

// StockShortfall carries the numbers behind an insufficient stock failure.
type StockShortfall struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	Available    int       `json:"available"`
	InCart       int       `json:"in_cart"`
	Requested    int       `json:"requested"`
	Total        int       `json:"total"`
}

// InsufficientStock builds the typed error returned when inCart+requested
// exceeds what the product has available.
func InsufficientStock(product *models.Product, inCart, requested int) *pkgerrors.Error {
	shortfall := StockShortfall{
		ProductID:    product.ID,
		ProductTitle: product.Title,
		Available:    product.Quantity,
		InCart:       inCart,
		Requested:    requested,
		Total:        inCart + requested,
	}

	var msg string
	if inCart > 0 {
		msg = fmt.Sprintf("Insufficient stock for %s. Available: %d, Current in cart: %d, Requested to add: %d, Total would be: %d",
			product.Title, product.Quantity, inCart, requested, shortfall.Total)
	} else {
		msg = fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d",
			product.Title, product.Quantity, requested)
	}

	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(shortfall)
}

// NotFound builds the typed error for a missing product id.
func NotFound(id uuid.UUID) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "Product not found with id: %s", id)
}
