package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/eshop-backend/api/middleware"
	"github.com/angelmondragon/eshop-backend/api/responses"
	"github.com/angelmondragon/eshop-backend/api/validators"
	"github.com/angelmondragon/eshop-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
)

// CreateCashOrder converts the caller's cart into an unpaid cash order.
func CreateCashOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, cartID, payload, err := parseCheckoutRequest(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceCashOrder(r.Context(), userID, cartID, payload.ShippingAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// CheckoutSession opens a hosted card checkout for the caller's cart.
// The shipping address is optional and travels as session metadata.
func CheckoutSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, cartID, payload, err := parseCheckoutRequest(r, "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateSession(r.Context(), userID, cartID, payload.ShippingAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// parseCheckoutRequest reads the cart id from the named URL parameter. The
// cash order route shares its position with /orders/{id}.
func parseCheckoutRequest(r *http.Request, cartParam string) (uuid.UUID, uuid.UUID, checkoutRequest, error) {
	var payload checkoutRequest
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, payload, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	cartID, err := validators.ParseUUIDParam(r, cartParam)
	if err != nil {
		return uuid.Nil, uuid.Nil, payload, err
	}
	if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
		return uuid.Nil, uuid.Nil, payload, err
	}
	payload.ShippingAddress.Details = validators.SanitizeString(payload.ShippingAddress.Details, 500)
	payload.ShippingAddress.Phone = validators.SanitizeString(payload.ShippingAddress.Phone, 32)
	payload.ShippingAddress.City = validators.SanitizeString(payload.ShippingAddress.City, 120)
	payload.ShippingAddress.PostalCode = validators.SanitizeString(payload.ShippingAddress.PostalCode, 20)
	return userID, cartID, payload, nil
}
