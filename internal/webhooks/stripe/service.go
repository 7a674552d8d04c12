package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/eshop-backend/internal/checkout"
	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/eshop-backend/pkg/stripe"
	"github.com/angelmondragon/eshop-backend/pkg/types"
)

type checkoutCompleter interface {
	CompleteCardCheckout(ctx context.Context, payment checkout.CardPayment) (*models.Order, error)
}

type ServiceParams struct {
	Checkout checkoutCompleter
	Logger   *logger.Logger
}

// Service turns verified Stripe events into shop state changes.
type Service struct {
	checkout checkoutCompleter
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		checkout: params.Checkout,
		logg:     params.Logger,
	}, nil
}

// HandleEvent processes one event. Events the shop does not act on are
// acknowledged without work. A returned error means the event should be
// retried by the sender.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.completeCheckout(ctx, pkgstripe.FromStripeSession(&session))
	default:
		s.logg.Debug(ctx, "stripe.event_ignored")
		return nil
	}
}

func (s *Service) completeCheckout(ctx context.Context, session *pkgstripe.CheckoutSession) error {
	ctx = s.logg.WithField(ctx, "checkout_session_id", session.ID)

	cartID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		s.logg.Error(ctx, "stripe.checkout_invalid_cart_reference", err)
		return nil
	}

	order, err := s.checkout.CompleteCardCheckout(ctx, checkout.CardPayment{
		SessionID:     session.ID,
		CartID:        cartID,
		CustomerEmail: session.CustomerEmail,
		AmountTotal:   session.AmountTotal,
		Shipping:      types.ShippingAddressFromMetadata(session.Metadata),
	})
	if err != nil {
		if isTerminal(err) {
			s.logg.Error(s.logg.WithField(ctx, "cart_id", cartID.String()), "stripe.checkout_completion_rejected", err)
			return nil
		}
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "stripe.checkout_completed")
	return nil
}

// isTerminal reports failures that a redelivery of the same event cannot fix.
func isTerminal(err error) bool {
	for _, code := range []pkgerrors.Code{
		pkgerrors.CodeNotFound,
		pkgerrors.CodeInsufficientStock,
		pkgerrors.CodeValidation,
		pkgerrors.CodeInvalidQuantity,
	} {
		if pkgerrors.HasCode(err, code) {
			return true
		}
	}
	return false
}
