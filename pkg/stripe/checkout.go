package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// CheckoutSessionParams describes a single-line hosted payment page.
type CheckoutSessionParams struct {
	LineName          string
	Amount            int64
	CustomerEmail     string
	ClientReferenceID string
	Metadata          map[string]string
}

// CheckoutSession is the subset of a Stripe checkout session the shop keeps.
type CheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	CustomerEmail     string            `json:"customer_email"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// BuildCheckoutSessionParams maps the shop request onto Stripe params.
func (c *Client) BuildCheckoutSessionParams(p CheckoutSessionParams) (*stripe.CheckoutSessionCreateParams, error) {
	if p.Amount <= 0 {
		return nil, errors.New("checkout amount must be positive")
	}
	if strings.TrimSpace(p.ClientReferenceID) == "" {
		return nil, errors.New("client reference id is required")
	}
	name := strings.TrimSpace(p.LineName)
	if name == "" {
		name = "Order"
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(p.ClientReferenceID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(c.currency),
					UnitAmount: stripe.Int64(p.Amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
			},
		},
	}
	if email := strings.TrimSpace(p.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	return params, nil
}

// CreateCheckoutSession opens a hosted checkout session for the given amount.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client is not configured")
	}
	params, err := c.BuildCheckoutSessionParams(p)
	if err != nil {
		return nil, err
	}

	created, err := c.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return FromStripeSession(created), nil
}

// FromStripeSession converts a Stripe checkout session.
func FromStripeSession(s *stripe.CheckoutSession) *CheckoutSession {
	if s == nil {
		return nil
	}
	out := &CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		AmountTotal:       s.AmountTotal,
		Currency:          string(s.Currency),
		CustomerEmail:     s.CustomerEmail,
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	return out
}
