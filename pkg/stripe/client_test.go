package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/eshop-backend/pkg/config"
)

func TestNewClientValidatesEnvironmentAndKeys(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.StripeConfig
		ok   bool
	}{
		{"missing key", config.StripeConfig{Secret: "whsec"}, false},
		{"missing secret", config.StripeConfig{APIKey: "sk_test_1"}, false},
		{"live key in test", config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec"}, false},
		{"bad env", config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec", Env: "staging"}, false},
		{"test ok", config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec"}, true},
		{"live ok", config.StripeConfig{APIKey: "rk_live_1", Secret: "whsec", Env: "LIVE"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(ctx, tc.cfg, nil)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildCheckoutSessionParams(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:     "sk_test_1",
		Secret:     "whsec",
		SuccessURL: "https://shop.example/orders",
		CancelURL:  "https://shop.example/cart",
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	params, err := client.BuildCheckoutSessionParams(CheckoutSessionParams{
		LineName:          "Mona",
		Amount:            18000,
		CustomerEmail:     "mona@example.com",
		ClientReferenceID: "cart-1",
		Metadata:          map[string]string{"city": "Cairo"},
	})
	if err != nil {
		t.Fatalf("build params: %v", err)
	}
	if *params.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode %s", *params.Mode)
	}
	if *params.ClientReferenceID != "cart-1" || *params.CustomerEmail != "mona@example.com" {
		t.Fatalf("unexpected correlation fields")
	}
	line := params.LineItems[0]
	if *line.PriceData.UnitAmount != 18000 || *line.PriceData.Currency != "egp" || *line.Quantity != 1 {
		t.Fatalf("unexpected line item %+v", line.PriceData)
	}
	if params.Metadata["city"] != "Cairo" {
		t.Fatalf("expected shipping metadata, got %v", params.Metadata)
	}
	if *params.SuccessURL != "https://shop.example/orders" {
		t.Fatalf("unexpected success url %s", *params.SuccessURL)
	}

	if _, err := client.BuildCheckoutSessionParams(CheckoutSessionParams{ClientReferenceID: "c"}); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestFromStripeSessionFallsBackToCustomerDetails(t *testing.T) {
	got := FromStripeSession(&stripe.CheckoutSession{
		ID:                "cs_1",
		AmountTotal:       500,
		ClientReferenceID: "cart",
		CustomerDetails:   &stripe.CheckoutSessionCustomerDetails{Email: "x@example.com"},
	})
	if got.CustomerEmail != "x@example.com" || got.AmountTotal != 500 {
		t.Fatalf("unexpected session %+v", got)
	}
	if FromStripeSession(nil) != nil {
		t.Fatal("expected nil for nil session")
	}
}

func TestCreateCheckoutSessionUsesConfiguredClient(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_1" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{
			"client_reference_id": r.PostForm.Get("client_reference_id"),
			"unit_amount":         r.PostForm.Get("line_items[0][price_data][unit_amount]"),
			"currency":            r.PostForm.Get("line_items[0][price_data][currency]"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","amount_total":18000,"currency":"egp","client_reference_id":"cart-1","customer_email":"mona@example.com"}`))
	}))
	t.Cleanup(srv.Close)

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:   "sk_test_1",
		Secret:   "whsec",
		Currency: "EGP",
	}, nil, stripe.WithBackends(backends))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		LineName:          "Mona",
		Amount:            18000,
		CustomerEmail:     "mona@example.com",
		ClientReferenceID: "cart-1",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != "cs_test_1" || session.AmountTotal != 18000 || session.ClientReferenceID != "cart-1" {
		t.Fatalf("unexpected session %+v", session)
	}
	if form["client_reference_id"] != "cart-1" || form["unit_amount"] != "18000" || form["currency"] != "egp" {
		t.Fatalf("unexpected form %v", form)
	}
	if stripe.Key != "" {
		t.Fatal("package-level stripe key must stay unset")
	}
}

func TestCreateCheckoutSessionRequiresClient(t *testing.T) {
	var client *Client
	if _, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{Amount: 1, ClientReferenceID: "c"}); err == nil {
		t.Fatal("expected error for nil client")
	}
}
