package notifications

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/enums"
	"github.com/angelmondragon/eshop-backend/pkg/types"
)

func TestAdminOrderEmail(t *testing.T) {
	known, gone := uuid.New(), uuid.New()
	phone := "0100"
	order := &models.Order{
		ID:              uuid.New(),
		TotalPrice:      decimal.RequireFromString("180"),
		PaymentMethod:   enums.PaymentMethodCash,
		ShippingAddress: types.ShippingAddress{City: "Cairo"},
		Items: []models.OrderLineItem{
			{ProductID: known, Count: 2, Price: decimal.NewFromInt(100)},
			{ProductID: gone, Count: 1, Price: decimal.RequireFromString("9.5")},
		},
	}
	buyer := &models.User{Name: "Mona", Email: "mona@example.com", Phone: &phone}

	msg := AdminOrderEmail("admin@example.com", order, buyer, map[uuid.UUID]string{known: "Lamp"})

	if msg.To != "admin@example.com" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	if msg.Subject != "New order #"+order.ID.String() {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{
		"Customer: Mona <mona@example.com>",
		"Phone: 0100",
		`Shipping: {"city":"Cairo"}`,
		"Total: 180.00",
		"Payment: cash",
		"- Lamp | qty: 2 | price: 100.00",
		"- " + gone.String() + " | qty: 1 | price: 9.50",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("expected %q in body:\n%s", want, msg.Body)
		}
	}
}

func TestAdminOrderEmailWithoutPhone(t *testing.T) {
	order := &models.Order{ID: uuid.New(), PaymentMethod: enums.PaymentMethodCard}
	msg := AdminOrderEmail("admin@example.com", order, &models.User{Name: "A", Email: "a@example.com"}, nil)
	if !strings.Contains(msg.Body, "Phone: N/A") {
		t.Fatalf("expected N/A phone, got:\n%s", msg.Body)
	}
}
