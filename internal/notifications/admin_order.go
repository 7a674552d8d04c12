package notifications

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/email"
)

// AdminOrderEmail summarizes a new order for the shop administrator. titles
// maps product ids to titles; missing products are listed by id.
func AdminOrderEmail(to string, order *models.Order, buyer *models.User, titles map[uuid.UUID]string) email.Message {
	var b strings.Builder
	b.WriteString("New order received\n")
	fmt.Fprintf(&b, "Order id: %s\n", order.ID)

	name, address, phone := "unknown", "unknown", "N/A"
	if buyer != nil {
		name, address = buyer.Name, buyer.Email
		if buyer.Phone != nil && *buyer.Phone != "" {
			phone = *buyer.Phone
		}
	}
	fmt.Fprintf(&b, "Customer: %s <%s>\n", name, address)
	fmt.Fprintf(&b, "Phone: %s\n", phone)

	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		shipping = []byte("{}")
	}
	fmt.Fprintf(&b, "Shipping: %s\n", shipping)
	fmt.Fprintf(&b, "Total: %s\n", order.TotalPrice.StringFixed(2))
	fmt.Fprintf(&b, "Payment: %s\n", order.PaymentMethod)
	b.WriteString("Items:\n")
	for _, item := range order.Items {
		title, ok := titles[item.ProductID]
		if !ok || title == "" {
			title = item.ProductID.String()
		}
		fmt.Fprintf(&b, "- %s | qty: %d | price: %s\n", title, item.Count, item.Price.StringFixed(2))
	}

	return email.Message{
		To:      to,
		Subject: fmt.Sprintf("New order #%s", order.ID),
		Body:    b.String(),
	}
}
