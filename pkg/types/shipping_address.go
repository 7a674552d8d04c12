package types

import "strings"

// ShippingAddress is the free-form delivery address captured at checkout. It is
// persisted as a JSON column and forwarded as checkout session metadata.
type ShippingAddress struct {
	Details    string `json:"details,omitempty" validate:"omitempty,max=500"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,max=32"`
	City       string `json:"city,omitempty" validate:"omitempty,max=120"`
	PostalCode string `json:"postalCode,omitempty" validate:"omitempty,max=20"`
}

// IsZero reports whether no field was supplied.
func (a ShippingAddress) IsZero() bool {
	return strings.TrimSpace(a.Details) == "" &&
		strings.TrimSpace(a.Phone) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}

// Metadata flattens the address into string pairs.
func (a ShippingAddress) Metadata() map[string]string {
	out := map[string]string{}
	if a.Details != "" {
		out["details"] = a.Details
	}
	if a.Phone != "" {
		out["phone"] = a.Phone
	}
	if a.City != "" {
		out["city"] = a.City
	}
	if a.PostalCode != "" {
		out["postalCode"] = a.PostalCode
	}
	return out
}

// ShippingAddressFromMetadata is the inverse of Metadata.
func ShippingAddressFromMetadata(md map[string]string) ShippingAddress {
	return ShippingAddress{
		Details:    md["details"],
		Phone:      md["phone"],
		City:       md["city"],
		PostalCode: md["postalCode"],
	}
}
