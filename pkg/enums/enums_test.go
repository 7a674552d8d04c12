package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	for _, raw := range []string{"cash", "card"} {
		pm, err := ParsePaymentMethod(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !pm.IsValid() || pm.String() != raw {
			t.Fatalf("unexpected payment method %q", pm)
		}
	}
	if _, err := ParsePaymentMethod("ach"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole(" Admin ")
	if err != nil {
		t.Fatalf("parse admin: %v", err)
	}
	if role != UserRoleAdmin || !role.IsStaff() {
		t.Fatalf("expected staff admin, got %q", role)
	}
	if UserRoleUser.IsStaff() {
		t.Fatal("user role must not be staff")
	}
	if _, err := ParseUserRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestStockStatusFor(t *testing.T) {
	cases := map[int]StockStatus{
		-3: StockStatusNegative,
		0:  StockStatusOutOfStock,
		9:  StockStatusLow,
		10: StockStatusOK,
	}
	for qty, want := range cases {
		if got := StockStatusFor(qty); got != want {
			t.Fatalf("qty %d: expected %s got %s", qty, want, got)
		}
	}
	if got := StockStatusOutOfStock.Label(); got != "OUT" {
		t.Fatalf("expected OUT label, got %s", got)
	}
}
