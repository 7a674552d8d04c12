package enums

// StockStatus classifies a product's available quantity for audits.
type StockStatus string

const (
	StockStatusNegative   StockStatus = "negative"
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusLow        StockStatus = "low"
	StockStatusOK         StockStatus = "ok"
)

// LowStockThreshold is the quantity under which stock is reported as low.
const LowStockThreshold = 10

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// StockStatusFor buckets a quantity.
func StockStatusFor(quantity int) StockStatus {
	switch {
	case quantity < 0:
		return StockStatusNegative
	case quantity == 0:
		return StockStatusOutOfStock
	case quantity < LowStockThreshold:
		return StockStatusLow
	default:
		return StockStatusOK
	}
}

// Label is the short column value used by the stock audit report.
func (s StockStatus) Label() string {
	switch s {
	case StockStatusNegative:
		return "NEGATIVE"
	case StockStatusOutOfStock:
		return "OUT"
	case StockStatusLow:
		return "LOW"
	default:
		return "OK"
	}
}
