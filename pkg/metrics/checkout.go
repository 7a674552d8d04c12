package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics tracks order creation and inventory debit outcomes.
type CheckoutMetrics struct {
	created  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	clamped  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created by payment method.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Checkouts rejected before an order was written.",
	}, []string{"reason"})
	clamped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_clamped_total",
		Help: "Inventory debits floored at zero.",
	})
	reg.MustRegister(created, rejected, clamped)
	return &CheckoutMetrics{
		created:  created,
		rejected: rejected,
		clamped:  clamped,
	}
}

func (c *CheckoutMetrics) IncCreated(paymentMethod string) {
	if c == nil || c.created == nil {
		return
	}
	c.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (c *CheckoutMetrics) IncRejected(reason string) {
	if c == nil || c.rejected == nil {
		return
	}
	c.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (c *CheckoutMetrics) IncClamped() {
	if c == nil || c.clamped == nil {
		return
	}
	c.clamped.Inc()
}
