package metrics

import "github.com/prometheus/client_golang/prometheus"

// EmailMetrics counts notification delivery outcomes.
type EmailMetrics struct {
	sent    prometheus.Counter
	failed  prometheus.Counter
	dropped prometheus.Counter
}

// NewEmailMetrics registers the email metrics on the provided registerer.
func NewEmailMetrics(reg prometheus.Registerer) *EmailMetrics {
	if reg == nil {
		return &EmailMetrics{}
	}
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Emails handed to the transport successfully.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emails_failed_total",
		Help: "Emails the transport rejected.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emails_dropped_total",
		Help: "Emails dropped because the queue was full or closed.",
	})
	reg.MustRegister(sent, failed, dropped)
	return &EmailMetrics{
		sent:    sent,
		failed:  failed,
		dropped: dropped,
	}
}

func (e *EmailMetrics) IncSent() {
	if e == nil || e.sent == nil {
		return
	}
	e.sent.Inc()
}

func (e *EmailMetrics) IncFailed() {
	if e == nil || e.failed == nil {
		return
	}
	e.failed.Inc()
}

func (e *EmailMetrics) IncDropped() {
	if e == nil || e.dropped == nil {
		return
	}
	e.dropped.Inc()
}

// Failed exposes the failure counter for assertions.
func (e *EmailMetrics) Failed() prometheus.Counter { return e.failed }

// Dropped exposes the drop counter for assertions.
func (e *EmailMetrics) Dropped() prometheus.Counter { return e.dropped }
