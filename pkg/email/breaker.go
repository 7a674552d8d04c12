package email

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/eshop-backend/pkg/logger"
)

// BreakerSettings configures the circuit breaker around a transport.
type BreakerSettings struct {
	Name         string
	MaxFailures  uint32
	OpenDuration time.Duration
}

// BreakerSender stops calling the transport after MaxFailures consecutive
// errors until OpenDuration has passed.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerSender(next Sender, settings BreakerSettings, logg *logger.Logger) *BreakerSender {
	if logg == nil {
		logg = logger.Nop()
	}
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := settings.OpenDuration
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    settings.Name,
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "email.breaker_state_changed")
		},
	})
	return &BreakerSender{next: next, cb: cb}
}

func (b *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, msg)
	})
	return err
}

// State reports the breaker state, mostly for tests and health output.
func (b *BreakerSender) State() gobreaker.State {
	return b.cb.State()
}
