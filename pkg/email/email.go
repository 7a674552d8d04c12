package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/eshop-backend/pkg/config"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("email recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("email subject is required")
	}
	return nil
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the transport selected by cfg.Driver wrapped in a circuit
// breaker.
func NewSender(cfg config.EmailConfig, logg *logger.Logger) (Sender, error) {
	var transport Sender
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.EmailDriverLog, "":
		transport = NewLogSender(logg)
	case config.EmailDriverSendgrid:
		sg, err := NewSendGridSender(cfg.SendgridAPIKey, cfg.From, cfg.FromName)
		if err != nil {
			return nil, err
		}
		transport = sg
	default:
		return nil, fmt.Errorf("unsupported email driver %q", cfg.Driver)
	}
	return NewBreakerSender(transport, BreakerSettings{
		Name:         "email-" + strings.ToLower(cfg.Driver),
		MaxFailures:  cfg.BreakerFails,
		OpenDuration: cfg.BreakerTimeout,
	}, logg), nil
}

// LogSender writes messages to the structured log instead of delivering them.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
	s.logg.Info(ctx, "email.logged")
	return nil
}
