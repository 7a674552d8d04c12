package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/eshop-backend/pkg/email"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
	"github.com/angelmondragon/eshop-backend/pkg/metrics"
)

const (
	defaultQueueSize   = 100
	defaultSendTimeout = 10 * time.Second
)

// DispatcherOptions tunes the background email queue.
type DispatcherOptions struct {
	QueueSize   int
	SendTimeout time.Duration
	Metrics     *metrics.EmailMetrics
}

// Dispatcher delivers emails from a bounded queue on a single worker so that
// callers never wait on the transport.
type Dispatcher struct {
	sender  email.Sender
	logg    *logger.Logger
	metrics *metrics.EmailMetrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan email.Message
	done   chan struct{}
}

// NewDispatcher starts the worker goroutine. Close must be called to stop it.
func NewDispatcher(sender email.Sender, opts DispatcherOptions, logg *logger.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	d := &Dispatcher{
		sender:  sender,
		logg:    logg,
		metrics: opts.Metrics,
		timeout: timeout,
		queue:   make(chan email.Message, size),
		done:    make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// Enqueue hands msg to the worker. It returns false when the message was
// dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(ctx context.Context, msg email.Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, msg, "closed")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.drop(ctx, msg, "queue_full")
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be sent or for
// ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg email.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	logCtx := d.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	if err := d.sender.Send(ctx, msg); err != nil {
		d.metrics.IncFailed()
		d.logg.Error(logCtx, "email.send_failed", err)
		return
	}
	d.metrics.IncSent()
	d.logg.Debug(logCtx, "email.sent")
}

func (d *Dispatcher) drop(ctx context.Context, msg email.Message, reason string) {
	d.metrics.IncDropped()
	d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"reason":  reason,
	}), "email.dropped")
}
