package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/email"
	"github.com/ErlanBelekov/recircular-api/internal/metrics"
)

const (
	outcomeSent   = "sent"
	outcomeFailed = "failed"
)

// Dispatcher hands messages off for delivery without blocking the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgs ...Message)
}

// Notifier delivers each message on its own goroutine, at most concurrency
// at a time. Delivery failures are logged and counted, never returned.
type Notifier struct {
	sender  email.Sender
	logger  *slog.Logger
	timeout time.Duration
	sem     chan struct{}
	wg      sync.WaitGroup
}

func NewNotifier(sender email.Sender, logger *slog.Logger, concurrency int, timeout time.Duration) *Notifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Notifier{
		sender:  sender,
		logger:  logger.With("component", "notifier"),
		timeout: timeout,
		sem:     make(chan struct{}, concurrency),
	}
}

// Dispatch detaches from ctx's cancellation so a finished HTTP request does
// not abort delivery, but keeps its values for log correlation.
func (n *Notifier) Dispatch(ctx context.Context, msgs ...Message) {
	detached := context.WithoutCancel(ctx)
	for _, msg := range msgs {
		if msg.To == "" {
			continue
		}
		n.wg.Add(1)
		go func(m Message) {
			defer n.wg.Done()
			n.sem <- struct{}{}
			defer func() { <-n.sem }()
			n.deliver(detached, m)
		}(msg)
	}
}

func (n *Notifier) deliver(ctx context.Context, msg Message) {
	metrics.NotificationsInFlight.Inc()
	defer metrics.NotificationsInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationsTotal.WithLabelValues(msg.Kind, outcomeFailed).Inc()
			n.logger.ErrorContext(ctx, "notification panicked", "kind", msg.Kind, "panic", r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	err := n.sender.Send(sendCtx, msg.To, msg.Subject, msg.Body)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(msg.Kind, outcomeFailed).Inc()
		n.logger.WarnContext(ctx, "notification failed", "kind", msg.Kind, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(msg.Kind, outcomeSent).Inc()
	n.logger.DebugContext(ctx, "notification sent", "kind", msg.Kind)
}

var ErrDrainTimeout = errors.New("notifications still in flight")

// Wait blocks until every dispatched message has been attempted or ctx ends.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrDrainTimeout
	}
}
