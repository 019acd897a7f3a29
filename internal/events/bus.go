// Package events fans payment lifecycle changes out to interested side
// effects such as background task queues.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Topics emitted after a webhook lands a status change.
const (
	TopicPaymentCompleted = "payment.completed"
	TopicPaymentFailed    = "payment.failed"
	TopicPaymentRefunded  = "payment.refunded"
)

// Event describes one payment lifecycle change.
type Event struct {
	Topic       string          `json:"topic"`
	OrderID     string          `json:"order_id"`
	PaymentID   string          `json:"payment_id"`
	Status      string          `json:"status"`
	ClientEmail string          `json:"client_email,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Notifier reacts to an emitted event.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Bus delivers every event to every notifier. Notifier failures do not stop
// delivery to the rest.
type Bus struct {
	Notifiers []Notifier
}

// Emit delivers the event to all notifiers and joins their errors.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	if b == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	var errs []error
	for _, n := range b.Notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes every event to the application log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("topic", ev.Topic).
		Str("order_id", ev.OrderID).
		Str("payment_id", ev.PaymentID).
		Str("status", ev.Status).
		Msg("payment event")
	return nil
}
