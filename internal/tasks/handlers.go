package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-trainer/internal/common"
)

// Handlers processes payment tasks on the worker side.
type Handlers struct {
	Mail   common.EmailSender
	Logger zerolog.Logger
}

// Register attaches the handlers to the worker mux.
func (h Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePaymentCompleted, h.HandlePaymentCompleted)
	mux.HandleFunc(TypePaymentFailed, h.HandlePaymentFailed)
	mux.HandleFunc(TypePaymentRefunded, h.HandlePaymentRefunded)
}

// HandlePaymentCompleted sends the post-payment notification.
func (h Handlers) HandlePaymentCompleted(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	h.Logger.Info().Str("order_id", p.OrderID).Msg("payment completed task")
	if h.Mail != nil && p.ClientEmail != "" {
		subject := fmt.Sprintf("Payment received for order %s", p.OrderID)
		body := fmt.Sprintf("<p>Payment for order <b>%s</b> was completed.</p>", p.OrderID)
		if err := h.Mail.Send(p.ClientEmail, subject, body); err != nil {
			return fmt.Errorf("tasks: send completion mail: %w", err)
		}
	}
	countTask(t.Type(), "processed")
	return nil
}

// HandlePaymentFailed records the failure for follow-up.
func (h Handlers) HandlePaymentFailed(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	h.Logger.Warn().Str("order_id", p.OrderID).Str("status", p.Status).Msg("payment failed task")
	countTask(t.Type(), "processed")
	return nil
}

// HandlePaymentRefunded records the refund for follow-up.
func (h Handlers) HandlePaymentRefunded(ctx context.Context, t *asynq.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	h.Logger.Info().Str("order_id", p.OrderID).Msg("payment refunded task")
	countTask(t.Type(), "processed")
	return nil
}

func decodePayload(t *asynq.Task) (PaymentPayload, error) {
	var p PaymentPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("tasks: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return p, nil
}
