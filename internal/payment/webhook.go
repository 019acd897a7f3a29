package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-trainer/internal/audit"
	"github.com/noah-isme/backend-trainer/internal/common"
	"github.com/noah-isme/backend-trainer/internal/events"
	"github.com/noah-isme/backend-trainer/internal/liqpay"
	"github.com/noah-isme/backend-trainer/internal/obs"
)

// Webhook receives LiqPay server callbacks, verifies them and applies the
// resulting status change. Every attempt, accepted or rejected, is written
// to the audit trail.
type Webhook struct {
	Codec  liqpay.Client
	Store  Gateway
	Audit  audit.Recorder
	Bus    *events.Bus
	Logger zerolog.Logger

	// AllowTestSignatures skips signature verification for signatures with
	// the test prefix. Off by default and meant for local sandboxes only.
	AllowTestSignatures bool
}

// Handle processes POST callbacks from LiqPay.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer func() {
		if rec := recover(); rec != nil {
			h.Logger.Error().Interface("panic", rec).Msg("webhook handler panicked")
			h.audit(ctx, audit.Entry{
				OrderID:      audit.UnknownOrderID,
				Status:       audit.UnknownStatus,
				ErrorMessage: "internal server error",
			})
			h.count("panic")
			common.JSONFlatError(w, http.StatusInternalServerError, "internal server error")
		}
	}()

	data := r.PostFormValue("data")
	signature := r.PostFormValue("signature")
	if data == "" || signature == "" {
		h.audit(ctx, audit.Entry{
			OrderID:      audit.UnknownOrderID,
			Status:       audit.UnknownStatus,
			ErrorMessage: "missing data or signature",
		})
		h.count("missing_params")
		common.JSONFlatError(w, http.StatusBadRequest, "missing data or signature")
		return
	}

	bypass := h.AllowTestSignatures && liqpay.IsTestSignature(signature)
	if !bypass && !h.Codec.Verify(data, signature) {
		h.Logger.Warn().Str("client_ip", common.ClientIP(r)).Msg("webhook signature mismatch")
		h.audit(ctx, audit.Entry{
			OrderID:      audit.UnknownOrderID,
			Status:       audit.UnknownStatus,
			ErrorMessage: "invalid signature",
		})
		h.count("invalid_signature")
		common.JSONFlatError(w, http.StatusForbidden, "invalid signature")
		return
	}

	raw, err := h.Codec.Decode(data)
	if err != nil {
		h.Logger.Error().Err(err).Msg("webhook payload decode failed")
		h.audit(ctx, audit.Entry{
			OrderID:      audit.UnknownOrderID,
			Status:       audit.UnknownStatus,
			ErrorMessage: "failed to decode payload",
		})
		h.count("decode_error")
		common.JSONFlatError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	snapshot, _ := json.Marshal(raw)

	n, err := ValidateNotification(raw)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("webhook payload rejected")
		h.audit(ctx, audit.Entry{
			OrderID:      stringOr(raw, "order_id", audit.UnknownOrderID),
			Status:       stringOr(raw, "status", audit.UnknownStatus),
			ErrorMessage: "invalid data structure: " + err.Error(),
			Payload:      snapshot,
		})
		h.count("invalid_data")
		common.JSONFlatError(w, http.StatusBadRequest, "invalid data structure")
		return
	}

	if _, err := h.Store.GetByOrderID(ctx, n.OrderID); err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			h.Logger.Warn().Str("order_id", n.OrderID).Msg("webhook for unknown payment")
			h.audit(ctx, audit.Entry{
				OrderID:      n.OrderID,
				Status:       n.Status,
				ErrorMessage: "payment not found",
				Payload:      snapshot,
			})
			h.count("not_found")
			common.JSONFlatError(w, http.StatusNotFound, "payment not found")
			return
		}
		h.Logger.Error().Err(err).Str("order_id", n.OrderID).Msg("payment lookup failed")
		h.audit(ctx, audit.Entry{
			OrderID:      n.OrderID,
			Status:       n.Status,
			ErrorMessage: "payment lookup failed",
			Payload:      snapshot,
		})
		h.count("lookup_error")
		common.JSONFlatError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := MapProviderStatus(n.Status)
	updated, err := h.Store.UpdateStatus(ctx, n.OrderID, status, n)
	if err != nil {
		h.Logger.Error().Err(err).Str("order_id", n.OrderID).Msg("payment update failed")
		h.audit(ctx, audit.Entry{
			OrderID:      n.OrderID,
			Status:       n.Status,
			ErrorMessage: "failed to update payment",
			Payload:      snapshot,
		})
		h.count("update_error")
		common.JSONFlatError(w, http.StatusInternalServerError, "failed to update payment")
		return
	}

	h.audit(ctx, audit.Entry{
		OrderID: n.OrderID,
		Status:  n.Status,
		Success: true,
		Payload: snapshot,
	})
	h.count("success")
	h.dispatch(ctx, updated, snapshot)

	h.Logger.Info().
		Str("order_id", n.OrderID).
		Str("provider_status", n.Status).
		Str("status", string(updated.Status)).
		Msg("webhook processed")

	common.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"payment_id": updated.ID,
		"status":     updated.Status,
	})
}

// Describe answers GETs on the callback route so the endpoint can be probed
// without a signed payload.
func (h Webhook) Describe(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{
		"endpoint": "liqpay webhook",
		"method":   http.MethodPost,
		"fields":   []string{"data", "signature"},
	})
}

func (h Webhook) audit(ctx context.Context, e audit.Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	h.Audit.Record(ctx, e)
}

func (h Webhook) dispatch(ctx context.Context, rec Record, payload json.RawMessage) {
	if h.Bus == nil {
		return
	}
	var topic string
	switch rec.Status {
	case StatusCompleted:
		topic = events.TopicPaymentCompleted
	case StatusFailed:
		topic = events.TopicPaymentFailed
	case StatusRefunded:
		topic = events.TopicPaymentRefunded
	default:
		return
	}
	err := h.Bus.Emit(ctx, events.Event{
		Topic:       topic,
		OrderID:     rec.LiqPayOrderID,
		PaymentID:   rec.ID.String(),
		Status:      string(rec.Status),
		ClientEmail: rec.ClientEmail,
		Payload:     payload,
	})
	if err != nil {
		h.Logger.Error().Err(err).Str("topic", topic).Msg("payment event dispatch failed")
	}
}

func (h Webhook) count(result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(result).Inc()
	}
}

func stringOr(raw map[string]any, key, fallback string) string {
	if v, ok := raw[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
