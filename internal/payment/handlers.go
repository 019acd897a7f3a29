package payment

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-trainer/internal/common"
	"github.com/noah-isme/backend-trainer/internal/liqpay"
)

// Handler serves payment read endpoints.
type Handler struct {
	Store  Gateway
	LiqPay liqpay.Client
	Logger zerolog.Logger
}

// Status returns the stored state of a payment. With refresh=true on a
// pending payment the provider is polled and the fresher status is returned
// and persisted.
func (h Handler) Status(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	rec, err := h.Store.GetByOrderID(r.Context(), orderID)
	if err != nil {
		h.respondError(w, orderID, err)
		return
	}

	if rec.Status == StatusPending && r.URL.Query().Get("refresh") == "true" {
		if refreshed, ok := h.refresh(r, rec); ok {
			rec = refreshed
		}
	}

	body := map[string]any{
		"order_id": rec.LiqPayOrderID,
		"status":   rec.Status,
		"amount":   rec.Amount,
		"currency": rec.Currency,
	}
	if rec.PaidAt.Valid {
		body["paid_at"] = rec.PaidAt.Time
	}
	common.JSON(w, http.StatusOK, body)
}

func (h Handler) respondError(w http.ResponseWriter, orderID string, err error) {
	if errors.Is(err, ErrPaymentNotFound) {
		err = common.NewAppError("NOT_FOUND", "payment not found", http.StatusNotFound, err)
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	h.Logger.Error().Err(err).Str("order_id", orderID).Msg("payment lookup failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load payment", nil)
}

func (h Handler) refresh(r *http.Request, rec Record) (Record, bool) {
	resp, err := h.LiqPay.Status(r.Context(), rec.LiqPayOrderID)
	if err != nil {
		h.Logger.Warn().Err(err).Str("order_id", rec.LiqPayOrderID).Msg("provider status poll failed")
		return rec, false
	}
	status := MapProviderStatus(resp.Status)
	if status == rec.Status {
		return rec, false
	}
	n := &Notification{Status: resp.Status, PaymentID: resp.PaymentID}
	updated, err := h.Store.UpdateStatus(r.Context(), rec.LiqPayOrderID, status, n)
	if err != nil {
		h.Logger.Warn().Err(err).Str("order_id", rec.LiqPayOrderID).Msg("status refresh persist failed")
		return rec, false
	}
	return updated, true
}
