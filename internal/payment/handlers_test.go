package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func statusRequest(t *testing.T, orderID, query string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+orderID+"/status"+query, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPaymentStatusHandler(t *testing.T) {
	paidAt := time.Date(2025, 11, 14, 22, 14, 20, 0, time.UTC)
	store := &stubGateway{records: map[string]Record{
		"TP_1_abc": {
			ID:            uuid.New(),
			Amount:        800,
			Currency:      "UAH",
			Status:        StatusCompleted,
			LiqPayOrderID: "TP_1_abc",
			PaidAt:        pgtype.Timestamptz{Time: paidAt, Valid: true},
		},
	}}
	h := Handler{Store: store, Logger: zerolog.Nop()}

	rr := httptest.NewRecorder()
	h.Status(rr, statusRequest(t, "TP_1_abc", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	require.Equal(t, "TP_1_abc", body["order_id"])
	require.Equal(t, "completed", body["status"])
	require.Equal(t, 800.0, body["amount"])
	require.NotEmpty(t, body["paid_at"])
}

func TestPaymentStatusHandlerNotFound(t *testing.T) {
	store := &stubGateway{records: map[string]Record{}}
	h := Handler{Store: store, Logger: zerolog.Nop()}

	rr := httptest.NewRecorder()
	h.Status(rr, statusRequest(t, "TP_404_x", ""))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPaymentStatusHandlerPendingOmitsPaidAt(t *testing.T) {
	store := &stubGateway{records: map[string]Record{
		"TP_2_def": {
			ID:            uuid.New(),
			Amount:        800,
			Currency:      "UAH",
			Status:        StatusPending,
			LiqPayOrderID: "TP_2_def",
		},
	}}
	h := Handler{Store: store, Logger: zerolog.Nop()}

	rr := httptest.NewRecorder()
	h.Status(rr, statusRequest(t, "TP_2_def", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	require.Equal(t, "pending", body["status"])
	_, present := body["paid_at"]
	require.False(t, present)
}
