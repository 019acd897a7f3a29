package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-trainer/internal/audit"
	"github.com/noah-isme/backend-trainer/internal/events"
	"github.com/noah-isme/backend-trainer/internal/liqpay"
)

type stubGateway struct {
	records map[string]Record

	getCalls    int
	updateCalls int
	lastStatus  Status
	lastNotif   *Notification
	updateErr   error
}

func (g *stubGateway) GetByOrderID(_ context.Context, orderID string) (Record, error) {
	g.getCalls++
	rec, ok := g.records[orderID]
	if !ok {
		return Record{}, ErrPaymentNotFound
	}
	return rec, nil
}

func (g *stubGateway) UpdateStatus(_ context.Context, orderID string, status Status, n *Notification) (Record, error) {
	g.updateCalls++
	g.lastStatus = status
	g.lastNotif = n
	if g.updateErr != nil {
		return Record{}, g.updateErr
	}
	rec, ok := g.records[orderID]
	if !ok {
		return Record{}, ErrPaymentNotFound
	}
	rec.Status = status
	if paidAt := paidAtFor(status, n); paidAt.Valid {
		rec.PaidAt = paidAt
	}
	g.records[orderID] = rec
	return rec, nil
}

type recordingNotifier struct {
	events []events.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	n.events = append(n.events, ev)
	return nil
}

type webhookFixture struct {
	handler  Webhook
	codec    liqpay.Client
	store    *stubGateway
	sink     *audit.MemorySink
	notifier *recordingNotifier
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	codec := liqpay.Client{PublicKey: "pub_test", PrivateKey: "priv_test"}
	store := &stubGateway{records: map[string]Record{
		"TP_1700000000000_ab12cd34": {
			ID:            uuid.New(),
			ClientName:    "Олена",
			ClientEmail:   "client@example.com",
			Amount:        800,
			Currency:      "UAH",
			Description:   "Personal training session",
			Status:        StatusPending,
			LiqPayOrderID: "TP_1700000000000_ab12cd34",
		},
	}}
	sink := audit.NewMemorySink(50)
	notifier := &recordingNotifier{}
	return &webhookFixture{
		handler: Webhook{
			Codec:  codec,
			Store:  store,
			Audit:  audit.Recorder{Sink: sink, Logger: zerolog.Nop()},
			Bus:    &events.Bus{Notifiers: []events.Notifier{notifier}},
			Logger: zerolog.Nop(),
		},
		codec:    codec,
		store:    store,
		sink:     sink,
		notifier: notifier,
	}
}

func (f *webhookFixture) payload(overrides map[string]any) map[string]any {
	payload := map[string]any{
		"public_key":      "pub_test",
		"version":         3,
		"action":          "pay",
		"payment_id":      3085058731,
		"status":          "success",
		"amount":          800,
		"currency":        "UAH",
		"description":     "Personal training session",
		"order_id":        "TP_1700000000000_ab12cd34",
		"liqpay_order_id": "HVYS7W2K1700000000000000",
		"create_date":     1700000000,
	}
	for k, v := range overrides {
		if v == nil {
			delete(payload, k)
			continue
		}
		payload[k] = v
	}
	return payload
}

func (f *webhookFixture) post(t *testing.T, data, signature string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	if data != "" {
		form.Set("data", data)
	}
	if signature != "" {
		form.Set("signature", signature)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/liqpay", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.handler.Handle(rr, req)
	return rr
}

func (f *webhookFixture) postPayload(t *testing.T, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := f.codec.Encode(payload)
	require.NoError(t, err)
	return f.post(t, data, f.codec.Sign(data))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestWebhookSuccess(t *testing.T) {
	f := newWebhookFixture(t)

	rr := f.postPayload(t, f.payload(map[string]any{"end_date": 1700000060}))
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	require.Equal(t, true, body["success"])
	require.Equal(t, "completed", body["status"])
	require.NotEmpty(t, body["payment_id"])

	require.Equal(t, StatusCompleted, f.store.lastStatus)
	rec := f.store.records["TP_1700000000000_ab12cd34"]
	require.Equal(t, StatusCompleted, rec.Status)
	// end_date is unix epoch seconds.
	require.Equal(t, time.Unix(1700000060, 0).UTC(), rec.PaidAt.Time)

	entries, err := f.sink.ReadRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Success)
	require.Equal(t, "TP_1700000000000_ab12cd34", entries[0].OrderID)
	require.Equal(t, "success", entries[0].Status)

	require.Len(t, f.notifier.events, 1)
	require.Equal(t, events.TopicPaymentCompleted, f.notifier.events[0].Topic)
	require.Equal(t, "client@example.com", f.notifier.events[0].ClientEmail)
}

func TestWebhookIdempotentRedelivery(t *testing.T) {
	f := newWebhookFixture(t)
	payload := f.payload(nil)

	first := f.postPayload(t, payload)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.postPayload(t, payload)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, decodeBody(t, first), decodeBody(t, second))
	require.Equal(t, 2, f.store.updateCalls)

	entries, err := f.sink.ReadRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestWebhookPendingStatus(t *testing.T) {
	f := newWebhookFixture(t)

	rr := f.postPayload(t, f.payload(map[string]any{"status": "wait_card"}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "pending", decodeBody(t, rr)["status"])

	// No lifecycle event for a non-terminal status.
	require.Empty(t, f.notifier.events)
}

func TestWebhookMissingParams(t *testing.T) {
	f := newWebhookFixture(t)

	for _, tc := range []struct{ data, signature string }{
		{"", ""},
		{"eyJ9", ""},
		{"", "abc"},
	} {
		rr := f.post(t, tc.data, tc.signature)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Equal(t, "missing data or signature", decodeBody(t, rr)["error"])
	}
	require.Zero(t, f.store.getCalls)

	entries, err := f.sink.ReadRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, audit.UnknownOrderID, entries[0].OrderID)
}

func TestWebhookInvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)

	data, err := f.codec.Encode(f.payload(nil))
	require.NoError(t, err)
	rr := f.post(t, data, "not-the-signature")
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, "invalid signature", decodeBody(t, rr)["error"])
	require.Zero(t, f.store.getCalls)
	require.Zero(t, f.store.updateCalls)
	require.Equal(t, StatusPending, f.store.records["TP_1700000000000_ab12cd34"].Status)
}

func TestWebhookTestSignatureGate(t *testing.T) {
	f := newWebhookFixture(t)
	data, err := f.codec.Encode(f.payload(nil))
	require.NoError(t, err)

	// Rejected while the gate is closed.
	rr := f.post(t, data, "test_signature_local")
	require.Equal(t, http.StatusForbidden, rr.Code)

	f.handler.AllowTestSignatures = true
	rr = f.post(t, data, "test_signature_local")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookDecodeFailure(t *testing.T) {
	f := newWebhookFixture(t)
	f.handler.AllowTestSignatures = true

	rr := f.post(t, "%%%not-base64%%%", "test_signature_local")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "internal server error", decodeBody(t, rr)["error"])
	require.Zero(t, f.store.getCalls)
}

func TestWebhookInvalidStructure(t *testing.T) {
	f := newWebhookFixture(t)

	rr := f.postPayload(t, f.payload(map[string]any{"currency": nil}))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid data structure", decodeBody(t, rr)["error"])
	require.Zero(t, f.store.getCalls)

	entries, err := f.sink.ReadRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].Success)
	require.Equal(t, "TP_1700000000000_ab12cd34", entries[0].OrderID)
	require.Contains(t, entries[0].ErrorMessage, "missing field: currency")
}

func TestWebhookUnknownPayment(t *testing.T) {
	f := newWebhookFixture(t)

	rr := f.postPayload(t, f.payload(map[string]any{"order_id": "TP_999_nope"}))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "payment not found", decodeBody(t, rr)["error"])
	require.Zero(t, f.store.updateCalls)
}

func TestWebhookUpdateFailure(t *testing.T) {
	f := newWebhookFixture(t)
	f.store.updateErr = context.DeadlineExceeded

	rr := f.postPayload(t, f.payload(nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "failed to update payment", decodeBody(t, rr)["error"])

	entries, err := f.sink.ReadRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "failed to update payment", entries[0].ErrorMessage)
}

func TestWebhookRefundEmitsEvent(t *testing.T) {
	f := newWebhookFixture(t)
	f.store.records["TP_1700000000000_ab12cd34"] = Record{
		ID:            uuid.New(),
		Status:        StatusCompleted,
		LiqPayOrderID: "TP_1700000000000_ab12cd34",
	}

	rr := f.postPayload(t, f.payload(map[string]any{"status": "refund"}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "refunded", decodeBody(t, rr)["status"])
	require.Len(t, f.notifier.events, 1)
	require.Equal(t, events.TopicPaymentRefunded, f.notifier.events[0].Topic)
}

func TestWebhookDescribe(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/liqpay", nil)
	rr := httptest.NewRecorder()
	f.handler.Describe(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	require.Equal(t, http.MethodPost, body["method"])
}
