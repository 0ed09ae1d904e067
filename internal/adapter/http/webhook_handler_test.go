package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aq2208/settlement-api/configs"
	"github.com/aq2208/settlement-api/internal/security"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_1234"

type mockSettler struct {
	Out    usecase.SettleOutput
	Err    error
	Calls  int
	GotEv  usecase.PaymentCompletedEvent
	GotRaw []byte
}

func (m *mockSettler) Execute(_ context.Context, ev usecase.PaymentCompletedEvent, raw []byte) (usecase.SettleOutput, error) {
	m.Calls++
	m.GotEv = ev
	m.GotRaw = raw
	return m.Out, m.Err
}

func newWebhookRig(t *testing.T, settle *mockSettler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var cfg configs.Config
	cfg.Webhook.Secret = testSecret
	cfg.Webhook.Tolerance = 5 * time.Minute

	verifier, err := security.NewVerifier(cfg)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/v1/webhooks/payment", NewWebhookHandler(verifier, settle, cfg).HandlePaymentCompleted)
	return r
}

func signedRequest(body []byte, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Payment-Signature", security.Sign([]byte(secret), body, time.Now()))
	return req
}

func validEventBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(usecase.PaymentCompletedEvent{
		EventID:    "evt_1",
		CartID:     "cart_1",
		CustomerID: "cust_1",
		Currency:   "USD",
		Items: []usecase.PaymentCompletedItem{
			{ProductID: "p_1", SellerID: "s_1", Quantity: 1, UnitPriceCents: 1999},
		},
	})
	require.NoError(t, err)
	return b
}

func TestWebhook_Settled(t *testing.T) {
	settle := &mockSettler{Out: usecase.SettleOutput{OrderID: "ord_1"}}
	r := newWebhookRig(t, settle)
	body := validEventBody(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(body, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["received"])
	assert.Equal(t, "ord_1", resp["orderId"])

	// The orchestrator sees the exact wire bytes, not a re-marshal.
	assert.Equal(t, body, settle.GotRaw)
	assert.Equal(t, "evt_1", settle.GotEv.EventID)
}

func TestWebhook_ReplayedStill200(t *testing.T) {
	settle := &mockSettler{Out: usecase.SettleOutput{OrderID: "ord_1", Replayed: true}}
	r := newWebhookRig(t, settle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(validEventBody(t), testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_BadSignature(t *testing.T) {
	settle := &mockSettler{}
	r := newWebhookRig(t, settle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(validEventBody(t), "whsec_wrong"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, settle.Calls)
}

func TestWebhook_MissingSignature(t *testing.T) {
	settle := &mockSettler{}
	r := newWebhookRig(t, settle)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", bytes.NewReader(validEventBody(t)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, settle.Calls)
}

func TestWebhook_StaleTimestamp(t *testing.T) {
	settle := &mockSettler{}
	r := newWebhookRig(t, settle)
	body := validEventBody(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Payment-Signature", security.Sign([]byte(testSecret), body, time.Now().Add(-time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "stale_event")
	assert.Zero(t, settle.Calls)
}

func TestWebhook_UnparseableBody(t *testing.T) {
	settle := &mockSettler{}
	r := newWebhookRig(t, settle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest([]byte("not json"), testSecret))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, settle.Calls)
}

func TestWebhook_InFlightDuplicate(t *testing.T) {
	settle := &mockSettler{Err: usecase.ErrAlreadyProcessing}
	r := newWebhookRig(t, settle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(validEventBody(t), testSecret))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"retry":true`)
}

func TestWebhook_BadEventIs400(t *testing.T) {
	settle := &mockSettler{Err: usecase.ErrBadEvent}
	r := newWebhookRig(t, settle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(validEventBody(t), testSecret))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_TransientFailureIs500(t *testing.T) {
	settle := &mockSettler{Err: assert.AnError}
	r := newWebhookRig(t, settle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(validEventBody(t), testSecret))

	// Non-2xx so the processor redelivers.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_NeedsReconciliationIs500(t *testing.T) {
	settle := &mockSettler{Err: usecase.ErrNeedsReconciliation}
	r := newWebhookRig(t, settle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(validEventBody(t), testSecret))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
