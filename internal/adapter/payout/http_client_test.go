package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aq2208/settlement-api/configs"
	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, timeout time.Duration) *Client {
	var cfg configs.Config
	cfg.Payout.BaseURL = baseURL
	cfg.Payout.APIKey = "sk_test_123"
	cfg.Payout.Timeout = timeout
	return New(cfg)
}

func TestCreateFundTransfer(t *testing.T) {
	var gotIdem, gotAuth string
	var gotBody transferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/transfers", r.URL.Path)
		gotIdem = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(transferResponse{TransferID: "tr_42"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2*time.Second)
	id, err := c.CreateFundTransfer(context.Background(),
		"acct_1", entity.Money{Cents: 1800, Currency: "USD"}, "evt_1", "evt_1:s_1")

	require.NoError(t, err)
	assert.Equal(t, "tr_42", id)
	assert.Equal(t, "evt_1:s_1", gotIdem)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "acct_1", gotBody.Destination)
	assert.Equal(t, int64(1800), gotBody.AmountCents)
	assert.Equal(t, "evt_1", gotBody.GroupingKey)
}

// A 4xx means the processor definitely did not apply the transfer.
func TestCreateFundTransfer_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"account_frozen"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2*time.Second)
	_, err := c.CreateFundTransfer(context.Background(),
		"acct_1", entity.Money{Cents: 100, Currency: "USD"}, "evt_1", "evt_1:s_1")

	var te *usecase.TransferError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Unknown)
}

// A 5xx leaves the outcome indeterminate.
func TestCreateFundTransfer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2*time.Second)
	_, err := c.CreateFundTransfer(context.Background(),
		"acct_1", entity.Money{Cents: 100, Currency: "USD"}, "evt_1", "evt_1:s_1")

	var te *usecase.TransferError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Unknown)
}

// A timeout after the request went out is indeterminate too: the processor
// may have applied it.
func TestCreateFundTransfer_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 20*time.Millisecond)
	_, err := c.CreateFundTransfer(context.Background(),
		"acct_1", entity.Money{Cents: 100, Currency: "USD"}, "evt_1", "evt_1:s_1")

	var te *usecase.TransferError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Unknown)
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		var req checkoutSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Lines, 1)
		assert.Equal(t, "https://shop.test/thanks", req.SuccessURL)
		_ = json.NewEncoder(w).Encode(checkoutSessionResponse{RedirectURL: "https://processor.test/s/abc"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2*time.Second)
	url, err := c.CreateCheckoutSession(context.Background(),
		[]usecase.CheckoutLine{{ProductID: "p_1", Quantity: 1, UnitPriceCents: 1999, Currency: "USD"}},
		"https://shop.test/thanks", "https://shop.test/cart")

	require.NoError(t, err)
	assert.Equal(t, "https://processor.test/s/abc", url)
}

func TestCreateCheckoutSession_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2*time.Second)
	_, err := c.CreateCheckoutSession(context.Background(), nil, "", "")
	require.Error(t, err)

	// Checkout failures are plain errors, never TransferError.
	var te *usecase.TransferError
	assert.False(t, errors.As(err, &te))
}
