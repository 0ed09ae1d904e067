package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aq2208/settlement-api/configs"
	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
)

// Client talks to the payment processor's REST API: fund transfers to seller
// accounts and hosted checkout sessions. Every call is bounded by the
// configured timeout and transfers always carry a client-supplied
// Idempotency-Key, so resending an unknown-outcome attempt cannot double-pay.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(cfg configs.Config) *Client {
	timeout := cfg.Payout.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL: cfg.Payout.BaseURL,
		apiKey:  cfg.Payout.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	Destination string `json:"destination"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	GroupingKey string `json:"groupingKey"`
}

type transferResponse struct {
	TransferID string `json:"transferId"`
}

func (c *Client) CreateFundTransfer(ctx context.Context, destinationRef string, amount entity.Money, groupingKey, idemKey string) (string, error) {
	body, err := json.Marshal(transferRequest{
		Destination: destinationRef,
		AmountCents: amount.Cents,
		Currency:    amount.Currency,
		GroupingKey: groupingKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idemKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeout or transport failure after the request may have gone out:
		// the transfer might exist on the processor side.
		return "", &usecase.TransferError{Unknown: true, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var tr transferResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return "", &usecase.TransferError{Unknown: true, Cause: fmt.Errorf("decode response: %w", err)}
		}
		return tr.TransferID, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The processor rejected the transfer; it was definitely not applied.
		return "", &usecase.TransferError{Cause: apiError(resp)}
	default:
		return "", &usecase.TransferError{Unknown: true, Cause: apiError(resp)}
	}
}

type checkoutSessionRequest struct {
	Lines      []usecase.CheckoutLine `json:"lines"`
	SuccessURL string                 `json:"successUrl"`
	CancelURL  string                 `json:"cancelUrl"`
}

type checkoutSessionResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, lines []usecase.CheckoutLine, successURL, cancelURL string) (string, error) {
	body, err := json.Marshal(checkoutSessionRequest{Lines: lines, SuccessURL: successURL, CancelURL: cancelURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiError(resp)
	}
	var cs checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cs); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return cs.RedirectURL, nil
}

func apiError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("processor returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
}

var (
	_ usecase.TransferGateway = (*Client)(nil)
	_ usecase.CheckoutGateway = (*Client)(nil)
)
