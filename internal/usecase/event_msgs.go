package usecase

// PaymentCompletedEvent is the processor's "payment completed" notification,
// decoded only after signature verification.
type PaymentCompletedEvent struct {
	EventID    string                 `json:"eventId"`
	CartID     string                 `json:"cartId"`
	CustomerID string                 `json:"customerId"`
	Currency   string                 `json:"currency"`
	Items      []PaymentCompletedItem `json:"items"`
}

type PaymentCompletedItem struct {
	ProductID      string `json:"productId"`
	SellerID       string `json:"sellerId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// CheckoutLine feeds the processor's checkout-session API and is also the
// shape the cart store returns for a cart's current items.
type CheckoutLine struct {
	ProductID      string `json:"productId"`
	SellerID       string `json:"sellerId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Currency       string `json:"currency"`
}

// RetryMsg rides the settlement.retry.q rabbit queue after an operator
// re-arms a failed settlement.
type RetryMsg struct {
	EventID string `json:"eventId"`
}

// OrderSettledMsg is the outbox payload drained to rabbit after a ledger
// commit.
type OrderSettledMsg struct {
	EventID     string `json:"eventId"`
	OrderID     string `json:"orderId"`
	CartID      string `json:"cartId"`
	CustomerID  string `json:"customerId"`
	TotalCents  int64  `json:"totalCents"`
	Currency    string `json:"currency"`
	SellerCount int    `json:"sellerCount"`
}

// TransferStatusMsg arrives on kafka from the payout gateway and resolves
// UNKNOWN transfer dispositions.
type TransferStatusMsg struct {
	EventID    string `json:"eventId"`
	SellerID   string `json:"sellerId"`
	TransferID string `json:"transferId"`
	Status     string `json:"status"` // "APPLIED" | "REJECTED"
}
