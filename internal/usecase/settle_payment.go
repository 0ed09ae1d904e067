package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBadEvent            = errors.New("malformed payment event")
	ErrAlreadyProcessing   = errors.New("settlement already in flight for this event")
	ErrNeedsReconciliation = errors.New("settlement failed previously; manual reconciliation required")
	ErrAlreadySettled      = errors.New("cart already settled")
	ErrSellerNotVerified   = errors.New("seller account not verified for payouts")
)

// Stage names recorded in failure reasons so an operator can see exactly how
// far a run got before it stopped.
const (
	stageSplitComputed   = "SPLIT_COMPUTED"
	stageTransfersIssued = "TRANSFERS_ISSUED"
	stageLedgerCommitted = "LEDGER_COMMITTED"
)

// SettlePayment drives a verified payment-completed event through
// dedupe -> split computation -> per-seller transfers -> ledger commit ->
// registry acknowledgement. It is stateless; any number of instances may run
// concurrently, correctness rests on the registry's unique constraint and the
// ledger's single transaction.
type SettlePayment struct {
	registry        SettlementRegistry
	ledger          LedgerStore
	sellers         SellerDirectory
	gateway         TransferGateway
	outcomes        OutcomeCache // optional
	defaultRate     decimal.Decimal
	transferTimeout time.Duration
}

func NewSettlePayment(
	registry SettlementRegistry,
	ledger LedgerStore,
	sellers SellerDirectory,
	gateway TransferGateway,
	outcomes OutcomeCache,
	defaultRate decimal.Decimal,
	transferTimeout time.Duration,
) *SettlePayment {
	if transferTimeout <= 0 {
		transferTimeout = 8 * time.Second
	}
	return &SettlePayment{
		registry:        registry,
		ledger:          ledger,
		sellers:         sellers,
		gateway:         gateway,
		outcomes:        outcomes,
		defaultRate:     defaultRate,
		transferTimeout: transferTimeout,
	}
}

type SettleOutput struct {
	OrderID  string
	Replayed bool
}

func (uc *SettlePayment) Execute(ctx context.Context, ev PaymentCompletedEvent, rawPayload []byte) (SettleOutput, error) {
	if err := validateEvent(ev); err != nil {
		return SettleOutput{}, err
	}
	log := logging.FromCtx(ctx).With("event_id", ev.EventID, "cart_id", ev.CartID)

	// Fast path: cached replay. Best effort only.
	if uc.outcomes != nil {
		if orderID, state, ok, _ := uc.outcomes.GetOutcome(ctx, ev.EventID); ok && state == entity.SettlementSucceeded {
			return SettleOutput{OrderID: orderID, Replayed: true}, nil
		}
	}

	begin, err := uc.registry.Begin(ctx, ev.EventID, ev.CartID, ev.CustomerID, rawPayload)
	if err != nil {
		return SettleOutput{}, fmt.Errorf("dedupe: %w", err)
	}
	switch begin.Status {
	case BeginAlreadySucceeded:
		uc.cacheOutcome(ctx, ev.EventID, begin.OrderID)
		return SettleOutput{OrderID: begin.OrderID, Replayed: true}, nil
	case BeginAlreadyProcessing:
		// Do not race the in-flight attempt; the processor redelivers later.
		return SettleOutput{}, ErrAlreadyProcessing
	case BeginAlreadyFailed:
		return SettleOutput{}, ErrNeedsReconciliation
	}

	lines, payouts, err := uc.computeSplits(ctx, ev)
	if err != nil {
		uc.fail(ctx, ev.EventID, stageSplitComputed, err)
		return SettleOutput{}, err
	}

	if err := uc.issueTransfers(ctx, ev.EventID, payouts, begin.Retried); err != nil {
		uc.fail(ctx, ev.EventID, stageTransfersIssued, err)
		return SettleOutput{}, err
	}

	order, err := uc.commitLedger(ctx, ev, lines, len(payouts))
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			// Benign: the ledger-level state check fired. Resolve to the
			// existing order instead of treating this as a failure.
			existing, lookupErr := uc.ledger.GetOrderByCart(ctx, ev.CartID)
			if lookupErr != nil {
				uc.fail(ctx, ev.EventID, stageLedgerCommitted, lookupErr)
				return SettleOutput{}, lookupErr
			}
			order = existing
		} else {
			// Transfers are external and cannot be rolled back here; the
			// failure reason flags them for reconciliation.
			uc.fail(ctx, ev.EventID, stageLedgerCommitted,
				fmt.Errorf("transfers issued for %d seller(s), ledger rolled back: %w", len(payouts), err))
			return SettleOutput{}, err
		}
	}

	if err := uc.registry.Commit(ctx, ev.EventID, order.ID); err != nil {
		// Ledger and transfers are done; the registry row stays PROCESSING
		// and the redelivered event will surface it to an operator.
		log.Error("settlement acknowledged but registry commit failed", "order_id", order.ID, "err", err)
		return SettleOutput{}, fmt.Errorf("registry commit: %w", err)
	}

	uc.cacheOutcome(ctx, ev.EventID, order.ID)
	log.Info("settlement complete", "order_id", order.ID, "sellers", len(payouts), "total_cents", order.Total.Cents)
	return SettleOutput{OrderID: order.ID}, nil
}

// sellerPayout is one seller's summed payout across all their line items in
// the event, in first-seen order.
type sellerPayout struct {
	SellerID   string
	AccountRef string
	Payout     entity.Money
}

func (uc *SettlePayment) computeSplits(ctx context.Context, ev PaymentCompletedEvent) ([]entity.OrderLine, []sellerPayout, error) {
	accounts := make(map[string]*entity.SellerAccount)
	sums := make(map[string]int)
	var payouts []sellerPayout
	var lines []entity.OrderLine

	for _, item := range ev.Items {
		acct, ok := accounts[item.SellerID]
		if !ok {
			var err error
			acct, err = uc.sellers.GetSellerAccount(ctx, item.SellerID)
			if err != nil {
				return nil, nil, fmt.Errorf("seller %s: %w", item.SellerID, err)
			}
			if !acct.Verified {
				return nil, nil, fmt.Errorf("seller %s: %w", item.SellerID, ErrSellerNotVerified)
			}
			accounts[item.SellerID] = acct
		}

		unit := entity.Money{Cents: item.UnitPriceCents, Currency: ev.Currency}
		lineTotal := entity.Money{Cents: item.UnitPriceCents * int64(item.Quantity), Currency: ev.Currency}

		rate := uc.defaultRate
		if acct.CommissionRate != nil {
			rate = *acct.CommissionRate
		}
		split, err := entity.ComputeSplit(lineTotal, rate)
		if err != nil {
			return nil, nil, fmt.Errorf("split for product %s: %w", item.ProductID, err)
		}

		lines = append(lines, entity.OrderLine{
			ProductID:    item.ProductID,
			SellerID:     item.SellerID,
			Quantity:     item.Quantity,
			UnitPrice:    unit,
			SellerPayout: split.SellerPayout,
			PlatformFee:  split.PlatformFee,
		})

		if idx, seen := sums[item.SellerID]; seen {
			summed, err := payouts[idx].Payout.Add(split.SellerPayout)
			if err != nil {
				return nil, nil, err
			}
			payouts[idx].Payout = summed
		} else {
			sums[item.SellerID] = len(payouts)
			payouts = append(payouts, sellerPayout{
				SellerID:   item.SellerID,
				AccountRef: acct.AccountRef,
				Payout:     split.SellerPayout,
			})
		}
	}
	return lines, payouts, nil
}

// issueTransfers sends exactly one transfer per distinct seller. On a re-armed
// run, sellers already marked ISSUED are skipped; UNKNOWN attempts are resent
// under their original idempotency key, which the gateway deduplicates.
func (uc *SettlePayment) issueTransfers(ctx context.Context, eventID string, payouts []sellerPayout, rearmed bool) error {
	prior := make(map[string]entity.TransferAttempt)
	if rearmed {
		attempts, err := uc.registry.TransfersFor(ctx, eventID)
		if err != nil {
			return fmt.Errorf("load prior transfers: %w", err)
		}
		for _, a := range attempts {
			prior[a.SellerID] = a
		}
	}

	for _, p := range payouts {
		if prev, ok := prior[p.SellerID]; ok && prev.Disposition == entity.TransferIssued {
			continue
		}

		idemKey := transferIdemKey(eventID, p.SellerID)
		attempt := entity.TransferAttempt{
			EventID:        eventID,
			SellerID:       p.SellerID,
			Amount:         p.Payout,
			IdempotencyKey: idemKey,
			Disposition:    entity.TransferNotSent,
		}
		if err := uc.registry.RecordTransfer(ctx, attempt); err != nil {
			return fmt.Errorf("record transfer intent: %w", err)
		}

		tctx, cancel := context.WithTimeout(ctx, uc.transferTimeout)
		transferID, err := uc.gateway.CreateFundTransfer(tctx, p.AccountRef, p.Payout, eventID, idemKey)
		cancel()

		if err != nil {
			var te *TransferError
			if errors.As(err, &te) && te.Unknown {
				attempt.Disposition = entity.TransferUnknown
				_ = uc.registry.RecordTransfer(ctx, attempt)
			}
			return err
		}

		attempt.Disposition = entity.TransferIssued
		attempt.TransferID = transferID
		if err := uc.registry.RecordTransfer(ctx, attempt); err != nil {
			// Transfer went out but we could not record it. Surfacing the
			// error leaves the registry row PROCESSING for reconciliation.
			return fmt.Errorf("record issued transfer for seller %s: %w", p.SellerID, err)
		}
	}
	return nil
}

func (uc *SettlePayment) commitLedger(ctx context.Context, ev PaymentCompletedEvent, lines []entity.OrderLine, sellerCount int) (*entity.Order, error) {
	total := entity.Money{Currency: ev.Currency}
	for _, l := range lines {
		var err error
		total, err = total.Add(l.Amount())
		if err != nil {
			return nil, err
		}
	}

	order := &entity.Order{
		ID:         uuid.NewString(),
		CustomerID: ev.CustomerID,
		CartID:     ev.CartID,
		Total:      total,
		Status:     entity.OrderPending,
		Lines:      lines,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	settled, err := json.Marshal(OrderSettledMsg{
		EventID:     ev.EventID,
		OrderID:     order.ID,
		CartID:      ev.CartID,
		CustomerID:  ev.CustomerID,
		TotalCents:  total.Cents,
		Currency:    total.Currency,
		SellerCount: sellerCount,
	})
	if err != nil {
		return nil, err
	}

	if err := uc.ledger.PromoteCartToOrder(ctx, order, settled); err != nil {
		return nil, err
	}
	return order, nil
}

func (uc *SettlePayment) fail(ctx context.Context, eventID, stage string, cause error) {
	reason := fmt.Sprintf("%s: %v", stage, cause)
	if err := uc.registry.MarkFailed(ctx, eventID, reason); err != nil {
		logging.FromCtx(ctx).Error("mark settlement failed", "event_id", eventID, "reason", reason, "err", err)
	}
}

func (uc *SettlePayment) cacheOutcome(ctx context.Context, eventID, orderID string) {
	if uc.outcomes == nil {
		return
	}
	_ = uc.outcomes.SetOutcome(ctx, eventID, orderID, entity.SettlementSucceeded)
}

// transferIdemKey is deterministic per (event, seller) so a retry after an
// unknown outcome reuses the key and cannot double-pay.
func transferIdemKey(eventID, sellerID string) string {
	return eventID + ":" + sellerID
}

func validateEvent(ev PaymentCompletedEvent) error {
	switch {
	case ev.EventID == "":
		return fmt.Errorf("%w: missing event id", ErrBadEvent)
	case ev.CartID == "":
		return fmt.Errorf("%w: missing cart id", ErrBadEvent)
	case ev.CustomerID == "":
		return fmt.Errorf("%w: missing customer id", ErrBadEvent)
	case ev.Currency == "":
		return fmt.Errorf("%w: missing currency", ErrBadEvent)
	case len(ev.Items) == 0:
		return fmt.Errorf("%w: no line items", ErrBadEvent)
	}
	for _, item := range ev.Items {
		if item.ProductID == "" || item.SellerID == "" {
			return fmt.Errorf("%w: item missing product or seller id", ErrBadEvent)
		}
		if item.Quantity <= 0 || item.UnitPriceCents <= 0 {
			return fmt.Errorf("%w: item %s has non-positive quantity or price", ErrBadEvent, item.ProductID)
		}
	}
	return nil
}
