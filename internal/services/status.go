// internal/services/status.go
package services

import (
	"fmt"
	"time"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/models"
)

// OwnerState is the snapshot DeriveStatus works on: the persisted lifecycle
// timestamps of one owner plus its full transaction list. Building the
// snapshot is the caller's job; derivation itself does no I/O.
type OwnerState struct {
	Kind         string
	PendingAt    *time.Time
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	RefundedAt   *time.Time
	Transactions []models.BlockchainTransaction
}

func MarketplaceState(m *models.SellerMarketplace) OwnerState {
	txs := make([]models.BlockchainTransaction, 0, len(m.Transactions))
	for _, t := range m.Transactions {
		txs = append(txs, t.BlockchainTransaction)
	}
	return OwnerState{
		Kind:         "seller marketplace",
		PendingAt:    m.PendingAt,
		ConfirmedAt:  m.ConfirmedAt,
		Transactions: txs,
	}
}

func OrderState(o *models.ProductOrder) OwnerState {
	txs := make([]models.BlockchainTransaction, 0, len(o.Transactions))
	for _, t := range o.Transactions {
		txs = append(txs, t.BlockchainTransaction)
	}
	return OwnerState{
		Kind:         "product order",
		PendingAt:    o.PendingAt,
		ConfirmedAt:  o.ConfirmedAt,
		CancelledAt:  o.CancelledAt,
		RefundedAt:   o.RefundedAt,
		Transactions: txs,
	}
}

func PayoutState(p *models.SellerPayout) OwnerState {
	txs := make([]models.BlockchainTransaction, 0, len(p.Transactions))
	for _, t := range p.Transactions {
		txs = append(txs, t.BlockchainTransaction)
	}
	return OwnerState{
		Kind:         "seller payout",
		PendingAt:    p.PendingAt,
		ConfirmedAt:  p.ConfirmedAt,
		CancelledAt:  p.CancelledAt,
		Transactions: txs,
	}
}

// DeriveStatus derives an owner's lifecycle status from its timestamps and
// transaction history. Terminal states are checked first. Any cross-field
// inconsistency is an internal error: it signals a corrupted record, not a
// business condition, and the calling operation must halt rather than guess.
func DeriveStatus(state OwnerState) (models.OwnerStatus, error) {
	var confirmed, unresolved int
	for i := range state.Transactions {
		if state.Transactions[i].Confirmed() {
			confirmed++
		}
		if state.Transactions[i].Unresolved() {
			unresolved++
		}
	}

	if confirmed > 1 {
		return "", invariantError(state, "more than one confirmed transaction")
	}

	if state.RefundedAt != nil {
		if confirmed != 1 {
			return "", invariantError(state, "refunded owner must have exactly one confirmed transaction")
		}
		return models.OwnerStatusRefunded, nil
	}

	if state.CancelledAt != nil {
		if len(state.Transactions) > 0 && (confirmed > 0 || unresolved > 0) {
			return "", invariantError(state, "cancelled owner has confirmed or unresolved transactions")
		}
		return models.OwnerStatusCancelled, nil
	}

	if state.ConfirmedAt != nil {
		if confirmed != 1 {
			return "", invariantError(state, "confirmed owner must have exactly one confirmed transaction")
		}
		return models.OwnerStatusConfirmed, nil
	}

	if state.PendingAt != nil {
		if len(state.Transactions) == 0 {
			return "", invariantError(state, "pending owner has no transactions")
		}
		if confirmed > 0 {
			return "", invariantError(state, "owner has a confirmed transaction but no confirmation timestamp")
		}
		if unresolved > 1 {
			return "", invariantError(state, "more than one unresolved transaction")
		}
		if unresolved == 1 {
			return models.OwnerStatusAwaitingConfirmation, nil
		}
		// Every known transaction failed; the owner may accept a
		// replacement transaction.
		return models.OwnerStatusPending, nil
	}

	if len(state.Transactions) > 0 {
		return "", invariantError(state, "draft owner has transactions")
	}
	return models.OwnerStatusDraft, nil
}

func invariantError(state OwnerState, detail string) error {
	return apperrors.NewInternal(fmt.Sprintf("status invariant violated for %s: %s", state.Kind, detail))
}
