// internal/services/status_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/models"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func unresolvedTx() models.BlockchainTransaction {
	return models.BlockchainTransaction{Hash: "0xaaa"}
}

func confirmedTx() models.BlockchainTransaction {
	return models.BlockchainTransaction{Hash: "0xbbb", ConfirmedAt: timePtr(time.Now())}
}

func failedTx() models.BlockchainTransaction {
	return models.BlockchainTransaction{Hash: "0xccc", FailedAt: timePtr(time.Now())}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		state   OwnerState
		want    models.OwnerStatus
		wantErr bool
	}{
		{
			name:  "draft with no transactions",
			state: OwnerState{Kind: "product order"},
			want:  models.OwnerStatusDraft,
		},
		{
			name: "pending with one unresolved transaction is awaiting confirmation",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				Transactions: []models.BlockchainTransaction{unresolvedTx()},
			},
			want: models.OwnerStatusAwaitingConfirmation,
		},
		{
			name: "pending after all transactions failed",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				Transactions: []models.BlockchainTransaction{failedTx(), failedTx()},
			},
			want: models.OwnerStatusPending,
		},
		{
			name: "confirmed with exactly one confirmed transaction",
			state: OwnerState{
				Kind:         "seller marketplace",
				PendingAt:    timePtr(now),
				ConfirmedAt:  timePtr(now),
				Transactions: []models.BlockchainTransaction{failedTx(), confirmedTx()},
			},
			want: models.OwnerStatusConfirmed,
		},
		{
			name: "cancelled draft",
			state: OwnerState{
				Kind:        "product order",
				CancelledAt: timePtr(now),
			},
			want: models.OwnerStatusCancelled,
		},
		{
			name: "cancelled with only failed transactions",
			state: OwnerState{
				Kind:         "seller payout",
				PendingAt:    timePtr(now),
				CancelledAt:  timePtr(now),
				Transactions: []models.BlockchainTransaction{failedTx()},
			},
			want: models.OwnerStatusCancelled,
		},
		{
			name: "refunded takes precedence over confirmed",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				ConfirmedAt:  timePtr(now),
				RefundedAt:   timePtr(now),
				Transactions: []models.BlockchainTransaction{confirmedTx()},
			},
			want: models.OwnerStatusRefunded,
		},
		{
			name: "more than one confirmed transaction",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				ConfirmedAt:  timePtr(now),
				Transactions: []models.BlockchainTransaction{confirmedTx(), confirmedTx()},
			},
			wantErr: true,
		},
		{
			name: "refunded without a confirmed transaction",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				RefundedAt:   timePtr(now),
				Transactions: []models.BlockchainTransaction{failedTx()},
			},
			wantErr: true,
		},
		{
			name: "cancelled with an unresolved transaction",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				CancelledAt:  timePtr(now),
				Transactions: []models.BlockchainTransaction{unresolvedTx()},
			},
			wantErr: true,
		},
		{
			name: "confirmation timestamp without a confirmed transaction",
			state: OwnerState{
				Kind:         "seller marketplace",
				PendingAt:    timePtr(now),
				ConfirmedAt:  timePtr(now),
				Transactions: []models.BlockchainTransaction{unresolvedTx()},
			},
			wantErr: true,
		},
		{
			name: "pending with no transactions",
			state: OwnerState{
				Kind:      "seller payout",
				PendingAt: timePtr(now),
			},
			wantErr: true,
		},
		{
			name: "confirmed transaction without a confirmation timestamp",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				Transactions: []models.BlockchainTransaction{confirmedTx()},
			},
			wantErr: true,
		},
		{
			name: "more than one unresolved transaction",
			state: OwnerState{
				Kind:         "product order",
				PendingAt:    timePtr(now),
				Transactions: []models.BlockchainTransaction{unresolvedTx(), unresolvedTx()},
			},
			wantErr: true,
		},
		{
			name: "draft with transactions",
			state: OwnerState{
				Kind:         "seller marketplace",
				Transactions: []models.BlockchainTransaction{failedTx()},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveStatus(tt.state)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOwnerStateConstructors(t *testing.T) {
	now := time.Now()

	marketplace := &models.SellerMarketplace{
		PendingAt:   timePtr(now),
		ConfirmedAt: timePtr(now),
		Transactions: []models.SellerMarketplaceTransaction{
			{BlockchainTransaction: confirmedTx()},
		},
	}
	state := MarketplaceState(marketplace)
	assert.Equal(t, "seller marketplace", state.Kind)
	assert.Len(t, state.Transactions, 1)
	assert.Nil(t, state.CancelledAt)
	assert.Nil(t, state.RefundedAt)

	order := &models.ProductOrder{
		PendingAt:   timePtr(now),
		CancelledAt: timePtr(now),
	}
	state = OrderState(order)
	assert.Equal(t, "product order", state.Kind)
	assert.NotNil(t, state.CancelledAt)

	payout := &models.SellerPayout{
		PendingAt: timePtr(now),
		Transactions: []models.SellerPayoutTransaction{
			{BlockchainTransaction: unresolvedTx()},
		},
	}
	state = PayoutState(payout)
	assert.Equal(t, "seller payout", state.Kind)
	assert.Len(t, state.Transactions, 1)
}
