// internal/services/reconcile_payout.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/blockchain"
	"github.com/chainmart/chainmart-backend/internal/database"
	"github.com/chainmart/chainmart-backend/internal/models"
)

// ReconcileSellerPayouts polls the chain for every unresolved payout
// withdrawal transaction on one network and commits confirmations and
// failures.
func (s *ReconcileService) ReconcileSellerPayouts(ctx context.Context, chainID int64) error {
	return s.withScopeLock(ctx, fmt.Sprintf("seller-payouts:%d", chainID), func() error {
		return s.reconcileSellerPayouts(ctx, chainID)
	})
}

func (s *ReconcileService) reconcileSellerPayouts(ctx context.Context, chainID int64) error {
	network, err := s.networkByChainID(chainID)
	if err != nil {
		return err
	}

	reader, err := s.registry.ReaderFor(chainID)
	if err != nil {
		return apperrors.WrapInternal("no chain reader configured", err)
	}

	var transactions []models.SellerPayoutTransaction
	err = s.db.
		Joins("JOIN seller_payouts ON seller_payouts.id = seller_payout_transactions.seller_payout_id AND seller_payouts.deleted_at IS NULL").
		Where("seller_payout_transactions.network_id = ?", network.ID).
		Where("seller_payout_transactions.confirmed_at IS NULL").
		Where("seller_payout_transactions.failed_at IS NULL").
		Where("seller_payouts.pending_at IS NOT NULL").
		Where("seller_payouts.confirmed_at IS NULL").
		Where("seller_payouts.cancelled_at IS NULL").
		Preload("SellerPayout").
		Preload("SellerPayout.SellerMarketplace").
		Order("seller_payout_transactions.created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return apperrors.WrapInternal("failed to load unresolved payout transactions", err)
	}

	byHash := make(map[string]*models.SellerPayoutTransaction, len(transactions))
	candidates := make([]txCandidate, 0, len(transactions))
	for i := range transactions {
		t := &transactions[i]
		contract := t.SellerPayout.SellerMarketplace.SmartContractAddress
		if contract == "" {
			return apperrors.NewInternal(fmt.Sprintf("payout %s references seller marketplace %s with no deployed address", t.SellerPayoutID, t.SellerPayout.SellerMarketplaceID))
		}
		byHash[t.Hash] = t
		candidates = append(candidates, txCandidate{ID: t.ID, Hash: t.Hash, Contract: contract})
	}

	for _, group := range groupByContract(candidates) {
		results, err := reader.GetTransactions(ctx, group.Contract, group.Hashes)
		if err != nil {
			return apperrors.WrapInternal("chain reader query failed", err)
		}

		for _, result := range results {
			cand, ok := group.match(result)
			if !ok {
				continue
			}
			transaction := byHash[cand.Hash]

			if !result.Success {
				if err := s.markPayoutTransactionFailed(cand.ID, result); err != nil {
					return err
				}
				continue
			}

			if err := s.confirmPayout(transaction, result); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *ReconcileService) markPayoutTransactionFailed(txID uuid.UUID, result blockchain.TransactionResult) error {
	err := s.db.Model(&models.SellerPayoutTransaction{}).
		Where("id = ?", txID).
		Updates(failedTransactionUpdates(result)).Error
	if err != nil {
		return apperrors.WrapInternal("failed to record transaction failure", err)
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txID,
		"hash":           result.Hash,
		"error":          result.Error,
	}).Info("Payout withdrawal transaction failed on chain")
	return nil
}

// confirmPayout cross-validates the withdrawal sender against the
// marketplace's recorded owner wallet before committing. A sender mismatch
// means someone other than the marketplace owner produced the transaction
// and is a fatal consistency error.
func (s *ReconcileService) confirmPayout(transaction *models.SellerPayoutTransaction, result blockchain.TransactionResult) error {
	if err := validateSuccessResult(result); err != nil {
		return err
	}

	ownerWallet := transaction.SellerPayout.SellerMarketplace.OwnerWalletAddress
	if !strings.EqualFold(result.SenderAddress, ownerWallet) {
		return apperrors.NewInternal(fmt.Sprintf("payout %s sender mismatch: transaction from %s, marketplace owner wallet is %s", transaction.SellerPayoutID, result.SenderAddress, ownerWallet))
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var fresh models.SellerPayout
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&fresh, "id = ?", transaction.SellerPayoutID).Error
		if err != nil {
			return apperrors.WrapInternal("failed to lock seller payout", err)
		}
		if err := tx.Model(&models.SellerPayoutTransaction{}).Where("seller_payout_id = ?", fresh.ID).Find(&fresh.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load payout transactions", err)
		}

		status, err := DeriveStatus(PayoutState(&fresh))
		if err != nil {
			return err
		}
		if status != models.OwnerStatusAwaitingConfirmation {
			return apperrors.NewInternal(fmt.Sprintf("seller payout %s changed status to %s before commit", fresh.ID, status))
		}

		now := time.Now().UTC()
		if err := tx.Model(&fresh).Update("confirmed_at", now).Error; err != nil {
			return apperrors.WrapInternal("failed to confirm seller payout", err)
		}

		err = tx.Model(&models.SellerPayoutTransaction{}).
			Where("id = ?", transaction.ID).
			Updates(confirmedTransactionUpdates(result)).Error
		if err != nil {
			return apperrors.WrapInternal("failed to confirm payout transaction", err)
		}

		logrus.WithFields(logrus.Fields{
			"seller_payout_id": fresh.ID,
			"hash":             result.Hash,
		}).Info("Seller payout confirmed")
		return nil
	})
}
