// internal/services/reconcile_marketplace.go
package services

import (
	"context"
	"fmt"
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

// ReconcileSellerMarketplace polls the chain for one marketplace's unresolved
// registration transactions and commits the confirmation once the on-chain
// registration cross-validates.
func (s *ReconcileService) ReconcileSellerMarketplace(ctx context.Context, marketplaceID uuid.UUID) error {
	return s.withScopeLock(ctx, "seller-marketplace:"+marketplaceID.String(), func() error {
		return s.reconcileSellerMarketplace(ctx, marketplaceID)
	})
}

func (s *ReconcileService) reconcileSellerMarketplace(ctx context.Context, marketplaceID uuid.UUID) error {
	var marketplace models.SellerMarketplace
	err := s.db.
		Preload("Network").
		Preload("NetworkMarketplace").
		Preload("Transactions").
		First(&marketplace, "id = ?", marketplaceID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.NewClient("seller marketplace does not exist")
		}
		return apperrors.WrapInternal("failed to load seller marketplace", err)
	}

	status, err := DeriveStatus(MarketplaceState(&marketplace))
	if err != nil {
		return err
	}
	if status != models.OwnerStatusAwaitingConfirmation {
		// Nothing unresolved to reconcile.
		return nil
	}

	reader, err := s.registry.ReaderFor(marketplace.Network.ChainID)
	if err != nil {
		return apperrors.WrapInternal("no chain reader configured", err)
	}
	stateClient, err := s.registry.StateFor(marketplace.Network.ChainID)
	if err != nil {
		return apperrors.WrapInternal("no contract state client configured", err)
	}

	contract := marketplace.NetworkMarketplace.SmartContractAddress

	candidates := make([]txCandidate, 0, len(marketplace.Transactions))
	for _, t := range marketplace.Transactions {
		if t.Unresolved() {
			candidates = append(candidates, txCandidate{ID: t.ID, Hash: t.Hash, Contract: contract})
		}
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

			if !result.Success {
				if err := s.markMarketplaceTransactionFailed(cand.ID, result); err != nil {
					return err
				}
				continue
			}

			if err := s.confirmMarketplace(ctx, &marketplace, stateClient, cand, result); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *ReconcileService) markMarketplaceTransactionFailed(txID uuid.UUID, result blockchain.TransactionResult) error {
	err := s.db.Model(&models.SellerMarketplaceTransaction{}).
		Where("id = ?", txID).
		Updates(failedTransactionUpdates(result)).Error
	if err != nil {
		return apperrors.WrapInternal("failed to record transaction failure", err)
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txID,
		"hash":           result.Hash,
		"error":          result.Error,
	}).Info("Marketplace registration transaction failed on chain")
	return nil
}

// confirmMarketplace cross-validates the registration against the network
// marketplace contract and atomically commits the confirmation: the
// marketplace's deployed address + owner wallet together with the
// transaction's confirmation fields.
func (s *ReconcileService) confirmMarketplace(ctx context.Context, marketplace *models.SellerMarketplace, stateClient blockchain.ContractStateClient, cand txCandidate, result blockchain.TransactionResult) error {
	if err := validateSuccessResult(result); err != nil {
		return err
	}

	address, err := stateClient.GetSellerMarketplaceAddress(ctx, cand.Contract, marketplace.SellerID, marketplace.ID)
	if err != nil {
		return apperrors.WrapInternal("contract state query failed", err)
	}
	if address == "" {
		return apperrors.NewInternal(fmt.Sprintf("transaction %s succeeded but the contract has no registered address for marketplace %s", result.Hash, marketplace.ID))
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var fresh models.SellerMarketplace
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&fresh, "id = ?", marketplace.ID).Error
		if err != nil {
			return apperrors.WrapInternal("failed to lock seller marketplace", err)
		}

		// Checked inside the commit transaction so a concurrent run for a
		// different marketplace cannot claim the address between check and
		// write. The partial unique index on the column backstops this.
		var claimed int64
		err = tx.Model(&models.SellerMarketplace{}).
			Where("smart_contract_address = ? AND id <> ?", address, fresh.ID).
			Count(&claimed).Error
		if err != nil {
			return apperrors.WrapInternal("failed to check for duplicate marketplace address", err)
		}
		if claimed > 0 {
			return apperrors.NewInternal(fmt.Sprintf("address %s already belongs to a different seller marketplace", address))
		}
		if err := tx.Model(&models.SellerMarketplaceTransaction{}).Where("seller_marketplace_id = ?", fresh.ID).Find(&fresh.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load marketplace transactions", err)
		}

		status, err := DeriveStatus(MarketplaceState(&fresh))
		if err != nil {
			return err
		}
		if status != models.OwnerStatusAwaitingConfirmation {
			return apperrors.NewInternal(fmt.Sprintf("seller marketplace %s changed status to %s before commit", fresh.ID, status))
		}

		now := time.Now().UTC()
		err = tx.Model(&fresh).Updates(map[string]interface{}{
			"confirmed_at":           now,
			"smart_contract_address": address,
			"owner_wallet_address":   result.SenderAddress,
		}).Error
		if err != nil {
			return apperrors.WrapInternal("failed to confirm seller marketplace", err)
		}

		err = tx.Model(&models.SellerMarketplaceTransaction{}).
			Where("id = ?", cand.ID).
			Updates(confirmedTransactionUpdates(result)).Error
		if err != nil {
			return apperrors.WrapInternal("failed to confirm marketplace transaction", err)
		}

		logrus.WithFields(logrus.Fields{
			"seller_marketplace_id": fresh.ID,
			"address":               address,
			"hash":                  result.Hash,
		}).Info("Seller marketplace confirmed")
		return nil
	})
}
