// internal/services/reconcile_order.go
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

// ReconcileProductOrders polls the chain for every unresolved order payment
// transaction on one network and commits confirmations, failures and the
// derived product sale records.
func (s *ReconcileService) ReconcileProductOrders(ctx context.Context, chainID int64) error {
	return s.withScopeLock(ctx, fmt.Sprintf("product-orders:%d", chainID), func() error {
		return s.reconcileProductOrders(ctx, chainID)
	})
}

func (s *ReconcileService) reconcileProductOrders(ctx context.Context, chainID int64) error {
	network, err := s.networkByChainID(chainID)
	if err != nil {
		return err
	}

	reader, err := s.registry.ReaderFor(chainID)
	if err != nil {
		return apperrors.WrapInternal("no chain reader configured", err)
	}
	stateClient, err := s.registry.StateFor(chainID)
	if err != nil {
		return apperrors.WrapInternal("no contract state client configured", err)
	}

	var transactions []models.ProductOrderTransaction
	err = s.db.
		Joins("JOIN product_orders ON product_orders.id = product_order_transactions.product_order_id AND product_orders.deleted_at IS NULL").
		Where("product_order_transactions.network_id = ?", network.ID).
		Where("product_order_transactions.confirmed_at IS NULL").
		Where("product_order_transactions.failed_at IS NULL").
		Where("product_orders.confirmed_at IS NULL").
		Where("product_orders.cancelled_at IS NULL").
		Where("product_orders.refunded_at IS NULL").
		Preload("ProductOrder").
		Preload("ProductOrder.SellerMarketplace").
		Preload("ProductOrder.SellerMarketplace.NetworkMarketplace").
		Preload("ProductOrder.Token").
		Order("product_order_transactions.created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return apperrors.WrapInternal("failed to load unresolved order transactions", err)
	}

	byHash := make(map[string]*models.ProductOrderTransaction, len(transactions))
	candidates := make([]txCandidate, 0, len(transactions))
	for i := range transactions {
		t := &transactions[i]
		contract := t.ProductOrder.SellerMarketplace.SmartContractAddress
		if contract == "" {
			return apperrors.NewInternal(fmt.Sprintf("order %s references seller marketplace %s with no deployed address", t.ProductOrderID, t.ProductOrder.SellerMarketplaceID))
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
				if err := s.markOrderTransactionFailed(cand.ID, result); err != nil {
					return err
				}
				continue
			}

			if err := s.confirmOrder(ctx, transaction, stateClient, group.Contract, result); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *ReconcileService) markOrderTransactionFailed(txID uuid.UUID, result blockchain.TransactionResult) error {
	err := s.db.Model(&models.ProductOrderTransaction{}).
		Where("id = ?", txID).
		Updates(failedTransactionUpdates(result)).Error
	if err != nil {
		return apperrors.WrapInternal("failed to record transaction failure", err)
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txID,
		"hash":           result.Hash,
		"error":          result.Error,
	}).Info("Order payment transaction failed on chain")
	return nil
}

// confirmOrder cross-validates the payment against the seller marketplace
// contract's own order record. The payment contract and fixed-point price
// must match the locally expected token and price exactly; a mismatch means
// tampering or a pricing bug and aborts the run without partial writes.
func (s *ReconcileService) confirmOrder(ctx context.Context, transaction *models.ProductOrderTransaction, stateClient blockchain.ContractStateClient, contract string, result blockchain.TransactionResult) error {
	if err := validateSuccessResult(result); err != nil {
		return err
	}

	order := &transaction.ProductOrder
	token := order.Token

	onchain, err := stateClient.GetOrder(ctx, contract, order.ID)
	if err != nil {
		return apperrors.WrapInternal("contract state query failed", err)
	}
	if onchain == nil {
		return apperrors.NewInternal(fmt.Sprintf("transaction %s succeeded but order %s is unknown to contract %s", result.Hash, order.ID, contract))
	}

	expectedUnits := order.Price.Shift(order.PriceDecimals)
	if !onchain.Price.Equal(expectedUnits) {
		return apperrors.NewInternal(fmt.Sprintf("order %s price mismatch: contract reports %s units, expected %s", order.ID, onchain.Price, expectedUnits))
	}
	if !paymentContractMatches(onchain.PaymentContract, &token) {
		return apperrors.NewInternal(fmt.Sprintf("order %s payment contract mismatch: contract reports %q, expected %q", order.ID, onchain.PaymentContract, token.SmartContractAddress))
	}

	commissionRate := order.SellerMarketplace.NetworkMarketplace.CommissionRatePercent
	split, err := Split(order.Price, commissionRate, order.PriceDecimals, token.Symbol)
	if err != nil {
		return err
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var fresh models.ProductOrder
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&fresh, "id = ?", order.ID).Error
		if err != nil {
			return apperrors.WrapInternal("failed to lock product order", err)
		}
		if err := tx.Model(&models.ProductOrderTransaction{}).Where("product_order_id = ?", fresh.ID).Find(&fresh.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load order transactions", err)
		}

		status, err := DeriveStatus(OrderState(&fresh))
		if err != nil {
			return err
		}
		if status != models.OwnerStatusAwaitingConfirmation {
			return apperrors.NewInternal(fmt.Sprintf("product order %s changed status to %s before commit", fresh.ID, status))
		}

		now := time.Now().UTC()
		if err := tx.Model(&fresh).Update("confirmed_at", now).Error; err != nil {
			return apperrors.WrapInternal("failed to confirm product order", err)
		}

		err = tx.Model(&models.ProductOrderTransaction{}).
			Where("id = ?", transaction.ID).
			Updates(confirmedTransactionUpdates(result)).Error
		if err != nil {
			return apperrors.WrapInternal("failed to confirm order transaction", err)
		}

		sale := &models.ProductSale{
			ProductOrderTransactionID: transaction.ID,
			ProductOrderID:            fresh.ID,
			SellerMarketplaceID:       order.SellerMarketplaceID,
			TokenID:                   order.TokenID,
			CommissionRatePercent:     commissionRate,
			SellerIncome:              split.SellerIncome,
			SellerIncomeFormatted:     split.SellerIncomeFormatted,
			PlatformIncome:            split.PlatformIncome,
			PlatformIncomeFormatted:   split.PlatformIncomeFormatted,
		}
		if err := tx.Create(sale).Error; err != nil {
			return apperrors.WrapInternal("failed to create product sale", err)
		}

		logrus.WithFields(logrus.Fields{
			"product_order_id": fresh.ID,
			"hash":             result.Hash,
			"seller_income":    split.SellerIncomeFormatted,
			"platform_income":  split.PlatformIncomeFormatted,
		}).Info("Product order confirmed")
		return nil
	})
}

// paymentContractMatches compares the contract-reported payment asset with
// the locally expected token: native-coin orders must report no payment
// contract, token orders must report the token's own contract address.
func paymentContractMatches(onchainContract string, token *models.Token) bool {
	if token.Native() {
		return onchainContract == ""
	}
	return strings.EqualFold(onchainContract, token.SmartContractAddress)
}
