// internal/services/marketplace_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/database"
	"github.com/chainmart/chainmart-backend/internal/models"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type MarketplaceService struct {
	db *gorm.DB
}

type CreateMarketplaceRequest struct {
	NetworkMarketplaceID uuid.UUID `json:"network_marketplace_id" validate:"required"`
}

type SubmitTransactionRequest struct {
	TransactionHash string `json:"transaction_hash" validate:"required"`
}

// MarketplaceView pairs a marketplace with its derived lifecycle status.
type MarketplaceView struct {
	*models.SellerMarketplace
	Status models.OwnerStatus `json:"status"`
}

func NewMarketplaceService(db *gorm.DB) *MarketplaceService {
	return &MarketplaceService{db: db}
}

// CreateSellerMarketplace creates a draft activation record against one
// network marketplace template. The on-chain flow begins when the seller
// submits a registration transaction hash.
func (s *MarketplaceService) CreateSellerMarketplace(sellerID uuid.UUID, req *CreateMarketplaceRequest) (*MarketplaceView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid marketplace input", utils.FieldErrors(err))
	}

	var template models.NetworkMarketplace
	if err := s.db.First(&template, "id = ?", req.NetworkMarketplaceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("network marketplace does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load network marketplace", err)
	}

	marketplace := &models.SellerMarketplace{
		SellerID:             sellerID,
		NetworkID:            template.NetworkID,
		NetworkMarketplaceID: template.ID,
	}
	if err := s.db.Create(marketplace).Error; err != nil {
		return nil, apperrors.WrapInternal("failed to create seller marketplace", err)
	}

	return &MarketplaceView{SellerMarketplace: marketplace, Status: models.OwnerStatusDraft}, nil
}

// SubmitTransaction records a registration transaction hash against the
// marketplace, moving a draft to pending. A new transaction is accepted only
// when no other transaction is still unresolved; the check runs inside the
// same database transaction that inserts the row, under a row lock on the
// owner, so it serializes with the reconciler's commit.
func (s *MarketplaceService) SubmitTransaction(sellerID, marketplaceID uuid.UUID, req *SubmitTransactionRequest) (*MarketplaceView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid transaction input", utils.FieldErrors(err))
	}
	if !ValidTransactionHash(req.TransactionHash) {
		return nil, apperrors.NewValidation("invalid transaction input", []apperrors.FieldError{
			{Field: "transaction_hash", Message: "must be 0x followed by 64 hex characters"},
		})
	}

	var view *MarketplaceView
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var marketplace models.SellerMarketplace
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&marketplace, "id = ? AND seller_id = ?", marketplaceID, sellerID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NewClient("seller marketplace does not exist")
			}
			return apperrors.WrapInternal("failed to load seller marketplace", err)
		}
		if err := tx.Model(&models.SellerMarketplaceTransaction{}).Where("seller_marketplace_id = ?", marketplace.ID).Find(&marketplace.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load marketplace transactions", err)
		}

		status, err := DeriveStatus(MarketplaceState(&marketplace))
		if err != nil {
			return err
		}
		switch status {
		case models.OwnerStatusConfirmed:
			return apperrors.NewClient("seller marketplace is already confirmed")
		case models.OwnerStatusAwaitingConfirmation:
			return apperrors.NewConflict("a pending transaction already exists for this marketplace")
		}

		if marketplace.PendingAt == nil {
			now := time.Now().UTC()
			if err := tx.Model(&marketplace).Update("pending_at", now).Error; err != nil {
				return apperrors.WrapInternal("failed to mark marketplace pending", err)
			}
			marketplace.PendingAt = &now
		}

		transaction := &models.SellerMarketplaceTransaction{
			BlockchainTransaction: models.BlockchainTransaction{Hash: req.TransactionHash},
			SellerMarketplaceID:   marketplace.ID,
			NetworkID:             marketplace.NetworkID,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.NewConflict("transaction hash is already in use")
		}
		marketplace.Transactions = append(marketplace.Transactions, *transaction)

		view = &MarketplaceView{SellerMarketplace: &marketplace, Status: models.OwnerStatusAwaitingConfirmation}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *MarketplaceService) GetSellerMarketplace(sellerID, marketplaceID uuid.UUID) (*MarketplaceView, error) {
	var marketplace models.SellerMarketplace
	err := s.db.
		Preload("Network").
		Preload("NetworkMarketplace").
		Preload("Transactions").
		First(&marketplace, "id = ? AND seller_id = ?", marketplaceID, sellerID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("seller marketplace does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load seller marketplace", err)
	}

	status, err := DeriveStatus(MarketplaceState(&marketplace))
	if err != nil {
		return nil, err
	}
	return &MarketplaceView{SellerMarketplace: &marketplace, Status: status}, nil
}

func (s *MarketplaceService) ListSellerMarketplaces(sellerID uuid.UUID, params utils.PaginationParams) ([]MarketplaceView, int64, error) {
	query := s.db.Model(&models.SellerMarketplace{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to count seller marketplaces", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "pending_at", "confirmed_at"})
	query = utils.ApplyPagination(query, params)

	var marketplaces []models.SellerMarketplace
	if err := query.Preload("Network").Preload("Transactions").Find(&marketplaces).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to fetch seller marketplaces", err)
	}

	views := make([]MarketplaceView, 0, len(marketplaces))
	for i := range marketplaces {
		status, err := DeriveStatus(MarketplaceState(&marketplaces[i]))
		if err != nil {
			return nil, 0, err
		}
		views = append(views, MarketplaceView{SellerMarketplace: &marketplaces[i], Status: status})
	}

	return views, total, nil
}
