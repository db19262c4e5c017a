// internal/services/payout_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/database"
	"github.com/chainmart/chainmart-backend/internal/models"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

type PayoutService struct {
	db *gorm.DB
}

type CreatePayoutRequest struct {
	SellerMarketplaceID uuid.UUID `json:"seller_marketplace_id" validate:"required"`
	TokenID             uuid.UUID `json:"token_id" validate:"required"`
	Amount              string    `json:"amount" validate:"required"`
}

// PayoutView pairs a payout with its derived lifecycle status.
type PayoutView struct {
	*models.SellerPayout
	Status models.OwnerStatus `json:"status"`
}

// Balance is a seller's withdrawable amount for one marketplace and token:
// confirmed sales income minus every payout that is not cancelled.
type Balance struct {
	SellerMarketplaceID uuid.UUID       `json:"seller_marketplace_id"`
	TokenID             uuid.UUID       `json:"token_id"`
	Available           decimal.Decimal `json:"available"`
	AvailableFormatted  string          `json:"available_formatted"`
}

func NewPayoutService(db *gorm.DB) *PayoutService {
	return &PayoutService{db: db}
}

func (s *PayoutService) GetBalance(sellerID, marketplaceID, tokenID uuid.UUID) (*Balance, error) {
	marketplace, token, err := s.marketplaceAndToken(sellerID, marketplaceID, tokenID)
	if err != nil {
		return nil, err
	}

	available, err := s.availableBalance(marketplace.ID, token.ID)
	if err != nil {
		return nil, err
	}

	return &Balance{
		SellerMarketplaceID: marketplace.ID,
		TokenID:             token.ID,
		Available:           available,
		AvailableFormatted:  FormatAmount(available, token.Symbol),
	}, nil
}

// CreatePayout creates a draft withdrawal request. The requested amount must
// not exceed the seller's available balance at request time.
func (s *PayoutService) CreatePayout(sellerID uuid.UUID, req *CreatePayoutRequest) (*PayoutView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid payout input", utils.FieldErrors(err))
	}

	marketplace, token, err := s.marketplaceAndToken(sellerID, req.SellerMarketplaceID, req.TokenID)
	if err != nil {
		return nil, err
	}
	if marketplace.ConfirmedAt == nil {
		return nil, apperrors.NewConflict("seller marketplace is not confirmed yet")
	}

	amount, err := parsePrice(req.Amount, token.Decimals)
	if err != nil {
		return nil, err
	}

	available, err := s.availableBalance(marketplace.ID, token.ID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(available) {
		return nil, apperrors.NewClient("insufficient balance for payout")
	}

	payout := &models.SellerPayout{
		SellerID:            sellerID,
		SellerMarketplaceID: marketplace.ID,
		TokenID:             token.ID,
		Amount:              amount,
		Decimals:            token.Decimals,
		AmountFormatted:     FormatAmount(amount, token.Symbol),
	}
	if err := s.db.Create(payout).Error; err != nil {
		return nil, apperrors.WrapInternal("failed to create payout", err)
	}

	return &PayoutView{SellerPayout: payout, Status: models.OwnerStatusDraft}, nil
}

// SubmitTransaction records a withdrawal transaction hash against the
// payout, with the same single-unresolved-transaction write check as orders
// and marketplaces.
func (s *PayoutService) SubmitTransaction(sellerID, payoutID uuid.UUID, req *SubmitTransactionRequest) (*PayoutView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid transaction input", utils.FieldErrors(err))
	}
	if !ValidTransactionHash(req.TransactionHash) {
		return nil, apperrors.NewValidation("invalid transaction input", []apperrors.FieldError{
			{Field: "transaction_hash", Message: "must be 0x followed by 64 hex characters"},
		})
	}

	var view *PayoutView
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var payout models.SellerPayout
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payout, "id = ? AND seller_id = ?", payoutID, sellerID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NewClient("payout does not exist")
			}
			return apperrors.WrapInternal("failed to load payout", err)
		}
		if err := tx.Model(&models.SellerPayoutTransaction{}).Where("seller_payout_id = ?", payout.ID).Find(&payout.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load payout transactions", err)
		}

		status, err := DeriveStatus(PayoutState(&payout))
		if err != nil {
			return err
		}
		switch status {
		case models.OwnerStatusConfirmed:
			return apperrors.NewClient("payout is already confirmed")
		case models.OwnerStatusCancelled:
			return apperrors.NewClient("payout is cancelled")
		case models.OwnerStatusAwaitingConfirmation:
			return apperrors.NewConflict("a pending transaction already exists for this payout")
		}

		if payout.PendingAt == nil {
			now := time.Now().UTC()
			if err := tx.Model(&payout).Update("pending_at", now).Error; err != nil {
				return apperrors.WrapInternal("failed to mark payout pending", err)
			}
			payout.PendingAt = &now
		}

		var marketplace models.SellerMarketplace
		if err := tx.Select("network_id").First(&marketplace, "id = ?", payout.SellerMarketplaceID).Error; err != nil {
			return apperrors.WrapInternal("failed to load seller marketplace", err)
		}

		transaction := &models.SellerPayoutTransaction{
			BlockchainTransaction: models.BlockchainTransaction{Hash: req.TransactionHash},
			SellerPayoutID:        payout.ID,
			NetworkID:             marketplace.NetworkID,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.NewConflict("transaction hash is already in use")
		}
		payout.Transactions = append(payout.Transactions, *transaction)

		view = &PayoutView{SellerPayout: &payout, Status: models.OwnerStatusAwaitingConfirmation}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CancelPayout cancels a draft or pending payout.
func (s *PayoutService) CancelPayout(sellerID, payoutID uuid.UUID) (*PayoutView, error) {
	var view *PayoutView
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var payout models.SellerPayout
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payout, "id = ? AND seller_id = ?", payoutID, sellerID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NewClient("payout does not exist")
			}
			return apperrors.WrapInternal("failed to load payout", err)
		}
		if err := tx.Model(&models.SellerPayoutTransaction{}).Where("seller_payout_id = ?", payout.ID).Find(&payout.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load payout transactions", err)
		}

		status, err := DeriveStatus(PayoutState(&payout))
		if err != nil {
			return err
		}
		switch status {
		case models.OwnerStatusDraft, models.OwnerStatusPending:
		case models.OwnerStatusAwaitingConfirmation:
			return apperrors.NewConflict("a pending transaction exists; the payout cannot be cancelled")
		default:
			return apperrors.NewClient("payout is already " + string(status))
		}

		now := time.Now().UTC()
		if err := tx.Model(&payout).Update("cancelled_at", now).Error; err != nil {
			return apperrors.WrapInternal("failed to cancel payout", err)
		}
		payout.CancelledAt = &now

		view = &PayoutView{SellerPayout: &payout, Status: models.OwnerStatusCancelled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *PayoutService) GetPayout(sellerID, payoutID uuid.UUID) (*PayoutView, error) {
	var payout models.SellerPayout
	err := s.db.
		Preload("Token").
		Preload("Transactions").
		First(&payout, "id = ? AND seller_id = ?", payoutID, sellerID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("payout does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load payout", err)
	}

	status, err := DeriveStatus(PayoutState(&payout))
	if err != nil {
		return nil, err
	}
	return &PayoutView{SellerPayout: &payout, Status: status}, nil
}

func (s *PayoutService) ListPayouts(sellerID uuid.UUID, params utils.PaginationParams) ([]PayoutView, int64, error) {
	query := s.db.Model(&models.SellerPayout{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to count payouts", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "pending_at", "confirmed_at"})
	query = utils.ApplyPagination(query, params)

	var payouts []models.SellerPayout
	if err := query.Preload("Token").Preload("Transactions").Find(&payouts).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to fetch payouts", err)
	}

	views := make([]PayoutView, 0, len(payouts))
	for i := range payouts {
		status, err := DeriveStatus(PayoutState(&payouts[i]))
		if err != nil {
			return nil, 0, err
		}
		views = append(views, PayoutView{SellerPayout: &payouts[i], Status: status})
	}

	return views, total, nil
}

func (s *PayoutService) availableBalance(marketplaceID, tokenID uuid.UUID) (decimal.Decimal, error) {
	var earned struct{ Total decimal.Decimal }
	err := s.db.Model(&models.ProductSale{}).
		Select("COALESCE(SUM(seller_income), 0) AS total").
		Where("seller_marketplace_id = ? AND token_id = ?", marketplaceID, tokenID).
		Scan(&earned).Error
	if err != nil {
		return decimal.Decimal{}, apperrors.WrapInternal("failed to sum sales income", err)
	}

	var withdrawn struct{ Total decimal.Decimal }
	err = s.db.Model(&models.SellerPayout{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("seller_marketplace_id = ? AND token_id = ? AND cancelled_at IS NULL", marketplaceID, tokenID).
		Scan(&withdrawn).Error
	if err != nil {
		return decimal.Decimal{}, apperrors.WrapInternal("failed to sum payouts", err)
	}

	return earned.Total.Sub(withdrawn.Total), nil
}

func (s *PayoutService) marketplaceAndToken(sellerID, marketplaceID, tokenID uuid.UUID) (*models.SellerMarketplace, *models.Token, error) {
	var marketplace models.SellerMarketplace
	err := s.db.First(&marketplace, "id = ? AND seller_id = ?", marketplaceID, sellerID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperrors.NewClient("seller marketplace does not exist")
		}
		return nil, nil, apperrors.WrapInternal("failed to load seller marketplace", err)
	}

	var token models.Token
	if err := s.db.First(&token, "id = ?", tokenID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperrors.NewClient("token does not exist")
		}
		return nil, nil, apperrors.WrapInternal("failed to load token", err)
	}
	if token.NetworkID != marketplace.NetworkID {
		return nil, nil, apperrors.NewClient("token is not available on the marketplace's network")
	}

	return &marketplace, &token, nil
}
