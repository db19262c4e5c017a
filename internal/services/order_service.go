// internal/services/order_service.go
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

type OrderService struct {
	db *gorm.DB
}

type CreateOrderRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// OrderView pairs an order with its derived lifecycle status.
type OrderView struct {
	*models.ProductOrder
	Status models.OwnerStatus `json:"status"`
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// CreateOrder creates a draft purchase intent, capturing the product's
// current price, token and marketplace. Later price changes on the product
// do not affect the order.
func (s *OrderService) CreateOrder(buyerID uuid.UUID, req *CreateOrderRequest) (*OrderView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid order input", utils.FieldErrors(err))
	}

	var product models.Product
	err := s.db.Preload("SellerMarketplace").First(&product, "id = ?", req.ProductID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("product does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load product", err)
	}
	if product.SellerMarketplace.ConfirmedAt == nil {
		return nil, apperrors.NewConflict("seller marketplace is not confirmed yet")
	}

	order := &models.ProductOrder{
		BuyerID:             buyerID,
		ProductID:           product.ID,
		SellerMarketplaceID: product.SellerMarketplaceID,
		TokenID:             product.TokenID,
		Price:               product.Price,
		PriceDecimals:       product.PriceDecimals,
		PriceFormatted:      product.PriceFormatted,
	}
	if err := s.db.Create(order).Error; err != nil {
		return nil, apperrors.WrapInternal("failed to create order", err)
	}

	return &OrderView{ProductOrder: order, Status: models.OwnerStatusDraft}, nil
}

// SubmitTransaction records a payment transaction hash against the order.
// The "no unresolved transaction" check runs inside the insert's database
// transaction under a row lock on the order, serializing with both a second
// submission and the reconciler's commit.
func (s *OrderService) SubmitTransaction(buyerID, orderID uuid.UUID, req *SubmitTransactionRequest) (*OrderView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidation("invalid transaction input", utils.FieldErrors(err))
	}
	if !ValidTransactionHash(req.TransactionHash) {
		return nil, apperrors.NewValidation("invalid transaction input", []apperrors.FieldError{
			{Field: "transaction_hash", Message: "must be 0x followed by 64 hex characters"},
		})
	}

	var view *OrderView
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var order models.ProductOrder
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ? AND buyer_id = ?", orderID, buyerID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NewClient("order does not exist")
			}
			return apperrors.WrapInternal("failed to load order", err)
		}
		if err := tx.Model(&models.ProductOrderTransaction{}).Where("product_order_id = ?", order.ID).Find(&order.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load order transactions", err)
		}

		status, err := DeriveStatus(OrderState(&order))
		if err != nil {
			return err
		}
		switch status {
		case models.OwnerStatusConfirmed:
			return apperrors.NewClient("order is already confirmed")
		case models.OwnerStatusCancelled:
			return apperrors.NewClient("order is cancelled")
		case models.OwnerStatusRefunded:
			return apperrors.NewClient("order is refunded")
		case models.OwnerStatusAwaitingConfirmation:
			return apperrors.NewConflict("a pending transaction already exists for this order")
		}

		if order.PendingAt == nil {
			now := time.Now().UTC()
			if err := tx.Model(&order).Update("pending_at", now).Error; err != nil {
				return apperrors.WrapInternal("failed to mark order pending", err)
			}
			order.PendingAt = &now
		}

		var marketplace models.SellerMarketplace
		if err := tx.Select("network_id").First(&marketplace, "id = ?", order.SellerMarketplaceID).Error; err != nil {
			return apperrors.WrapInternal("failed to load seller marketplace", err)
		}

		transaction := &models.ProductOrderTransaction{
			BlockchainTransaction: models.BlockchainTransaction{Hash: req.TransactionHash},
			ProductOrderID:        order.ID,
			NetworkID:             marketplace.NetworkID,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.NewConflict("transaction hash is already in use")
		}
		order.Transactions = append(order.Transactions, *transaction)

		view = &OrderView{ProductOrder: &order, Status: models.OwnerStatusAwaitingConfirmation}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CancelOrder cancels a draft or pending order. Orders awaiting confirmation
// of a submitted transaction cannot be cancelled.
func (s *OrderService) CancelOrder(buyerID, orderID uuid.UUID) (*OrderView, error) {
	var view *OrderView
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var order models.ProductOrder
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ? AND buyer_id = ?", orderID, buyerID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NewClient("order does not exist")
			}
			return apperrors.WrapInternal("failed to load order", err)
		}
		if err := tx.Model(&models.ProductOrderTransaction{}).Where("product_order_id = ?", order.ID).Find(&order.Transactions).Error; err != nil {
			return apperrors.WrapInternal("failed to load order transactions", err)
		}

		status, err := DeriveStatus(OrderState(&order))
		if err != nil {
			return err
		}
		switch status {
		case models.OwnerStatusDraft, models.OwnerStatusPending:
		case models.OwnerStatusAwaitingConfirmation:
			return apperrors.NewConflict("a pending transaction exists; the order cannot be cancelled")
		default:
			return apperrors.NewClient("order is already " + string(status))
		}

		now := time.Now().UTC()
		if err := tx.Model(&order).Update("cancelled_at", now).Error; err != nil {
			return apperrors.WrapInternal("failed to cancel order", err)
		}
		order.CancelledAt = &now

		view = &OrderView{ProductOrder: &order, Status: models.OwnerStatusCancelled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *OrderService) GetOrder(buyerID, orderID uuid.UUID) (*OrderView, error) {
	var order models.ProductOrder
	err := s.db.
		Preload("Product").
		Preload("Token").
		Preload("Transactions").
		First(&order, "id = ? AND buyer_id = ?", orderID, buyerID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient("order does not exist")
		}
		return nil, apperrors.WrapInternal("failed to load order", err)
	}

	status, err := DeriveStatus(OrderState(&order))
	if err != nil {
		return nil, err
	}
	return &OrderView{ProductOrder: &order, Status: status}, nil
}

func (s *OrderService) ListOrders(buyerID uuid.UUID, params utils.PaginationParams) ([]OrderView, int64, error) {
	query := s.db.Model(&models.ProductOrder{}).Where("buyer_id = ?", buyerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to count orders", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "pending_at", "confirmed_at"})
	query = utils.ApplyPagination(query, params)

	var orders []models.ProductOrder
	if err := query.Preload("Product").Preload("Token").Preload("Transactions").Find(&orders).Error; err != nil {
		return nil, 0, apperrors.WrapInternal("failed to fetch orders", err)
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		status, err := DeriveStatus(OrderState(&orders[i]))
		if err != nil {
			return nil, 0, err
		}
		views = append(views, OrderView{ProductOrder: &orders[i], Status: status})
	}

	return views, total, nil
}
