// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductOrder is a buyer's purchase intent for one product. At most one of
// ConfirmedAt, CancelledAt and RefundedAt may be set; they are mutually
// exclusive terminal states.
type ProductOrder struct {
	BaseModel
	BuyerID             uuid.UUID       `json:"buyer_id" gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	SellerMarketplaceID uuid.UUID       `json:"seller_marketplace_id" gorm:"type:uuid;not null;index"`
	TokenID             uuid.UUID       `json:"token_id" gorm:"type:uuid;not null;index"`
	Price               decimal.Decimal `json:"price" gorm:"type:numeric(78,18);not null"`
	PriceDecimals       int32           `json:"price_decimals" gorm:"not null"`
	PriceFormatted      string          `json:"price_formatted" gorm:"size:100"`
	PendingAt           *time.Time      `json:"pending_at"`
	ConfirmedAt         *time.Time      `json:"confirmed_at"`
	CancelledAt         *time.Time      `json:"cancelled_at"`
	RefundedAt          *time.Time      `json:"refunded_at"`

	// Relationships
	Buyer             User                      `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Product           Product                   `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	SellerMarketplace SellerMarketplace         `json:"seller_marketplace,omitempty" gorm:"foreignKey:SellerMarketplaceID"`
	Token             Token                     `json:"token,omitempty" gorm:"foreignKey:TokenID"`
	Transactions      []ProductOrderTransaction `json:"transactions,omitempty" gorm:"foreignKey:ProductOrderID"`
}

type ProductOrderTransaction struct {
	BaseModel
	BlockchainTransaction
	ProductOrderID uuid.UUID `json:"product_order_id" gorm:"type:uuid;not null;index"`
	NetworkID      uuid.UUID `json:"network_id" gorm:"type:uuid;not null;index"`

	// Relationships
	ProductOrder ProductOrder `json:"product_order,omitempty" gorm:"foreignKey:ProductOrderID"`
	Network      Network      `json:"network,omitempty" gorm:"foreignKey:NetworkID"`
}
