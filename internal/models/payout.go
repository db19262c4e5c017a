// internal/models/payout.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerPayout is a seller's withdrawal request against accumulated token
// balance on one marketplace.
type SellerPayout struct {
	BaseModel
	SellerID            uuid.UUID       `json:"seller_id" gorm:"type:uuid;not null;index"`
	SellerMarketplaceID uuid.UUID       `json:"seller_marketplace_id" gorm:"type:uuid;not null;index"`
	TokenID             uuid.UUID       `json:"token_id" gorm:"type:uuid;not null;index"`
	Amount              decimal.Decimal `json:"amount" gorm:"type:numeric(78,18);not null"`
	Decimals            int32           `json:"decimals" gorm:"not null"`
	AmountFormatted     string          `json:"amount_formatted" gorm:"size:100"`
	PendingAt           *time.Time      `json:"pending_at"`
	ConfirmedAt         *time.Time      `json:"confirmed_at"`
	CancelledAt         *time.Time      `json:"cancelled_at"`

	// Relationships
	Seller            User                      `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	SellerMarketplace SellerMarketplace         `json:"seller_marketplace,omitempty" gorm:"foreignKey:SellerMarketplaceID"`
	Token             Token                     `json:"token,omitempty" gorm:"foreignKey:TokenID"`
	Transactions      []SellerPayoutTransaction `json:"transactions,omitempty" gorm:"foreignKey:SellerPayoutID"`
}

type SellerPayoutTransaction struct {
	BaseModel
	BlockchainTransaction
	SellerPayoutID uuid.UUID `json:"seller_payout_id" gorm:"type:uuid;not null;index"`
	NetworkID      uuid.UUID `json:"network_id" gorm:"type:uuid;not null;index"`

	// Relationships
	SellerPayout SellerPayout `json:"seller_payout,omitempty" gorm:"foreignKey:SellerPayoutID"`
	Network      Network      `json:"network,omitempty" gorm:"foreignKey:NetworkID"`
}
