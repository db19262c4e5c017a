// internal/models/marketplace.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerMarketplace is a seller's activation record on one blockchain
// network. SmartContractAddress and OwnerWalletAddress stay empty until the
// registration transaction is confirmed on chain.
type SellerMarketplace struct {
	BaseModel
	SellerID             uuid.UUID  `json:"seller_id" gorm:"type:uuid;not null;index"`
	NetworkID            uuid.UUID  `json:"network_id" gorm:"type:uuid;not null;index"`
	NetworkMarketplaceID uuid.UUID  `json:"network_marketplace_id" gorm:"type:uuid;not null;index"`
	PendingAt            *time.Time `json:"pending_at"`
	ConfirmedAt          *time.Time `json:"confirmed_at"`
	SmartContractAddress string     `json:"smart_contract_address" gorm:"size:42;index"`
	OwnerWalletAddress   string     `json:"owner_wallet_address" gorm:"size:42"`

	// Relationships
	Seller             User                           `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Network            Network                        `json:"network,omitempty" gorm:"foreignKey:NetworkID"`
	NetworkMarketplace NetworkMarketplace             `json:"network_marketplace,omitempty" gorm:"foreignKey:NetworkMarketplaceID"`
	Transactions       []SellerMarketplaceTransaction `json:"transactions,omitempty" gorm:"foreignKey:SellerMarketplaceID"`
}

type SellerMarketplaceTransaction struct {
	BaseModel
	BlockchainTransaction
	SellerMarketplaceID uuid.UUID `json:"seller_marketplace_id" gorm:"type:uuid;not null;index"`
	NetworkID           uuid.UUID `json:"network_id" gorm:"type:uuid;not null;index"`

	// Relationships
	SellerMarketplace SellerMarketplace `json:"seller_marketplace,omitempty" gorm:"foreignKey:SellerMarketplaceID"`
	Network           Network           `json:"network,omitempty" gorm:"foreignKey:NetworkID"`
}
