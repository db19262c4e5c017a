// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a digital product listed on one seller marketplace and priced
// in one of that network's tokens.
type Product struct {
	BaseModel
	SellerMarketplaceID uuid.UUID       `json:"seller_marketplace_id" gorm:"type:uuid;not null;index"`
	TokenID             uuid.UUID       `json:"token_id" gorm:"type:uuid;not null;index"`
	Name                string          `json:"name" gorm:"size:255;not null"`
	Description         string          `json:"description" gorm:"type:text"`
	Price               decimal.Decimal `json:"price" gorm:"type:numeric(78,18);not null"`
	PriceDecimals       int32           `json:"price_decimals" gorm:"not null"`
	PriceFormatted      string          `json:"price_formatted" gorm:"size:100"`

	// Relationships
	SellerMarketplace SellerMarketplace `json:"seller_marketplace,omitempty" gorm:"foreignKey:SellerMarketplaceID"`
	Token             Token             `json:"token,omitempty" gorm:"foreignKey:TokenID"`
}
