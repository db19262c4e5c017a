// internal/models/sale.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSale is the immutable record of seller and platform income for one
// confirmed order transaction. It is created exactly once, inside the same
// database transaction that confirms the order.
type ProductSale struct {
	BaseModel
	ProductOrderTransactionID uuid.UUID       `json:"product_order_transaction_id" gorm:"type:uuid;not null;uniqueIndex"`
	ProductOrderID            uuid.UUID       `json:"product_order_id" gorm:"type:uuid;not null;index"`
	SellerMarketplaceID       uuid.UUID       `json:"seller_marketplace_id" gorm:"type:uuid;not null;index"`
	TokenID                   uuid.UUID       `json:"token_id" gorm:"type:uuid;not null;index"`
	CommissionRatePercent     int             `json:"commission_rate_percent" gorm:"not null"`
	SellerIncome              decimal.Decimal `json:"seller_income" gorm:"type:numeric(78,18);not null"`
	SellerIncomeFormatted     string          `json:"seller_income_formatted" gorm:"size:100"`
	PlatformIncome            decimal.Decimal `json:"platform_income" gorm:"type:numeric(78,18);not null"`
	PlatformIncomeFormatted   string          `json:"platform_income_formatted" gorm:"size:100"`

	// Relationships
	ProductOrderTransaction ProductOrderTransaction `json:"product_order_transaction,omitempty" gorm:"foreignKey:ProductOrderTransactionID"`
	ProductOrder            ProductOrder            `json:"product_order,omitempty" gorm:"foreignKey:ProductOrderID"`
	SellerMarketplace       SellerMarketplace       `json:"seller_marketplace,omitempty" gorm:"foreignKey:SellerMarketplaceID"`
	Token                   Token                   `json:"token,omitempty" gorm:"foreignKey:TokenID"`
}
