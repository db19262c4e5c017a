// internal/models/network.go
package models

import (
	"github.com/google/uuid"
)

// Network is a supported blockchain network. Networks are seeded from
// configuration at startup; ChainID is the canonical identifier used to
// select chain clients.
type Network struct {
	BaseModel
	ChainID        int64  `json:"chain_id" gorm:"uniqueIndex;not null"`
	Name           string `json:"name" gorm:"size:100;not null"`
	NativeSymbol   string `json:"native_symbol" gorm:"size:20;not null"`
	NativeDecimals int32  `json:"native_decimals" gorm:"not null"`
}

// NetworkMarketplace is the immutable per-network marketplace contract
// template that seller marketplaces register against.
type NetworkMarketplace struct {
	BaseModel
	NetworkID             uuid.UUID `json:"network_id" gorm:"type:uuid;not null;index"`
	SmartContractAddress  string    `json:"smart_contract_address" gorm:"size:42;not null;uniqueIndex"`
	CommissionRatePercent int       `json:"commission_rate_percent" gorm:"not null"`

	// Relationships
	Network Network `json:"network,omitempty" gorm:"foreignKey:NetworkID"`
}

// Token is a payment token on one network. An empty SmartContractAddress
// means the network's native coin.
type Token struct {
	BaseModel
	NetworkID            uuid.UUID `json:"network_id" gorm:"type:uuid;not null;index"`
	Symbol               string    `json:"symbol" gorm:"size:20;not null"`
	Decimals             int32     `json:"decimals" gorm:"not null"`
	SmartContractAddress string    `json:"smart_contract_address" gorm:"size:42"`

	// Relationships
	Network Network `json:"network,omitempty" gorm:"foreignKey:NetworkID"`
}

func (t *Token) Native() bool {
	return t.SmartContractAddress == ""
}
