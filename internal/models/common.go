// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type OwnerStatus string

const (
	OwnerStatusDraft                OwnerStatus = "draft"
	OwnerStatusPending              OwnerStatus = "pending"
	OwnerStatusAwaitingConfirmation OwnerStatus = "awaiting_confirmation"
	OwnerStatusConfirmed            OwnerStatus = "confirmed"
	OwnerStatusCancelled            OwnerStatus = "cancelled"
	OwnerStatusRefunded             OwnerStatus = "refunded"
)

// TransactionHashLength is the fixed length of a 32-byte chain transaction
// id rendered as "0x" plus 64 hex characters.
const TransactionHashLength = 66

// BlockchainTransaction is the shape shared by the three owner transaction
// tables. A transaction is unresolved while both ConfirmedAt and FailedAt
// are null.
type BlockchainTransaction struct {
	Hash            string     `json:"hash" gorm:"size:66;uniqueIndex;not null"`
	SenderAddress   string     `json:"sender_address" gorm:"size:42"`
	Gas             int64      `json:"gas"`
	TransactionFee  string     `json:"transaction_fee" gorm:"size:78"`
	BlockchainError string     `json:"blockchain_error" gorm:"type:text"`
	ConfirmedAt     *time.Time `json:"confirmed_at"`
	FailedAt        *time.Time `json:"failed_at"`
}

func (t *BlockchainTransaction) Unresolved() bool {
	return t.ConfirmedAt == nil && t.FailedAt == nil
}

func (t *BlockchainTransaction) Confirmed() bool {
	return t.ConfirmedAt != nil
}

func (t *BlockchainTransaction) Failed() bool {
	return t.FailedAt != nil
}
