// internal/blockchain/blockchain.go
package blockchain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionResult is the per-hash outcome returned by a ChainReader.
// Amounts are fixed-point integer units of the paying asset; GasValue is the
// total fee in native coin units.
type TransactionResult struct {
	Hash          string
	SenderAddress string
	AmountPaid    decimal.Decimal
	Error         string
	Success       bool
	TokenAddress  *string
	Timestamp     time.Time
	Gas           int64
	GasValue      decimal.Decimal
}

// OnchainOrder is the authoritative order state read from a seller
// marketplace contract.
type OnchainOrder struct {
	BuyerAddress    string
	Price           decimal.Decimal
	PaymentContract string
}

// ChainReader reads transaction outcomes for a set of hashes sent to one
// contract address. One implementation exists per chain family.
type ChainReader interface {
	GetTransactions(ctx context.Context, contractAddress string, hashes []string) ([]TransactionResult, error)
}

// ContractStateClient reads authoritative on-chain state used to
// cross-validate locally recorded transactions before trusting them.
type ContractStateClient interface {
	// GetSellerMarketplaceAddress returns the address a seller's
	// marketplace was registered under, or an empty string if the seller
	// marketplace is not registered on the network marketplace contract.
	GetSellerMarketplaceAddress(ctx context.Context, marketplaceContract string, sellerID, sellerMarketplaceID uuid.UUID) (string, error)

	// GetOrder returns the on-chain order record, or nil if the order id
	// is unknown to the seller marketplace contract.
	GetOrder(ctx context.Context, sellerMarketplaceContract string, orderID uuid.UUID) (*OnchainOrder, error)
}
