// internal/blockchain/registry_test.go
package blockchain

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubReader struct{}

func (stubReader) GetTransactions(ctx context.Context, contractAddress string, hashes []string) ([]TransactionResult, error) {
	return nil, nil
}

type stubState struct{}

func (stubState) GetSellerMarketplaceAddress(ctx context.Context, contract string, sellerID, sellerMarketplaceID uuid.UUID) (string, error) {
	return "", nil
}

func (stubState) GetOrder(ctx context.Context, contract string, orderID uuid.UUID) (*OnchainOrder, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(137, Clients{Reader: stubReader{}, State: stubState{}})

	reader, err := registry.ReaderFor(137)
	assert.NoError(t, err)
	assert.NotNil(t, reader)

	state, err := registry.StateFor(137)
	assert.NoError(t, err)
	assert.NotNil(t, state)

	assert.Equal(t, []int64{137}, registry.ChainIDs())
}

func TestRegistryUnsupportedChain(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.ReaderFor(1)
	assert.Error(t, err)
	var unsupported *ErrUnsupportedChain
	assert.ErrorAs(t, err, &unsupported)
	assert.Equal(t, int64(1), unsupported.ChainID)

	_, err = registry.StateFor(1)
	assert.Error(t, err)

	// a registered chain without a state client is still unsupported for state reads
	registry.Register(10, Clients{Reader: stubReader{}})
	_, err = registry.StateFor(10)
	assert.Error(t, err)
}
