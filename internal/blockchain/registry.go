// internal/blockchain/registry.go
package blockchain

import (
	"fmt"
)

// ErrUnsupportedChain is returned when no clients are registered for a chain
// id. This is a configuration error, never a retryable condition.
type ErrUnsupportedChain struct {
	ChainID int64
}

func (e *ErrUnsupportedChain) Error() string {
	return fmt.Sprintf("unsupported chain id %d: no blockchain clients registered", e.ChainID)
}

// Clients bundles the capabilities registered for one chain id.
type Clients struct {
	Reader ChainReader
	State  ContractStateClient
}

// Registry is the static chain-id-keyed client registry. It is built once at
// startup from configuration and read-only afterwards.
type Registry struct {
	clients map[int64]Clients
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[int64]Clients)}
}

func (r *Registry) Register(chainID int64, clients Clients) {
	r.clients[chainID] = clients
}

func (r *Registry) ReaderFor(chainID int64) (ChainReader, error) {
	c, ok := r.clients[chainID]
	if !ok || c.Reader == nil {
		return nil, &ErrUnsupportedChain{ChainID: chainID}
	}
	return c.Reader, nil
}

func (r *Registry) StateFor(chainID int64) (ContractStateClient, error) {
	c, ok := r.clients[chainID]
	if !ok || c.State == nil {
		return nil, &ErrUnsupportedChain{ChainID: chainID}
	}
	return c.State, nil
}

// ChainIDs lists every registered chain id.
func (r *Registry) ChainIDs() []int64 {
	ids := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}
