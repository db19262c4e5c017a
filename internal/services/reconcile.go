// internal/services/reconcile.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/blockchain"
	"github.com/chainmart/chainmart-backend/internal/models"
	"github.com/chainmart/chainmart-backend/internal/reconcilelock"
)

// ReconcileService runs the pull-based poll → match → validate → commit cycle
// for each owner kind. Every run re-reads current state from the store, so a
// run is idempotent with respect to already-resolved transactions. There is
// no internal parallelism, retry or backoff; a caller wanting resilience
// re-invokes the endpoint.
type ReconcileService struct {
	db       *gorm.DB
	registry *blockchain.Registry
	locker   *reconcilelock.Locker
}

func NewReconcileService(db *gorm.DB, registry *blockchain.Registry, locker *reconcilelock.Locker) *ReconcileService {
	return &ReconcileService{
		db:       db,
		registry: registry,
		locker:   locker,
	}
}

// txCandidate is one unresolved transaction surviving candidate selection,
// tagged with the contract address its owner kind reconciles against.
type txCandidate struct {
	ID       uuid.UUID
	Hash     string
	Contract string
}

// txGroup batches candidate hashes per target contract so each contract
// costs one Chain Reader call instead of one per transaction.
type txGroup struct {
	Contract   string
	Hashes     []string
	candidates map[string]txCandidate
}

// ValidTransactionHash reports whether hash is a well-formed 32-byte chain
// transaction id: "0x" plus 64 hex characters. Records failing this check
// are a data-entry bug; they are skipped, never queried.
func ValidTransactionHash(hash string) bool {
	if len(hash) != models.TransactionHashLength {
		return false
	}
	if hash[0] != '0' || hash[1] != 'x' {
		return false
	}
	for i := 2; i < len(hash); i++ {
		c := hash[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// groupByContract groups candidates by contract address, preserving the
// discovery order of both groups and the hashes within them. Candidates with
// malformed hashes are dropped here.
func groupByContract(candidates []txCandidate) []txGroup {
	var groups []txGroup
	index := make(map[string]int)

	for _, cand := range candidates {
		if !ValidTransactionHash(cand.Hash) {
			logrus.WithFields(logrus.Fields{
				"transaction_id": cand.ID,
				"hash":           cand.Hash,
			}).Warn("Skipping transaction with malformed hash")
			continue
		}

		i, ok := index[cand.Contract]
		if !ok {
			i = len(groups)
			index[cand.Contract] = i
			groups = append(groups, txGroup{
				Contract:   cand.Contract,
				candidates: make(map[string]txCandidate),
			})
		}
		groups[i].Hashes = append(groups[i].Hashes, cand.Hash)
		groups[i].candidates[cand.Hash] = cand
	}

	return groups
}

// match resolves a reader result back to the local candidate it answers.
// Unknown hashes cannot occur under correct filtering but must not crash the
// run, so they are ignored.
func (g *txGroup) match(result blockchain.TransactionResult) (txCandidate, bool) {
	cand, ok := g.candidates[result.Hash]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"hash":     result.Hash,
			"contract": g.Contract,
		}).Warn("Chain reader returned a hash outside the candidate set")
	}
	return cand, ok
}

// validateSuccessResult checks the fields a confirmed transaction must carry
// before it may be committed.
func validateSuccessResult(result blockchain.TransactionResult) error {
	if result.Gas <= 0 || result.GasValue.IsZero() {
		return apperrors.NewInternal(fmt.Sprintf("successful transaction %s is missing gas or fee", result.Hash))
	}
	if result.SenderAddress == "" {
		return apperrors.NewInternal(fmt.Sprintf("successful transaction %s is missing a sender address", result.Hash))
	}
	return nil
}

// failedTransactionUpdates builds the column set recorded for an on-chain
// failure. The owner's status is left untouched; it may accept a replacement
// transaction on a future pending state.
func failedTransactionUpdates(result blockchain.TransactionResult) map[string]interface{} {
	failedAt := result.Timestamp
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}
	return map[string]interface{}{
		"sender_address":   result.SenderAddress,
		"gas":              result.Gas,
		"transaction_fee":  result.GasValue.String(),
		"blockchain_error": result.Error,
		"failed_at":        failedAt,
	}
}

// confirmedTransactionUpdates builds the column set recorded for an on-chain
// success, applied inside the owner's confirmation commit.
func confirmedTransactionUpdates(result blockchain.TransactionResult) map[string]interface{} {
	confirmedAt := result.Timestamp
	if confirmedAt.IsZero() {
		confirmedAt = time.Now().UTC()
	}
	return map[string]interface{}{
		"sender_address":  result.SenderAddress,
		"gas":             result.Gas,
		"transaction_fee": result.GasValue.String(),
		"confirmed_at":    confirmedAt,
	}
}

// withScopeLock serializes reconciliation per scope. An overlapping run gets
// a conflict instead of double-processing the same unresolved transactions.
func (s *ReconcileService) withScopeLock(ctx context.Context, scope string, fn func() error) error {
	acquired, err := s.locker.Acquire(ctx, scope)
	if err != nil {
		return apperrors.WrapInternal("failed to acquire reconcile lock", err)
	}
	if !acquired {
		return apperrors.NewConflict(fmt.Sprintf("a reconciliation run for %s is already in progress", scope))
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), scope); err != nil {
			logrus.WithError(err).WithField("scope", scope).Error("Failed to release reconcile lock")
		}
	}()

	return fn()
}

func (s *ReconcileService) networkByChainID(chainID int64) (*models.Network, error) {
	var network models.Network
	if err := s.db.Where("chain_id = ?", chainID).First(&network).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewClient(fmt.Sprintf("network with chain id %d does not exist", chainID))
		}
		return nil, apperrors.WrapInternal("failed to load network", err)
	}
	return &network, nil
}
