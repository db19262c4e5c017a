// internal/services/reconcile_test.go
package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chainmart/chainmart-backend/internal/blockchain"
)

func validHash(fill byte) string {
	return "0x" + strings.Repeat(string(fill), 64)
}

func TestValidTransactionHash(t *testing.T) {
	assert.True(t, ValidTransactionHash(validHash('a')))
	assert.True(t, ValidTransactionHash(validHash('0')))
	assert.True(t, ValidTransactionHash("0x"+strings.Repeat("AbCdEf12", 8)))

	// wrong length
	assert.False(t, ValidTransactionHash(""))
	assert.False(t, ValidTransactionHash("0x"+strings.Repeat("a", 63)))
	assert.False(t, ValidTransactionHash("0x"+strings.Repeat("a", 65)))

	// missing prefix
	assert.False(t, ValidTransactionHash(strings.Repeat("a", 66)))

	// non-hex characters
	assert.False(t, ValidTransactionHash("0x"+strings.Repeat("g", 64)))
	assert.False(t, ValidTransactionHash("0x"+strings.Repeat("a", 63)+" "))
}

func TestGroupByContract(t *testing.T) {
	contractA := "0x1111111111111111111111111111111111111111"
	contractB := "0x2222222222222222222222222222222222222222"

	candidates := []txCandidate{
		{ID: uuid.New(), Hash: validHash('a'), Contract: contractA},
		{ID: uuid.New(), Hash: validHash('b'), Contract: contractB},
		{ID: uuid.New(), Hash: "not-a-hash", Contract: contractA},
		{ID: uuid.New(), Hash: validHash('c'), Contract: contractA},
	}

	groups := groupByContract(candidates)

	assert.Len(t, groups, 2)
	assert.Equal(t, contractA, groups[0].Contract)
	assert.Equal(t, []string{validHash('a'), validHash('c')}, groups[0].Hashes)
	assert.Equal(t, contractB, groups[1].Contract)
	assert.Equal(t, []string{validHash('b')}, groups[1].Hashes)
}

func TestGroupByContractDropsAllMalformed(t *testing.T) {
	candidates := []txCandidate{
		{ID: uuid.New(), Hash: "short", Contract: "0x1"},
		{ID: uuid.New(), Hash: strings.Repeat("z", 66), Contract: "0x1"},
	}
	assert.Empty(t, groupByContract(candidates))
}

func TestTxGroupMatch(t *testing.T) {
	cand := txCandidate{ID: uuid.New(), Hash: validHash('a'), Contract: "0x1"}
	groups := groupByContract([]txCandidate{cand})

	matched, ok := groups[0].match(blockchain.TransactionResult{Hash: cand.Hash})
	assert.True(t, ok)
	assert.Equal(t, cand.ID, matched.ID)

	// unknown hashes are ignored, not fatal
	_, ok = groups[0].match(blockchain.TransactionResult{Hash: validHash('f')})
	assert.False(t, ok)
}

func TestValidateSuccessResult(t *testing.T) {
	good := blockchain.TransactionResult{
		Hash:          validHash('a'),
		SenderAddress: "0x3333333333333333333333333333333333333333",
		Gas:           21000,
		GasValue:      decimal.RequireFromString("0.00042"),
		Success:       true,
	}
	assert.NoError(t, validateSuccessResult(good))

	missingGas := good
	missingGas.Gas = 0
	assert.Error(t, validateSuccessResult(missingGas))

	missingFee := good
	missingFee.GasValue = decimal.Zero
	assert.Error(t, validateSuccessResult(missingFee))

	missingSender := good
	missingSender.SenderAddress = ""
	assert.Error(t, validateSuccessResult(missingSender))
}

func TestTransactionUpdateBuilders(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	result := blockchain.TransactionResult{
		Hash:          validHash('a'),
		SenderAddress: "0x3333333333333333333333333333333333333333",
		Gas:           21000,
		GasValue:      decimal.RequireFromString("0.00042"),
		Error:         "out of gas",
		Timestamp:     ts,
	}

	failed := failedTransactionUpdates(result)
	assert.Equal(t, ts, failed["failed_at"])
	assert.Equal(t, "out of gas", failed["blockchain_error"])
	assert.Equal(t, "0.00042", failed["transaction_fee"])
	assert.NotContains(t, failed, "confirmed_at")

	confirmed := confirmedTransactionUpdates(result)
	assert.Equal(t, ts, confirmed["confirmed_at"])
	assert.Equal(t, int64(21000), confirmed["gas"])
	assert.NotContains(t, confirmed, "failed_at")
	assert.NotContains(t, confirmed, "blockchain_error")

	// zero timestamp falls back to the current time
	result.Timestamp = time.Time{}
	failed = failedTransactionUpdates(result)
	assert.WithinDuration(t, time.Now().UTC(), failed["failed_at"].(time.Time), time.Minute)
}
