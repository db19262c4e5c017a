// internal/services/split_test.go
package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name         string
		price        string
		rate         int
		decimals     int32
		symbol       string
		wantPlatform string
		wantSeller   string
	}{
		{
			name:         "whole units, exact division",
			price:        "100",
			rate:         3,
			decimals:     0,
			symbol:       "TOK",
			wantPlatform: "3",
			wantSeller:   "97",
		},
		{
			name:         "18 decimals",
			price:        "1",
			rate:         3,
			decimals:     18,
			symbol:       "ETH",
			wantPlatform: "0.03",
			wantSeller:   "0.97",
		},
		{
			name:         "truncating division favors the seller",
			price:        "101",
			rate:         3,
			decimals:     0,
			symbol:       "TOK",
			wantPlatform: "3",
			wantSeller:   "98",
		},
		{
			name:         "zero commission",
			price:        "55",
			rate:         0,
			decimals:     0,
			symbol:       "TOK",
			wantPlatform: "0",
			wantSeller:   "55",
		},
		{
			name:         "full commission",
			price:        "55",
			rate:         100,
			decimals:     0,
			symbol:       "TOK",
			wantPlatform: "55",
			wantSeller:   "0",
		},
		{
			name:         "single unit below one percent share",
			price:        "0.000000000000000001",
			rate:         3,
			decimals:     18,
			symbol:       "ETH",
			wantPlatform: "0",
			wantSeller:   "0.000000000000000001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)
			result, err := Split(price, tt.rate, tt.decimals, tt.symbol)
			assert.NoError(t, err)
			assert.True(t, result.PlatformIncome.Equal(decimal.RequireFromString(tt.wantPlatform)),
				"platform income %s", result.PlatformIncome)
			assert.True(t, result.SellerIncome.Equal(decimal.RequireFromString(tt.wantSeller)),
				"seller income %s", result.SellerIncome)
			assert.True(t, result.PlatformIncome.Add(result.SellerIncome).Equal(price))
		})
	}
}

func TestSplitRejectsBadInput(t *testing.T) {
	_, err := Split(decimal.RequireFromString("100"), -1, 0, "TOK")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))

	_, err = Split(decimal.RequireFromString("100"), 101, 0, "TOK")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))

	_, err = Split(decimal.RequireFromString("-1"), 3, 0, "TOK")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))

	// price must be representable in whole token units
	_, err = Split(decimal.RequireFromString("1.5"), 3, 0, "TOK")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.97 ETH", FormatAmount(decimal.RequireFromString("0.97"), "ETH"))
	assert.Equal(t, "55 TOK", FormatAmount(decimal.NewFromInt(55), "TOK"))
}
