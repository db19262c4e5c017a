// internal/services/order_validation_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
	"github.com/chainmart/chainmart-backend/internal/models"
)

func TestPaymentContractMatches(t *testing.T) {
	native := &models.Token{}
	assert.True(t, paymentContractMatches("", native))
	assert.False(t, paymentContractMatches("0x1111111111111111111111111111111111111111", native))

	erc20 := &models.Token{SmartContractAddress: "0xAbC1111111111111111111111111111111111111"}
	assert.True(t, paymentContractMatches("0xabc1111111111111111111111111111111111111", erc20))
	assert.True(t, paymentContractMatches("0xABC1111111111111111111111111111111111111", erc20))
	assert.False(t, paymentContractMatches("", erc20))
	assert.False(t, paymentContractMatches("0x2222222222222222222222222222222222222222", erc20))
}

func TestParsePrice(t *testing.T) {
	price, err := parsePrice("1.25", 18)
	assert.NoError(t, err)
	assert.Equal(t, "1.25", price.String())

	_, err = parsePrice("abc", 18)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = parsePrice("0", 18)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = parsePrice("-5", 18)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// two decimal places do not fit a zero-decimal token
	_, err = parsePrice("1.25", 0)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
