// internal/services/split.go
package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chainmart/chainmart-backend/internal/apperrors"
)

// SplitResult carries both incomes in human-readable decimal form plus their
// display rendering with the token symbol.
type SplitResult struct {
	PlatformIncome          decimal.Decimal
	SellerIncome            decimal.Decimal
	PlatformIncomeFormatted string
	SellerIncomeFormatted   string
}

// Split computes the platform and seller shares of one confirmed order.
// The platform takes an integer percent of the fixed-point price, truncating;
// the seller receives the exact remainder. Invoked once, at order
// confirmation commit time.
func Split(price decimal.Decimal, commissionRatePercent int, decimals int32, symbol string) (SplitResult, error) {
	if commissionRatePercent < 0 || commissionRatePercent > 100 {
		return SplitResult{}, apperrors.NewInternal(fmt.Sprintf("commission rate %d%% out of range", commissionRatePercent))
	}
	if price.IsNegative() {
		return SplitResult{}, apperrors.NewInternal(fmt.Sprintf("negative price %s", price))
	}

	units := price.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return SplitResult{}, apperrors.NewInternal(fmt.Sprintf("price %s does not fit %d decimals", price, decimals))
	}

	platformUnits, _ := units.Mul(decimal.NewFromInt(int64(commissionRatePercent))).QuoRem(decimal.NewFromInt(100), 0)
	sellerUnits := units.Sub(platformUnits)

	platform := platformUnits.Shift(-decimals)
	seller := sellerUnits.Shift(-decimals)

	return SplitResult{
		PlatformIncome:          platform,
		SellerIncome:            seller,
		PlatformIncomeFormatted: FormatAmount(platform, symbol),
		SellerIncomeFormatted:   FormatAmount(seller, symbol),
	}, nil
}

// FormatAmount renders a decimal amount for display with its token symbol.
func FormatAmount(amount decimal.Decimal, symbol string) string {
	return amount.String() + " " + symbol
}
