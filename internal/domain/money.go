package domain

import (
	"github.com/shopspring/decimal"

	"service-dispatch/internal/apperr"
)

// Money is stored as NUMERIC(12,2).
const moneyScale = 2

// maxMoney is the smallest amount the store cannot hold.
var maxMoney = decimal.New(1, 10)

// ValidateMoney checks that v is non-negative and representable in the store
// without rounding. field names the value in the error.
func ValidateMoney(field string, v decimal.Decimal) error {
	switch {
	case v.IsNegative():
		return apperr.Invalidf("%s must not be negative", field)
	case !v.Equal(v.Truncate(moneyScale)):
		return apperr.Invalidf("%s must have at most %d decimal places", field, moneyScale)
	case v.GreaterThanOrEqual(maxMoney):
		return apperr.Invalidf("%s must be less than %s", field, maxMoney)
	}
	return nil
}

// ValidatePrice is ValidateMoney for amounts that must be above zero.
func ValidatePrice(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return apperr.Invalidf("%s must be positive", field)
	}
	return ValidateMoney(field, v)
}
