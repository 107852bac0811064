package utils

import (
	"github.com/shopspring/decimal"
)

// CalculateDiscountAmount converts a discount input into an absolute amount.
// discountType "P" is a percentage of baseFee; anything else is a fixed amount.
func CalculateDiscountAmount(baseFee decimal.Decimal, discount decimal.Decimal, discountType string) decimal.Decimal {

	var discountAmount decimal.Decimal

	decimalOneHundred := decimal.NewFromFloat(100)

	if discount.GreaterThan(decimal.NewFromFloat(0.0)) {
		if discountType == "P" {
			discountAmount = baseFee.Mul(discount).DivRound(decimalOneHundred, 4)
		} else {
			discountAmount = discount
		}
	} else {
		discountAmount = decimal.NewFromFloat(0.0)
	}

	return discountAmount
}

// CalculateRegistrationFee returns the camper's payable fee after discount.
// The fee never goes below zero: a fixed discount larger than the base fee
// clamps to zero rather than producing a credit.
func CalculateRegistrationFee(baseFee decimal.Decimal, discount decimal.Decimal, discountType string) decimal.Decimal {
	fee := baseFee.Sub(CalculateDiscountAmount(baseFee, discount, discountType))
	if fee.IsNegative() {
		return decimal.Zero
	}
	return fee
}
