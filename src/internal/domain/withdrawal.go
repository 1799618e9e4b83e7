package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var withdrawalMultiple = decimal.NewFromInt(10)

// Amounts are read the way a float64 would read them: anything whose decimal
// exponent is above maxAmountExponent overflows and anything below
// minAmountExponent is zero. The bounds also keep Truncate and Mod from
// expanding huge exponents into huge integers.
const (
	maxAmountExponent = 308
	minAmountExponent = -324
)

// ValidateWithdrawal parses raw and checks it against balance. The first failing
// rule wins; the returned amount is always a positive multiple of 10.
func ValidateWithdrawal(raw string, balance decimal.Decimal) (int64, error) {
	amount, err := ParseWithdrawal(raw)
	if err != nil {
		return 0, err
	}
	return CheckFunds(amount, balance)
}

// ParseWithdrawal applies every rule that does not depend on the balance. It
// needs no session state, so callers run it before taking any lock.
func ParseWithdrawal(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, NewValidationError("Please enter a valid number.")
	}

	if !amount.IsPositive() {
		return decimal.Zero, NewValidationError("Amount must be greater than £0.")
	}

	// Position of the leading digit, e.g. 0 for 5, 2 for 120, -1 for 0.5.
	magnitude := int64(amount.NumDigits()) + int64(amount.Exponent()) - 1
	if magnitude < minAmountExponent {
		return decimal.Zero, NewValidationError("Amount must be greater than £0.")
	}
	if magnitude > maxAmountExponent {
		return decimal.Zero, NewValidationError("Please enter a whole number (e.g., 10, 20, 30).")
	}

	if !amount.Equal(amount.Truncate(0)) {
		return decimal.Zero, NewValidationError("Please enter a whole number (e.g., 10, 20, 30).")
	}

	if !amount.Mod(withdrawalMultiple).IsZero() {
		return decimal.Zero, NewValidationError("Please enter an amount in multiples of £10.")
	}

	return amount, nil
}

// CheckFunds is the last withdrawal rule. amount must come from ParseWithdrawal.
func CheckFunds(amount, balance decimal.Decimal) (int64, error) {
	if amount.GreaterThan(balance) {
		return 0, NewValidationError(fmt.Sprintf("Insufficient funds. Your balance is £%s", balance.StringFixed(2)))
	}

	return amount.IntPart(), nil
}
