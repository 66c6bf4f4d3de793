package entities

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/shopspring/decimal"
)

// Amount is a sum of money in the smallest currency unit.
type Amount uint64

// Add returns a + b, failing instead of wrapping around.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return a, errs.ErrBalanceOverflow
	}
	return Amount(sum), nil
}

// Sub returns a - b, failing instead of going below zero.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return a, errs.ErrInsufficientFunds
	}
	return Amount(diff), nil
}

func (a Amount) IsZero() bool { return a == 0 }

// Currency converts between major-unit decimals used on the wire
// and minor-unit amounts stored in the ledger.
type Currency struct {
	// Number of minor units digits, 2 for cents.
	Exponent int32
}

// Parse converts a decimal string in major units into an Amount.
func (c Currency) Parse(raw string) (Amount, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a number", errs.ErrInvalidRequest, raw)
	}
	return c.FromDecimal(d)
}

// FromDecimal converts a decimal in major units into an Amount.
func (c Currency) FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: amount must not be negative", errs.ErrInvalidRequest)
	}

	minor := d.Shift(c.Exponent)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: amount has more than %d fractional digits",
			errs.ErrInvalidRequest, c.Exponent)
	}

	n := minor.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: amount is too large", errs.ErrInvalidRequest)
	}

	return Amount(n.Uint64()), nil
}

// Decimal converts an Amount into major units.
func (c Currency) Decimal(a Amount) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -c.Exponent)
}

// Format renders an Amount in major units with a fixed number of digits.
func (c Currency) Format(a Amount) string {
	return c.Decimal(a).StringFixed(c.Exponent)
}
