// Package types provides common types used across Turnstile.
package types

import "fmt"

// Bps is a fee, cap, or markup expressed in basis points.
// One basis point is 1/10000 of the reference amount.
// All arithmetic is integer-only — no floating point.
//
// Examples:
//   - Bps(500)   = 5%
//   - Bps(1500)  = 15%
//   - Bps(10000) = 100%
type Bps int64

// Full is 100% expressed in basis points.
const Full Bps = 10000

// Percent converts a whole percentage to basis points.
func Percent(p int64) Bps { return Bps(p * 100) }

// Valid reports whether the value is in the closed range [0, 10000].
// Fees and caps never exceed the full reference amount.
func (b Bps) Valid() bool { return b >= 0 && b <= Full }

// ApplyTo returns the basis-point share of amount, truncated toward zero.
// ApplyTo(1500, 100000) = 15000.
func (b Bps) ApplyTo(amount int64) int64 {
	return amount * int64(b) / int64(Full)
}

// Add returns the sum of two basis-point values.
func (b Bps) Add(other Bps) Bps { return b + other }

// Cap returns b limited to at most maxFee.
func (b Bps) Cap(maxFee Bps) Bps {
	if b > maxFee {
		return maxFee
	}
	return b
}

// String renders the value as a percentage, e.g. "15.25%".
func (b Bps) String() string {
	whole := int64(b) / 100
	frac := int64(b) % 100
	if frac < 0 {
		frac = -frac
	}
	if frac == 0 {
		return fmt.Sprintf("%d%%", whole)
	}
	return fmt.Sprintf("%d.%02d%%", whole, frac)
}

// Markup returns the amount by which price exceeds face value, expressed in
// basis points of the face value, truncated. A price at or below face value
// is a zero markup. Face value must be positive; callers are expected to have
// rejected unset face values before computing markups.
func Markup(price, faceValue int64) Bps {
	if price <= faceValue {
		return 0
	}
	return Bps((price - faceValue) * int64(Full) / faceValue)
}

// PerUnit returns the per-unit price for a multi-unit sale, truncated.
// Amount must be positive; a zero amount is a caller precondition violation,
// not a case the pricing math special-cases.
func PerUnit(totalPrice, amount int64) int64 {
	if amount <= 0 {
		panic("types: per-unit price of non-positive amount")
	}
	return totalPrice / amount
}
