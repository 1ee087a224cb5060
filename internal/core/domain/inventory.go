package domain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// InventoryKey identifies one flavor held in one freezer.
type InventoryKey struct {
	Location string
	Item     string
}

// NewInventoryKey trims both parts of the key.
func NewInventoryKey(location, item string) InventoryKey {
	return InventoryKey{
		Location: strings.TrimSpace(location),
		Item:     strings.TrimSpace(item),
	}
}

func (k InventoryKey) String() string {
	return k.Location + "/" + k.Item
}

// Less orders keys by location, then item.
func (k InventoryKey) Less(other InventoryKey) bool {
	if k.Location != other.Location {
		return k.Location < other.Location
	}
	return k.Item < other.Item
}

type LedgerEntry struct {
	InventoryKey
	Quantity decimal.Decimal
}

// LoadWarning records a row whose quantity could not be read and was coerced to zero.
type LoadWarning struct {
	Key    InventoryKey
	Line   int
	Raw    string
	Reason string
}

// ClampQuantity floors q at zero.
func ClampQuantity(q decimal.Decimal) decimal.Decimal {
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// Quantities fit DECIMAL(18,6): at most 12 integer and 6 fractional digits.
const (
	MaxQuantityScale         = 6
	MaxQuantityIntegerDigits = 12

	maxQuantityText = 64
)

// ParseQuantity converts user or file text into a non-negative quantity.
func ParseQuantity(text string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return decimal.Zero, &ValidationError{Field: "quantity", Reason: "must not be empty"}
	}
	if len(trimmed) > maxQuantityText {
		return decimal.Zero, &ValidationError{Field: "quantity", Reason: "is too long"}
	}
	q, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "quantity", Reason: "must be a number"}
	}
	return CheckQuantity(q)
}

// CheckQuantity rejects negative and out-of-range values and returns q with
// trailing fractional zeros dropped. It looks only at the coefficient and
// exponent, so "1e99999999" is rejected without being expanded.
func CheckQuantity(q decimal.Decimal) (decimal.Decimal, error) {
	if q.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	coef, exp := q.Coefficient(), q.Exponent()
	if coef.Sign() == 0 {
		return decimal.Zero, nil
	}

	ten := big.NewInt(10)
	var quo, rem big.Int
	for exp < 0 {
		quo.QuoRem(coef, ten, &rem)
		if rem.Sign() != 0 {
			break
		}
		coef.Set(&quo)
		exp++
	}

	if exp < -MaxQuantityScale {
		return decimal.Zero, &ValidationError{Field: "quantity", Reason: "has more than 6 decimal places"}
	}
	if int64(len(coef.String()))+int64(exp) > MaxQuantityIntegerDigits {
		return decimal.Zero, &ValidationError{Field: "quantity", Reason: "is too large"}
	}
	return decimal.NewFromBigInt(coef, exp), nil
}
