package billing

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

var (
	hundred = big.NewRat(100, 1)
	half    = big.NewRat(1, 2)
)

// ToMinorUnits converts a major-unit price to integer minor units. Rounding is
// half-up on the shortest decimal form of the price, so 1.005 becomes 101
// even though its binary value is slightly below 1.005.
func ToMinorUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, fmt.Errorf("invalid price %v", price)
	}

	r, ok := new(big.Rat).SetString(strconv.FormatFloat(price, 'f', -1, 64))
	if !ok {
		return 0, fmt.Errorf("invalid price %v", price)
	}
	r.Mul(r, hundred)
	r.Add(r, half)

	// r is non-negative, so truncation is floor.
	minor := new(big.Int).Quo(r.Num(), r.Denom())
	if !minor.IsInt64() {
		return 0, fmt.Errorf("price %v out of range", price)
	}
	return minor.Int64(), nil
}

// FromMinorUnits converts gateway minor units back to major units.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
