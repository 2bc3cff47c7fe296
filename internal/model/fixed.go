package model

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// FixedPointDecimals is the scale of every fixed-point amount.
const FixedPointDecimals = 18

// ToFixedPoint returns floor(x * 10^18). Negative, NaN and infinite inputs
// map to zero since the wire type is unsigned.
func ToFixedPoint(x float64) *big.Int {
	if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
		return new(big.Int)
	}
	return decimal.NewFromFloat(x).Shift(FixedPointDecimals).Floor().BigInt()
}

// ParseFixedPoint parses a decimal string and returns floor(v * 10^18).
func ParseFixedPoint(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return d.Shift(FixedPointDecimals).Floor().BigInt(), nil
}

// FromFixedPoint converts a fixed-point amount back to a float for display.
func FromFixedPoint(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, -FixedPointDecimals).Float64()
	return f
}

// PercentToBasis returns floor(pct * 100), saturated to the int32 range.
func PercentToBasis(pct float64) int32 {
	if math.IsNaN(pct) {
		return 0
	}
	if math.IsInf(pct, 0) {
		if pct > 0 {
			return math.MaxInt32
		}
		return math.MinInt32
	}
	v := decimal.NewFromFloat(pct).Shift(2).Floor()
	switch {
	case v.GreaterThan(decimal.NewFromInt(math.MaxInt32)):
		return math.MaxInt32
	case v.LessThan(decimal.NewFromInt(math.MinInt32)):
		return math.MinInt32
	}
	return int32(v.IntPart())
}
