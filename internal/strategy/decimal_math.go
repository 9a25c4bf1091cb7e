package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decimalZero = decimal.Zero

	entryHighFactor    = decimal.RequireFromString("0.98")
	averageDownTrigger = decimal.RequireFromString("0.95")
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

// scaled multiplies in decimal so that, for example, 100 x 1.03 is exactly 103.
func scaled(val float64, factor decimal.Decimal) decimal.Decimal {
	return decFromFloat(val).Mul(factor)
}

func decimalGT(a float64, b decimal.Decimal) bool  { return decFromFloat(a).Cmp(b) > 0 }
func decimalGTE(a float64, b decimal.Decimal) bool { return decFromFloat(a).Cmp(b) >= 0 }
func decimalLT(a float64, b decimal.Decimal) bool  { return decFromFloat(a).Cmp(b) < 0 }
