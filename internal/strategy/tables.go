package strategy

import "github.com/shopspring/decimal"

// MaxBuyCount stops averaging down once this many buys are open.
const MaxBuyCount = 40

// band maps the inclusive range [lo, hi] to a value.
type band[T any] struct {
	lo, hi int
	value  T
}

// rangeTable is an ordered band lookup with an explicit fallback for keys
// no band covers.
type rangeTable[T any] struct {
	bands    []band[T]
	fallback T
	// hasFallback is false for tables where an uncovered key means "no value".
	hasFallback bool
}

func (t rangeTable[T]) lookup(key int) (T, bool) {
	for _, b := range t.bands {
		if key >= b.lo && key <= b.hi {
			return b.value, true
		}
	}
	return t.fallback, t.hasFallback
}

// averagingMultipliers scales initial_quantity by the number of open buys.
var averagingMultipliers = rangeTable[int]{
	bands: []band[int]{
		{lo: 0, hi: 4, value: 1},
		{lo: 5, hi: 9, value: 2},
		{lo: 10, hi: 14, value: 5},
		{lo: 15, hi: 19, value: 10},
		{lo: 20, hi: 29, value: 20},
		{lo: 30, hi: 39, value: 25},
	},
	fallback:    25,
	hasFallback: true,
}

// profitTargets is indexed by sell_count; beyond the last tier there is no target.
var profitTargets = rangeTable[decimal.Decimal]{
	bands: []band[decimal.Decimal]{
		{lo: 0, hi: 0, value: decimal.RequireFromString("1.03")},
		{lo: 1, hi: 1, value: decimal.RequireFromString("1.05")},
		{lo: 2, hi: 2, value: decimal.RequireFromString("1.07")},
	},
}

// finalProfitTier sells the whole position instead of half.
const finalProfitTier = 2

// Multiplier returns the averaging-down size multiplier for buyCount.
func Multiplier(buyCount int) int {
	m, _ := averagingMultipliers.lookup(buyCount)
	return m
}

// RoundDownToLot truncates qty to a whole number of lots.
func RoundDownToLot(qty, lotSize int) int {
	if qty <= 0 || lotSize <= 0 {
		return 0
	}
	return qty / lotSize * lotSize
}
