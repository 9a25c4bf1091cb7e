// Package strategy decides the next trade for a single-instrument
// averaging-down position with tiered profit taking. Decide is pure.
package strategy

import (
	"fmt"

	"ltpbot/internal/types"
)

// ActionKind is what the engine wants done this tick.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionBuy
	ActionSell
)

func (k ActionKind) String() string {
	switch k {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "none"
	}
}

// Action is a decision. Quantity is positive for Buy and Sell, zero for None.
type Action struct {
	Kind     ActionKind
	Quantity int
	Reason   string
}

func (a Action) IsNone() bool { return a.Kind == ActionNone || a.Quantity <= 0 }

// Side maps the action to an order side. It is empty for None.
func (a Action) Side() types.Side {
	switch a.Kind {
	case ActionBuy:
		return types.SideBuy
	case ActionSell:
		return types.SideSell
	default:
		return ""
	}
}

func none(reason string, args ...any) Action {
	return Action{Kind: ActionNone, Reason: fmt.Sprintf(reason, args...)}
}

// Decide evaluates, in order: flat entry, profit target, averaging cap,
// averaging down. The first rule that applies decides.
func Decide(q MarketQuote, pos types.PositionSnapshot, cfg types.SessionConfig) Action {
	if q.IsEmpty() {
		return none("no price")
	}
	if pos.Flat() {
		return decideEntry(q, cfg)
	}

	if threshold, ok := profitTargets.lookup(pos.SellCount); ok {
		if decimalGTE(q.Last, scaled(pos.AveragePrice, threshold)) {
			return decideProfit(q, pos, cfg, threshold.String())
		}
	}

	if pos.BuyCount >= MaxBuyCount {
		return none("max buy count (%d) reached, no more averaging down", MaxBuyCount)
	}

	if decimalLT(q.Last, scaled(pos.AveragePrice, averageDownTrigger)) {
		qty := RoundDownToLot(cfg.InitialQuantity*Multiplier(pos.BuyCount), cfg.LotSize)
		if qty <= 0 {
			return none("calculated buy quantity for averaging is zero")
		}
		return Action{
			Kind:     ActionBuy,
			Quantity: qty,
			Reason: fmt.Sprintf("averaging down: ltp %.2f < avg %.2f x 0.95 (buy #%d, x%d)",
				q.Last, pos.AveragePrice, pos.BuyCount+1, Multiplier(pos.BuyCount)),
		}
	}
	return none("no trading condition met")
}

func decideEntry(q MarketQuote, cfg types.SessionConfig) Action {
	if !q.entryWindow() {
		if q.HasHistory {
			return none("no initial buy condition met. LTP:%.2f AvgLTP:%.2f High:%.2f", q.Last, q.Average, q.High)
		}
		return none("no initial buy condition met. LTP:%.2f AvgLTP:N/A", q.Last)
	}
	qty := RoundDownToLot(cfg.InitialQuantity, cfg.LotSize)
	if qty <= 0 {
		return none("initial quantity %d is below one lot of %d", cfg.InitialQuantity, cfg.LotSize)
	}
	return Action{
		Kind:     ActionBuy,
		Quantity: qty,
		Reason:   fmt.Sprintf("initial buy: ltp %.2f > avg %.2f and < high %.2f x 0.98", q.Last, q.Average, q.High),
	}
}

func decideProfit(q MarketQuote, pos types.PositionSnapshot, cfg types.SessionConfig, threshold string) Action {
	qty := pos.Quantity
	if pos.SellCount < finalProfitTier {
		qty = RoundDownToLot(pos.Quantity/2, cfg.LotSize)
	}
	if qty <= 0 {
		return none("profit target %d met but calculated sell quantity is zero", pos.SellCount+1)
	}
	return Action{
		Kind:     ActionSell,
		Quantity: qty,
		Reason: fmt.Sprintf("profit target %d met: ltp %.2f >= avg %.2f x %s",
			pos.SellCount+1, q.Last, pos.AveragePrice, threshold),
	}
}
