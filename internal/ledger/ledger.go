// Package ledger owns the open position of one instrument: quantity, cost
// basis, realized PnL, fill counters and the bounded order log. Every
// mutation is written through to a store.LedgerStore before it returns.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ltpbot/internal/logger"
	"ltpbot/internal/store"
	"ltpbot/internal/types"
)

// DefaultMaxOrders bounds the in-memory and persisted order log.
const DefaultMaxOrders = 1000

// ErrInvalidFill rejects fills with a non-positive quantity or price.
var ErrInvalidFill = errors.New("invalid fill")

type Options struct {
	MaxOrders int
}

// Ledger is safe for concurrent use. A single mutex covers the scalars and
// the order log, so readers never see a partially applied fill.
type Ledger struct {
	mu        sync.Mutex
	key       string
	store     store.LedgerStore
	maxOrders int

	orders       []types.Order
	quantity     int
	averagePrice float64
	buyCount     int
	sellCount    int
	realizedPnL  float64
}

// Open loads the ledger persisted under key. A missing record starts fresh;
// an unreadable one is logged and also starts fresh. Only a nil store is an error.
func Open(ctx context.Context, st store.LedgerStore, key string, opts Options) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger: store is nil")
	}
	maxOrders := opts.MaxOrders
	if maxOrders <= 0 {
		maxOrders = DefaultMaxOrders
	}
	l := &Ledger{key: key, store: st, maxOrders: maxOrders}

	rec, err := st.Load(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Infof("Ledger[%s]: no persisted record, starting fresh", key)
		return l, nil
	case err != nil:
		logger.Errorf("Ledger[%s]: load failed: %v. Initializing fresh state.", key, err)
		return l, nil
	}
	if rec.Quantity < 0 || rec.BuyCount < 0 || rec.SellCount < 0 {
		logger.Errorf("Ledger[%s]: persisted record has negative fields (qty=%d buys=%d sells=%d). Initializing fresh state.",
			key, rec.Quantity, rec.BuyCount, rec.SellCount)
		return l, nil
	}
	l.orders = trimOrders(rec.Orders, maxOrders)
	l.quantity = rec.Quantity
	l.averagePrice = rec.AveragePrice
	l.buyCount = rec.BuyCount
	l.sellCount = rec.SellCount
	l.realizedPnL = rec.RealizedPnL
	if l.quantity == 0 {
		l.averagePrice = 0
	}
	logger.Infof("Ledger[%s]: loaded %d orders qty=%d avg=%.2f realized=%.2f",
		key, len(l.orders), l.quantity, l.averagePrice, l.realizedPnL)
	return l, nil
}

func (l *Ledger) Key() string { return l.key }

// RecordFill applies a completed fill and persists the result.
//
// A SELL larger than the open quantity is clamped to it. A SELL against a
// flat position changes nothing. Reaching zero resets the cost basis and
// both fill counters.
func (l *Ledger) RecordFill(ctx context.Context, side types.Side, quantity int, price float64) (types.PositionSnapshot, error) {
	if quantity <= 0 || price <= 0 {
		return types.PositionSnapshot{}, fmt.Errorf("%w: side=%s qty=%d price=%v", ErrInvalidFill, side, quantity, price)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	switch side {
	case types.SideBuy:
		cost := float64(l.quantity)*l.averagePrice + float64(quantity)*price
		l.quantity += quantity
		l.averagePrice = cost / float64(l.quantity)
		l.buyCount++
		logger.Infof("Position after BUY: Qty=%d, AvgPrice=%.2f", l.quantity, l.averagePrice)
	case types.SideSell:
		if l.quantity > 0 {
			sold := min(quantity, l.quantity)
			pnl := (price - l.averagePrice) * float64(sold)
			l.realizedPnL += pnl
			l.quantity -= sold
			l.sellCount++
			logger.Infof("Realized PnL from SELL: %.2f", pnl)
			if l.quantity == 0 {
				logger.Infof("Position fully closed. Resetting counts.")
				l.averagePrice = 0
				l.buyCount = 0
				l.sellCount = 0
			}
		} else {
			logger.Warnf("Ledger[%s]: SELL of %d ignored, position is flat", l.key, quantity)
		}
		logger.Infof("Position after SELL: Qty=%d, Realized PnL=%.2f", l.quantity, l.realizedPnL)
	default:
		return types.PositionSnapshot{}, fmt.Errorf("%w: unknown side %q", ErrInvalidFill, side)
	}

	snap := l.snapshotLocked(price)
	return snap, l.persistLocked(ctx)
}

// AppendOrder adds a completed order to the log, keeping the newest entries.
func (l *Ledger) AppendOrder(ctx context.Context, order types.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = trimOrders(append(l.orders, order), l.maxOrders)
	logger.Infof("Order added to book: %s", order.ID)
	return l.persistLocked(ctx)
}

// Snapshot marks the position at price without mutating anything.
func (l *Ledger) Snapshot(price float64) types.PositionSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked(price)
}

// Orders returns a copy of the order log, oldest first.
func (l *Ledger) Orders() []types.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

func (l *Ledger) snapshotLocked(price float64) types.PositionSnapshot {
	unrealized := 0.0
	if l.quantity > 0 {
		unrealized = (price - l.averagePrice) * float64(l.quantity)
	}
	return types.PositionSnapshot{
		Quantity:      l.quantity,
		AveragePrice:  l.averagePrice,
		RealizedPnL:   l.realizedPnL,
		UnrealizedPnL: unrealized,
		NetPnL:        l.realizedPnL + unrealized,
		BuyCount:      l.buyCount,
		SellCount:     l.sellCount,
	}
}

func (l *Ledger) recordLocked() store.LedgerRecord {
	orders := make([]types.Order, len(l.orders))
	copy(orders, l.orders)
	return store.LedgerRecord{
		Orders:       orders,
		Quantity:     l.quantity,
		AveragePrice: l.averagePrice,
		BuyCount:     l.buyCount,
		SellCount:    l.sellCount,
		RealizedPnL:  l.realizedPnL,
	}
}

// persistLocked keeps the in-memory state even when the write fails; the
// next successful write carries it.
func (l *Ledger) persistLocked(ctx context.Context) error {
	if err := l.store.Save(ctx, l.key, l.recordLocked()); err != nil {
		logger.Errorf("Ledger[%s]: persist failed: %v", l.key, err)
		return fmt.Errorf("ledger persist %s: %w", l.key, err)
	}
	return nil
}

func trimOrders(orders []types.Order, limit int) []types.Order {
	if len(orders) <= limit {
		return orders
	}
	trimmed := make([]types.Order, limit)
	copy(trimmed, orders[len(orders)-limit:])
	return trimmed
}
