package session

import (
	"context"
	"time"

	"ltpbot/internal/history"
	"ltpbot/internal/logger"
	"ltpbot/internal/store"
	"ltpbot/internal/types"
)

// Status is a point-in-time view of the session. Portfolio is valued at the
// last price the loop observed; no network call is made.
type Status struct {
	Running     bool                    `json:"bot_running"`
	State       string                  `json:"state"`
	Timestamp   time.Time               `json:"timestamp"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	Config      *types.SessionConfig    `json:"config,omitempty"`
	ScripCode   int                     `json:"scrip_code,omitempty"`
	CurrentLTP  float64                 `json:"current_ltp"`
	LTPAt       *time.Time              `json:"ltp_at,omitempty"`
	LTPStats    *history.Stats          `json:"ltp_stats,omitempty"`
	Portfolio   *types.PositionSnapshot `json:"portfolio_status,omitempty"`
	BuyCount    int                     `json:"buy_count"`
	SellCount   int                     `json:"sell_count"`
	TotalOrders int                     `json:"total_orders"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		Running:   c.state == StateRunning,
		State:     c.state.String(),
		Timestamp: c.now(),
	}
	led, hist := c.ledger, c.history
	if c.cfg == nil || led == nil || hist == nil {
		c.mu.Unlock()
		return st
	}
	cfg := *c.cfg
	started := c.startedAt
	price, priceAt := c.lastPrice, c.lastPriceAt
	c.mu.Unlock()

	st.Config = &cfg
	st.ScripCode = cfg.ScripCode
	st.StartedAt = &started
	st.CurrentLTP = price
	if !priceAt.IsZero() {
		st.LTPAt = &priceAt
	}
	if stats := hist.Stats(); stats.OK {
		st.LTPStats = &stats
	}
	snap := led.Snapshot(price)
	st.Portfolio = &snap
	st.BuyCount = snap.BuyCount
	st.SellCount = snap.SellCount
	st.TotalOrders = len(led.Orders())
	return st
}

// Orders returns the current session's order log, oldest first.
func (c *Controller) Orders() []types.Order {
	c.mu.Lock()
	led := c.ledger
	c.mu.Unlock()
	if led == nil {
		return []types.Order{}
	}
	return led.Orders()
}

// Logs returns recently captured log lines, oldest first.
func (c *Controller) Logs() []string {
	return logger.Recent()
}

// Journal lists recent order attempts, newest first. scripCode 0 lists all
// instruments.
func (c *Controller) Journal(ctx context.Context, scripCode, limit int) ([]store.OrderAttempt, error) {
	if c.journal == nil {
		return []store.OrderAttempt{}, nil
	}
	return c.journal.Recent(ctx, scripCode, limit)
}
