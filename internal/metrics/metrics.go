// Package metrics holds the Prometheus collectors updated by the trading
// session. They are registered in init() and served at /metrics:
//
//	ltpbot_ticks_total{outcome}          ok|skipped|stale|fetch_error|order_error|ledger_error|panic
//	ltpbot_decisions_total{action}       none|buy|sell
//	ltpbot_orders_total{mode,side}       filled orders
//	ltpbot_feed_requests_total{outcome}  ok|error per HTTP attempt
//	ltpbot_position_quantity, ltpbot_position_average_price,
//	ltpbot_realized_pnl, ltpbot_net_pnl, ltpbot_last_price
//	ltpbot_session_running               1 while a session is running
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ltpbot/internal/types"
)

var (
	ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ltpbot_ticks_total", Help: "Control loop ticks by outcome"},
		[]string{"outcome"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ltpbot_decisions_total", Help: "Strategy decisions by action"},
		[]string{"action"},
	)

	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ltpbot_orders_total", Help: "Filled orders"},
		[]string{"mode", "side"},
	)

	feedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ltpbot_feed_requests_total", Help: "Market feed HTTP attempts by outcome"},
		[]string{"outcome"},
	)

	positionQty = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ltpbot_position_quantity", Help: "Units currently held",
	})
	positionAvg = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ltpbot_position_average_price", Help: "Volume-weighted average entry price",
	})
	realizedPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ltpbot_realized_pnl", Help: "Cumulative realized PnL of the session",
	})
	netPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ltpbot_net_pnl", Help: "Realized plus unrealized PnL at the last price",
	})
	lastPrice = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ltpbot_last_price", Help: "Last traded price seen by the control loop",
	})
	running = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ltpbot_session_running", Help: "1 while a trading session is running",
	})
)

func init() {
	prometheus.MustRegister(ticks, decisions, orders, feedRequests,
		positionQty, positionAvg, realizedPnL, netPnL, lastPrice, running)
}

func ObserveTick(outcome string) { ticks.WithLabelValues(outcome).Inc() }
func ObserveDecision(action string) { decisions.WithLabelValues(action).Inc() }
func ObserveFeedRequest(outcome string) { feedRequests.WithLabelValues(outcome).Inc() }

func ObserveOrder(mode types.ExecutionMode, side types.Side) {
	orders.WithLabelValues(string(mode), string(side)).Inc()
}

func SetLastPrice(price float64) { lastPrice.Set(price) }

// SetPosition publishes a ledger snapshot.
func SetPosition(s types.PositionSnapshot) {
	positionQty.Set(float64(s.Quantity))
	positionAvg.Set(s.AveragePrice)
	realizedPnL.Set(s.RealizedPnL)
	netPnL.Set(s.NetPnL)
}

func SetRunning(on bool) {
	if on {
		running.Set(1)
		return
	}
	running.Set(0)
}
