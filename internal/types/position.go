package types

// PositionSnapshot is a torn-free copy of the ledger scalars, with PnL
// marked at the price the snapshot was taken for.
type PositionSnapshot struct {
	Quantity      int     `json:"current_total_quantity"`
	AveragePrice  float64 `json:"current_average_price"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	NetPnL        float64 `json:"net_pnl"`
	BuyCount      int     `json:"buy_count"`
	SellCount     int     `json:"sell_count"`
}

// Flat reports whether no units are held.
func (p PositionSnapshot) Flat() bool {
	return p.Quantity <= 0
}
