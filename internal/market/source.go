// Package market provides last-traded-price sources: a 5paisa-style HTTP
// market feed and a random-walk simulator for dry runs.
package market

import (
	"context"
	"errors"
	"time"

	"ltpbot/internal/types"
)

// ErrNoPrice means the feed answered but carried no usable price.
var ErrNoPrice = errors.New("no last traded price in response")

// Quote is one observed last traded price.
type Quote struct {
	Price float64
	At    time.Time
}

// Source fetches a fresh price for an instrument. Every call may hit the network.
type Source interface {
	Fetch(ctx context.Context, scripCode int, exch types.Exchange) (Quote, error)
}

// Quoter returns the price an order would fill at right now. For the live feed
// that is a fresh fetch; the simulator answers with its current level.
type Quoter interface {
	Quote(ctx context.Context, scripCode int, exch types.Exchange) (Quote, error)
}
