// Package execution submits at-market orders and reports the fill price the
// position ledger should book.
package execution

import (
	"context"
	"errors"
	"fmt"

	"ltpbot/internal/types"
)

// ErrRejected means the endpoint answered but did not accept the order.
var ErrRejected = errors.New("order rejected")

type Request struct {
	ScripCode int
	Exchange  types.Exchange
	Side      types.Side
	Quantity  int
}

func (r Request) validate() error {
	if r.ScripCode <= 0 {
		return fmt.Errorf("invalid scrip code %d", r.ScripCode)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("invalid quantity %d", r.Quantity)
	}
	if _, err := types.ParseSide(string(r.Side)); err != nil {
		return err
	}
	return nil
}

// Fill is what the ledger books: the price and the venue's order id.
type Fill struct {
	Price           float64
	ExternalOrderID string
}

type Executor interface {
	Submit(ctx context.Context, req Request) (Fill, error)
}
