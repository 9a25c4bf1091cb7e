package types

import (
	"fmt"
	"strings"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes a side string.
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown order side %q", raw)
	}
}

// OrderStatus is always Completed: fills are all-or-nothing at market.
type OrderStatus string

const OrderStatusCompleted OrderStatus = "Completed"

// Order is an immutable fill record. ID is a UUIDv7, so lexical order of IDs
// follows creation time.
type Order struct {
	ID         string      `json:"order_id"`
	ExternalID string      `json:"external_order_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Side       Side        `json:"side"`
	Quantity   int         `json:"quantity"`
	Price      float64     `json:"price"`
	Status     OrderStatus `json:"status"`
}
