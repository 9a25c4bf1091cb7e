package store

import (
	"context"
	"errors"
	"time"

	"ltpbot/internal/types"
)

var (
	// ErrNotFound is returned by Load when no record exists for the key.
	ErrNotFound = errors.New("ledger record not found")
	// ErrCorrupt is returned by Load when the stored record cannot be decoded.
	ErrCorrupt = errors.New("ledger record corrupt")
)

// LedgerRecord is the persisted shape of a position ledger.
type LedgerRecord struct {
	Orders       []types.Order `json:"order_book"`
	Quantity     int           `json:"current_total_quantity"`
	AveragePrice float64       `json:"current_average_price"`
	BuyCount     int           `json:"buy_count"`
	SellCount    int           `json:"sell_count"`
	RealizedPnL  float64       `json:"realized_pnl"`
}

// LedgerStore persists one LedgerRecord per key. Save replaces the whole
// record atomically.
type LedgerStore interface {
	Load(ctx context.Context, key string) (LedgerRecord, error)
	Save(ctx context.Context, key string, rec LedgerRecord) error
	Close() error
}

// AttemptOutcome classifies an order submission attempt.
type AttemptOutcome string

const (
	AttemptFilled AttemptOutcome = "filled"
	AttemptFailed AttemptOutcome = "failed"
)

// OrderAttempt is one journal row: every submission, filled or not.
type OrderAttempt struct {
	ID         int64          `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	ScripCode  int            `json:"scrip_code"`
	Exchange   string         `json:"exchange"`
	Mode       string         `json:"mode"`
	Side       types.Side     `json:"side"`
	Quantity   int            `json:"quantity"`
	Outcome    AttemptOutcome `json:"outcome"`
	OrderID    string         `json:"order_id,omitempty"`
	ExternalID string         `json:"external_order_id,omitempty"`
	FillPrice  float64        `json:"fill_price,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Journal is an append-only audit trail of order attempts.
type Journal interface {
	Record(ctx context.Context, attempt OrderAttempt) error
	Recent(ctx context.Context, scripCode, limit int) ([]OrderAttempt, error)
	Close() error
}
