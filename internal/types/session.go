package types

import (
	"fmt"
	"strings"
)

// Exchange selects the venue segment for feed and order routing.
type Exchange string

const (
	ExchangeBSE Exchange = "BSE"
	ExchangeNSE Exchange = "NSE"
)

// ParseExchange accepts BSE or NSE in any case.
func ParseExchange(raw string) (Exchange, error) {
	switch Exchange(strings.ToUpper(strings.TrimSpace(raw))) {
	case ExchangeBSE:
		return ExchangeBSE, nil
	case ExchangeNSE:
		return ExchangeNSE, nil
	default:
		return "", fmt.Errorf("unknown exchange %q (want BSE or NSE)", raw)
	}
}

// FeedCode is the single-letter exchange code of the market feed.
func (e Exchange) FeedCode() string {
	if e == ExchangeBSE {
		return "B"
	}
	return "N"
}

// OrderSegment is the derivatives segment used for order routing.
func (e Exchange) OrderSegment() string {
	if e == ExchangeBSE {
		return "BFO"
	}
	return "NFO"
}

// ExecutionMode chooses between real endpoints and the simulator.
type ExecutionMode string

const (
	ModeLive      ExecutionMode = "live"
	ModeSimulated ExecutionMode = "simulated"
)

// SessionConfig is fixed for the lifetime of one trading session.
type SessionConfig struct {
	ScripCode       int           `json:"scrip_code" toml:"scrip_code"`
	Exchange        Exchange      `json:"exchange" toml:"exchange"`
	LotSize         int           `json:"lot_size" toml:"lot_size"`
	InitialQuantity int           `json:"initial_quantity" toml:"initial_quantity"`
	Mode            ExecutionMode `json:"mode,omitempty" toml:"mode"`
	// DummyMode is the legacy switch for Mode=simulated.
	DummyMode bool `json:"dummy_mode,omitempty" toml:"dummy_mode"`
}

// Simulated reports whether the session runs without real endpoints.
func (c SessionConfig) Simulated() bool {
	return c.Mode == ModeSimulated || c.DummyMode
}

// LedgerKey names the persisted ledger record for the instrument.
func (c SessionConfig) LedgerKey() string {
	return fmt.Sprintf("order_book_%d", c.ScripCode)
}
