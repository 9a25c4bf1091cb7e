package model

import "gorm.io/datatypes"

// LedgerModel is one persisted position ledger, keyed by instrument.
type LedgerModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Key           string         `gorm:"column:ledger_key;uniqueIndex"`
	Orders        datatypes.JSON `gorm:"column:order_book;type:TEXT"`
	Quantity      int            `gorm:"column:current_total_quantity"`
	AveragePrice  float64        `gorm:"column:current_average_price"`
	BuyCount      int            `gorm:"column:buy_count"`
	SellCount     int            `gorm:"column:sell_count"`
	RealizedPnL   float64        `gorm:"column:realized_pnl"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (LedgerModel) TableName() string { return "ledgers" }
