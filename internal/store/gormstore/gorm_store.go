package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ltpbot/internal/store"
	storemodel "ltpbot/internal/store/model"
	"ltpbot/internal/types"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type ledgerModel = storemodel.LedgerModel

// GormStore persists ledgers in SQLite through GORM, one row per key.
type GormStore struct {
	db *gorm.DB
}

var _ store.LedgerStore = (*GormStore)(nil)

// NewGormStore opens (or creates) the SQLite database at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: sqlite 路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewGormStoreFromDB(db)
}

// NewGormStoreFromDB migrates and wraps an existing connection.
func NewGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	if err := db.AutoMigrate(&ledgerModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Load(ctx context.Context, key string) (store.LedgerRecord, error) {
	if s == nil || s.db == nil {
		return store.LedgerRecord{}, fmt.Errorf("gorm store 未初始化")
	}
	var row ledgerModel
	err := s.db.WithContext(ctx).Where("ledger_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.LedgerRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.LedgerRecord{}, err
	}
	rec := store.LedgerRecord{
		Quantity:     row.Quantity,
		AveragePrice: row.AveragePrice,
		BuyCount:     row.BuyCount,
		SellCount:    row.SellCount,
		RealizedPnL:  row.RealizedPnL,
	}
	if len(row.Orders) > 0 {
		var orders []types.Order
		if err := json.Unmarshal(row.Orders, &orders); err != nil {
			return store.LedgerRecord{}, fmt.Errorf("%w: %s order_book: %v", store.ErrCorrupt, key, err)
		}
		rec.Orders = orders
	}
	return rec, nil
}

// Save upserts the whole record in one statement.
func (s *GormStore) Save(ctx context.Context, key string, rec store.LedgerRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	orders := rec.Orders
	if orders == nil {
		orders = []types.Order{}
	}
	raw, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal order_book: %w", err)
	}
	now := time.Now().Unix()
	row := ledgerModel{
		Key:           key,
		Orders:        datatypes.JSON(raw),
		Quantity:      rec.Quantity,
		AveragePrice:  rec.AveragePrice,
		BuyCount:      rec.BuyCount,
		SellCount:     rec.SellCount,
		RealizedPnL:   rec.RealizedPnL,
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ledger_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"order_book",
				"current_total_quantity",
				"current_average_price",
				"buy_count",
				"sell_count",
				"realized_pnl",
				"updated_at",
			}),
		}).
		Create(&row).Error
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
