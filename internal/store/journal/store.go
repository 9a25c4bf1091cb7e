// Package journal records every order submission attempt in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ltpbot/internal/store"
	"ltpbot/internal/types"

	_ "modernc.org/sqlite"
)

const maxRecentLimit = 500

// Store 是订单尝试的只追加审计表。
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

var _ store.Journal = (*Store)(nil)

// Open creates the database file and schema when missing.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS order_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			scrip_code INTEGER NOT NULL,
			exchange TEXT NOT NULL,
			mode TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			order_id TEXT,
			external_order_id TEXT,
			fill_price REAL,
			reason TEXT,
			error TEXT
		)`)
	if err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_order_attempts_scrip ON order_attempts(scrip_code, id)`); err != nil {
		return fmt.Errorf("journal index: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, a store.OrderAttempt) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("journal 未初始化")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_attempts
		    (created_at, scrip_code, exchange, mode, side, quantity, outcome, order_id, external_order_id, fill_price, reason, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CreatedAt.UnixMilli(), a.ScripCode, a.Exchange, a.Mode, string(a.Side), a.Quantity,
		string(a.Outcome), a.OrderID, a.ExternalID, a.FillPrice, a.Reason, a.Error)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Recent returns the newest attempts first. scripCode <= 0 returns all instruments.
func (s *Store) Recent(ctx context.Context, scripCode, limit int) ([]store.OrderAttempt, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal 未初始化")
	}
	if limit <= 0 || limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	query := `SELECT id, created_at, scrip_code, exchange, mode, side, quantity, outcome,
		COALESCE(order_id, ''), COALESCE(external_order_id, ''), COALESCE(fill_price, 0),
		COALESCE(reason, ''), COALESCE(error, '')
		FROM order_attempts`
	args := []any{}
	if scripCode > 0 {
		query += ` WHERE scrip_code = ?`
		args = append(args, scripCode)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []store.OrderAttempt
	for rows.Next() {
		var (
			a       store.OrderAttempt
			ts      int64
			side    string
			outcome string
		)
		if err := rows.Scan(&a.ID, &ts, &a.ScripCode, &a.Exchange, &a.Mode, &side, &a.Quantity, &outcome,
			&a.OrderID, &a.ExternalID, &a.FillPrice, &a.Reason, &a.Error); err != nil {
			return nil, err
		}
		a.CreatedAt = time.UnixMilli(ts)
		a.Side = types.Side(side)
		a.Outcome = store.AttemptOutcome(outcome)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
