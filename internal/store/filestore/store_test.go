package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ltpbot/internal/store"
	"ltpbot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Load(ctx, "order_book_500325")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec := store.LedgerRecord{
		Orders:       []types.Order{{ID: "a", Side: types.SideSell, Quantity: 25, Price: 99, Status: types.OrderStatusCompleted}},
		Quantity:     50,
		AveragePrice: 97.5,
		BuyCount:     3,
		SellCount:    1,
		RealizedPnL:  37.5,
	}
	require.NoError(t, s.Save(ctx, "order_book_500325", rec))

	got, err := s.Load(ctx, "order_book_500325")
	require.NoError(t, err)
	assert.Equal(t, rec.Quantity, got.Quantity)
	assert.Equal(t, rec.AveragePrice, got.AveragePrice)
	assert.Equal(t, rec.RealizedPnL, got.RealizedPnL)
	assert.Equal(t, rec.Orders[0].ID, got.Orders[0].ID)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order_book_7.json"), []byte("{not json"), 0o644))

	_, err = s.Load(context.Background(), "order_book_7")
	assert.ErrorIs(t, err, store.ErrCorrupt)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "order_book_1", sanitizeKey("order_book_1"))
	assert.Equal(t, ".._etc_passwd", sanitizeKey("../etc/passwd"))
	assert.Equal(t, "order_book", sanitizeKey("  "))
}
