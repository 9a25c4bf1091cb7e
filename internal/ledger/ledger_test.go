package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ltpbot/internal/store"
	"ltpbot/internal/store/filestore"
	"ltpbot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, key string) (store.LedgerRecord, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(store.LedgerRecord), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, key string, rec store.LedgerRecord) error {
	args := m.Called(ctx, key, rec)
	return args.Error(0)
}

func (m *MockStore) Close() error { return nil }

func openFile(t *testing.T, dir string) *Ledger {
	t.Helper()
	st, err := filestore.New(dir)
	require.NoError(t, err)
	l, err := Open(context.Background(), st, "order_book_42", Options{})
	require.NoError(t, err)
	return l
}

func TestLedger_BuyAveragesVolumeWeighted(t *testing.T) {
	l := openFile(t, t.TempDir())
	ctx := context.Background()
	fills := []struct {
		qty   int
		price float64
	}{{75, 100}, {75, 94}, {150, 89.5}, {25, 120.25}}

	var notional float64
	var units int
	for _, f := range fills {
		_, err := l.RecordFill(ctx, types.SideBuy, f.qty, f.price)
		require.NoError(t, err)
		notional += float64(f.qty) * f.price
		units += f.qty
	}
	snap := l.Snapshot(100)
	assert.Equal(t, units, snap.Quantity)
	assert.InDelta(t, notional/float64(units), snap.AveragePrice, 1e-9)
	assert.Equal(t, len(fills), snap.BuyCount)
	assert.Equal(t, 0, snap.SellCount)
}

func TestLedger_SellClampsAndResetsOnClose(t *testing.T) {
	l := openFile(t, t.TempDir())
	ctx := context.Background()

	_, err := l.RecordFill(ctx, types.SideBuy, 100, 100)
	require.NoError(t, err)
	snap, err := l.RecordFill(ctx, types.SideSell, 50, 103)
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Quantity)
	assert.Equal(t, 1, snap.SellCount)
	assert.InDelta(t, 150.0, snap.RealizedPnL, 1e-9)

	snap, err = l.RecordFill(ctx, types.SideSell, 500, 110)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Quantity, "oversell must clamp to the held quantity")
	assert.Equal(t, 0.0, snap.AveragePrice)
	assert.Equal(t, 0, snap.BuyCount)
	assert.Equal(t, 0, snap.SellCount)
	assert.InDelta(t, 150.0+500.0, snap.RealizedPnL, 1e-9)

	snap, err = l.RecordFill(ctx, types.SideBuy, 25, 90)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.BuyCount, "first buy after a close reopens tier progression")
	assert.InDelta(t, 650.0, snap.RealizedPnL, 1e-9, "realized PnL survives a full close")
}

func TestLedger_SellOnFlatIsNoop(t *testing.T) {
	l := openFile(t, t.TempDir())
	snap, err := l.RecordFill(context.Background(), types.SideSell, 10, 99)
	require.NoError(t, err)
	assert.Equal(t, types.PositionSnapshot{}, snap)
}

func TestLedger_RejectsInvalidFill(t *testing.T) {
	l := openFile(t, t.TempDir())
	_, err := l.RecordFill(context.Background(), types.SideBuy, 0, 100)
	assert.ErrorIs(t, err, ErrInvalidFill)
	_, err = l.RecordFill(context.Background(), types.SideBuy, 10, -1)
	assert.ErrorIs(t, err, ErrInvalidFill)
	_, err = l.RecordFill(context.Background(), types.Side("HOLD"), 10, 1)
	assert.ErrorIs(t, err, ErrInvalidFill)
}

func TestLedger_SnapshotPnL(t *testing.T) {
	l := openFile(t, t.TempDir())
	ctx := context.Background()
	_, err := l.RecordFill(ctx, types.SideBuy, 40, 50)
	require.NoError(t, err)
	_, err = l.RecordFill(ctx, types.SideSell, 10, 55)
	require.NoError(t, err)

	snap := l.Snapshot(48)
	assert.InDelta(t, 50.0, snap.RealizedPnL, 1e-9)
	assert.InDelta(t, -60.0, snap.UnrealizedPnL, 1e-9)
	assert.InDelta(t, -10.0, snap.NetPnL, 1e-9)
	assert.Equal(t, snap, l.Snapshot(48), "snapshot must not mutate")
}

func TestLedger_PersistedReloadMatches(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	l := openFile(t, dir)
	require.NoError(t, l.AppendOrder(ctx, types.Order{ID: "o1", Side: types.SideBuy, Quantity: 30, Price: 10, Status: types.OrderStatusCompleted}))
	_, err := l.RecordFill(ctx, types.SideBuy, 30, 10)
	require.NoError(t, err)
	_, err = l.RecordFill(ctx, types.SideBuy, 30, 7)
	require.NoError(t, err)
	_, err = l.RecordFill(ctx, types.SideSell, 30, 9)
	require.NoError(t, err)

	reloaded := openFile(t, dir)
	assert.Equal(t, l.Snapshot(9.5), reloaded.Snapshot(9.5))
	assert.Equal(t, l.Orders(), reloaded.Orders())
}

func TestLedger_CorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order_book_42.json"), []byte(`{"current_total_quantity": "many"`), 0o644))
	l := openFile(t, dir)
	assert.Equal(t, types.PositionSnapshot{}, l.Snapshot(100))
	assert.Empty(t, l.Orders())
}

func TestLedger_OrderLogIsBounded(t *testing.T) {
	st, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	l, err := Open(ctx, st, "order_book_1", Options{MaxOrders: 3})
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		require.NoError(t, l.AppendOrder(ctx, types.Order{ID: fmt.Sprintf("o%d", i)}))
	}
	orders := l.Orders()
	require.Len(t, orders, 3)
	assert.Equal(t, "o3", orders[0].ID)
	assert.Equal(t, "o5", orders[2].ID)

	rec, err := st.Load(ctx, "order_book_1")
	require.NoError(t, err)
	assert.Len(t, rec.Orders, 3)
}

func TestLedger_PersistFailureKeepsState(t *testing.T) {
	st := new(MockStore)
	st.On("Load", mock.Anything, "k").Return(store.LedgerRecord{}, store.ErrNotFound)
	st.On("Save", mock.Anything, "k", mock.Anything).Return(errors.New("disk full"))

	l, err := Open(context.Background(), st, "k", Options{})
	require.NoError(t, err)
	snap, err := l.RecordFill(context.Background(), types.SideBuy, 10, 20)
	assert.Error(t, err)
	assert.Equal(t, 10, snap.Quantity)
	assert.Equal(t, 10, l.Snapshot(20).Quantity)
	st.AssertExpectations(t)
}

func TestLedger_LoadsPersistedState(t *testing.T) {
	st := new(MockStore)
	st.On("Load", mock.Anything, "k").Return(store.LedgerRecord{
		Quantity: 0, AveragePrice: 12.5, RealizedPnL: 8, BuyCount: 0,
	}, nil)
	l, err := Open(context.Background(), st, "k", Options{})
	require.NoError(t, err)
	snap := l.Snapshot(10)
	assert.Equal(t, 0.0, snap.AveragePrice, "flat ledger never carries a cost basis")
	assert.Equal(t, 8.0, snap.RealizedPnL)
}

func TestLedger_ConcurrentReadersSeeConsistentState(t *testing.T) {
	l := openFile(t, t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := l.Snapshot(100)
			if snap.Quantity == 0 {
				assert.Equal(t, 0.0, snap.AveragePrice)
			} else {
				assert.Equal(t, 100.0, snap.AveragePrice)
			}
		}
	}()
	for i := 0; i < 50; i++ {
		_, err := l.RecordFill(ctx, types.SideBuy, 10, 100)
		require.NoError(t, err)
		_, err = l.RecordFill(ctx, types.SideSell, 10, 101)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}
