package journal

import (
	"context"
	"path/filepath"
	"testing"

	"ltpbot/internal/store"
	"ltpbot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_RecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, store.OrderAttempt{
		ScripCode: 11, Exchange: "NSE", Mode: "simulated", Side: types.SideBuy, Quantity: 50,
		Outcome: store.AttemptFilled, OrderID: "o-1", FillPrice: 101.25, Reason: "initial entry",
	}))
	require.NoError(t, j.Record(ctx, store.OrderAttempt{
		ScripCode: 11, Exchange: "NSE", Mode: "live", Side: types.SideSell, Quantity: 25,
		Outcome: store.AttemptFailed, Error: "broker timeout",
	}))
	require.NoError(t, j.Record(ctx, store.OrderAttempt{
		ScripCode: 22, Exchange: "BSE", Mode: "live", Side: types.SideBuy, Quantity: 10,
		Outcome: store.AttemptFilled, FillPrice: 5,
	}))

	got, err := j.Recent(ctx, 11, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.SideSell, got[0].Side)
	assert.Equal(t, store.AttemptFailed, got[0].Outcome)
	assert.Equal(t, "broker timeout", got[0].Error)
	assert.Equal(t, 101.25, got[1].FillPrice)
	assert.Equal(t, "o-1", got[1].OrderID)

	all, err := j.Recent(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 22, all[0].ScripCode)
}
