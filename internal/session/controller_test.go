package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ltpbot/internal/execution"
	"ltpbot/internal/market"
	"ltpbot/internal/store"
	"ltpbot/internal/store/filestore"
	"ltpbot/internal/types"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Fetch(ctx context.Context, scripCode int, exch types.Exchange) (market.Quote, error) {
	args := m.Called(ctx, scripCode, exch)
	return args.Get(0).(market.Quote), args.Error(1)
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Submit(ctx context.Context, req execution.Request) (execution.Fill, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(execution.Fill), args.Error(1)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Record(ctx context.Context, a store.OrderAttempt) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockJournal) Recent(ctx context.Context, scripCode, limit int) ([]store.OrderAttempt, error) {
	args := m.Called(ctx, scripCode, limit)
	return args.Get(0).([]store.OrderAttempt), args.Error(1)
}

func (m *MockJournal) Close() error { return nil }

type stubPorts struct {
	src  market.Source
	exec execution.Executor
	err  error
}

func (s stubPorts) Open(types.SessionConfig) (market.Source, execution.Executor, error) {
	return s.src, s.exec, s.err
}

// blockingSource holds every Fetch until release is closed, then quotes price.
type blockingSource struct {
	release chan struct{}
	price   float64
	calls   atomic.Int32
}

func (b *blockingSource) Fetch(context.Context, int, types.Exchange) (market.Quote, error) {
	b.calls.Add(1)
	<-b.release
	return market.Quote{Price: b.price, At: time.Now()}, nil
}

func quoteAt(p float64) market.Quote { return market.Quote{Price: p, At: time.Now()} }

func testConfig() types.SessionConfig {
	return types.SessionConfig{ScripCode: 1660, Exchange: types.ExchangeNSE, LotSize: 1, InitialQuantity: 1, Mode: types.ModeLive}
}

func testOptions() Options {
	return Options{Interval: 2 * time.Millisecond, StopTimeout: time.Second, TickTimeout: time.Second}
}

func newFileStore(t *testing.T) store.LedgerStore {
	t.Helper()
	st, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	return st
}

func newController(t *testing.T, st store.LedgerStore, journal store.Journal, ports PortFactory) *Controller {
	t.Helper()
	c := NewController(st, journal, ports, testOptions())
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func entrySource() *MockSource {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, 1660, types.ExchangeNSE).Return(quoteAt(100), nil).Once()
	src.On("Fetch", mock.Anything, 1660, types.ExchangeNSE).Return(quoteAt(110), nil).Once()
	src.On("Fetch", mock.Anything, 1660, types.ExchangeNSE).Return(quoteAt(106), nil)
	return src
}

func TestStartRejectsSecondStart(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(quoteAt(100), nil)
	c := newController(t, newFileStore(t), nil, stubPorts{src: src, exec: new(MockExecutor)})

	require.NoError(t, c.Start(context.Background(), testConfig()))
	assert.ErrorIs(t, c.Start(context.Background(), testConfig()), ErrAlreadyRunning)
	assert.Equal(t, StateRunning, c.State())
}

func TestStopWhenNotRunning(t *testing.T) {
	c := newController(t, newFileStore(t), nil, stubPorts{})
	assert.ErrorIs(t, c.Stop(context.Background()), ErrNotRunning)
	assert.NoError(t, c.Close(context.Background()))
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(quoteAt(100), nil)
	c := newController(t, newFileStore(t), nil, stubPorts{src: src, exec: new(MockExecutor)})

	bad := testConfig()
	bad.LotSize = 0
	require.Error(t, c.Start(context.Background(), bad))
	assert.Equal(t, StateStopped, c.State())
	assert.False(t, c.Status().Running)

	require.NoError(t, c.Start(context.Background(), testConfig()))
}

func TestStartFailsWhenPortsFail(t *testing.T) {
	c := newController(t, newFileStore(t), nil, stubPorts{err: errors.New("no api key")})
	require.Error(t, c.Start(context.Background(), testConfig()))
	assert.Equal(t, StateStopped, c.State())
}

func TestLoopBuysAndBooksFill(t *testing.T) {
	st := newFileStore(t)
	exec := new(MockExecutor)
	exec.On("Submit", mock.Anything, execution.Request{
		ScripCode: 1660, Exchange: types.ExchangeNSE, Side: types.SideBuy, Quantity: 1,
	}).Return(execution.Fill{Price: 106, ExternalOrderID: "STK-1"}, nil).Once()
	journal := new(MockJournal)
	journal.On("Record", mock.Anything, mock.Anything).Return(nil)

	c := newController(t, st, journal, stubPorts{src: entrySource(), exec: exec})
	require.NoError(t, c.Start(context.Background(), testConfig()))

	require.Eventually(t, func() bool { return len(c.Orders()) == 1 }, 2*time.Second, 5*time.Millisecond)
	order := c.Orders()[0]
	assert.Equal(t, types.SideBuy, order.Side)
	assert.Equal(t, 106.0, order.Price)
	assert.Equal(t, "STK-1", order.ExternalID)
	assert.Equal(t, types.OrderStatusCompleted, order.Status)
	assert.Len(t, order.ID, 36)

	require.Eventually(t, func() bool {
		st := c.Status()
		return st.Portfolio != nil && st.Portfolio.Quantity == 1
	}, time.Second, 5*time.Millisecond)
	status := c.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 1660, status.ScripCode)
	assert.Equal(t, 106.0, status.CurrentLTP)
	assert.Equal(t, 106.0, status.Portfolio.AveragePrice)
	assert.Equal(t, 1, status.BuyCount)

	require.NoError(t, c.Stop(context.Background()))
	assert.False(t, c.Status().Running)
	assert.Empty(t, c.Orders())
	exec.AssertExpectations(t)
	journal.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(a store.OrderAttempt) bool {
		return a.Outcome == store.AttemptFilled && a.FillPrice == 106 && a.Side == types.SideBuy
	}))

	// a new session on the same instrument resumes the persisted position
	src := new(MockSource)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(quoteAt(104), nil)
	c2 := newController(t, st, nil, stubPorts{src: src, exec: new(MockExecutor)})
	require.NoError(t, c2.Start(context.Background(), testConfig()))
	status = c2.Status()
	require.NotNil(t, status.Portfolio)
	assert.Equal(t, 1, status.Portfolio.Quantity)
	assert.Equal(t, 106.0, status.Portfolio.AveragePrice)
	assert.Len(t, c2.Orders(), 1)
}

func TestLoopExecutorFailureLeavesLedgerUntouched(t *testing.T) {
	var submitted atomic.Bool
	exec := new(MockExecutor)
	exec.On("Submit", mock.Anything, mock.Anything).Return(execution.Fill{}, errors.New("broker down")).
		Run(func(mock.Arguments) { submitted.Store(true) })
	journal := new(MockJournal)
	journal.On("Record", mock.Anything, mock.Anything).Return(nil)

	c := newController(t, newFileStore(t), journal, stubPorts{src: entrySource(), exec: exec})
	require.NoError(t, c.Start(context.Background(), testConfig()))

	require.Eventually(t, submitted.Load, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Empty(t, c.Orders())
	journal.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(a store.OrderAttempt) bool {
		return a.Outcome == store.AttemptFailed && a.Error == "broker down"
	}))
}

func TestLoopRecoversFromPanic(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Panic("feed exploded").Once()
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(quoteAt(99), nil)

	c := newController(t, newFileStore(t), nil, stubPorts{src: src, exec: new(MockExecutor)})
	require.NoError(t, c.Start(context.Background(), testConfig()))

	require.Eventually(t, func() bool { return c.Status().CurrentLTP == 99 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, c.Status().Running)
}

func TestLoopFetchErrorSkipsTick(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(market.Quote{}, errors.New("timeout")).Twice()
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(quoteAt(101), nil)

	c := newController(t, newFileStore(t), nil, stubPorts{src: src, exec: new(MockExecutor)})
	require.NoError(t, c.Start(context.Background(), testConfig()))
	require.Eventually(t, func() bool { return c.Status().CurrentLTP == 101 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, c.Orders())
}

func TestStopAbandonsStuckTick(t *testing.T) {
	src := &blockingSource{release: make(chan struct{}), price: 100}
	defer close(src.release)

	opts := testOptions()
	opts.StopTimeout = 30 * time.Millisecond
	c := NewController(newFileStore(t), nil, stubPorts{src: src, exec: new(MockExecutor)}, opts)
	require.NoError(t, c.Start(context.Background(), testConfig()))
	time.Sleep(10 * time.Millisecond)

	begin := time.Now()
	require.NoError(t, c.Stop(context.Background()))
	assert.Less(t, time.Since(begin), time.Second)
	assert.Equal(t, StateStopped, c.State())
	assert.False(t, c.Status().Running)
}

func TestStatusIsSafeDuringLoop(t *testing.T) {
	src := new(MockSource)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(quoteAt(100), nil)
	c := newController(t, newFileStore(t), nil, stubPorts{src: src, exec: new(MockExecutor)})
	require.NoError(t, c.Start(context.Background(), testConfig()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Status()
				_ = c.Orders()
				_ = c.Logs()
			}
		}()
	}
	wg.Wait()
	require.NoError(t, c.Stop(context.Background()))
}

func TestStatusWhenStopped(t *testing.T) {
	c := newController(t, newFileStore(t), nil, stubPorts{})
	st := c.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "stopped", st.State)
	assert.Nil(t, st.Portfolio)
	assert.NotNil(t, c.Orders())
}

func TestJournalWithoutStore(t *testing.T) {
	c := newController(t, newFileStore(t), nil, stubPorts{})
	rows, err := c.Journal(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRestartSameControllerReloadsLedger(t *testing.T) {
	exec := new(MockExecutor)
	exec.On("Submit", mock.Anything, mock.Anything).
		Return(execution.Fill{Price: 106, ExternalOrderID: "STK-7"}, nil).Once()
	c := newController(t, newFileStore(t), nil, stubPorts{src: entrySource(), exec: exec})

	require.NoError(t, c.Start(context.Background(), testConfig()))
	require.Eventually(t, func() bool { return len(c.Orders()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		st := c.Status()
		return st.Portfolio != nil && st.Portfolio.Quantity == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	src := new(MockSource)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(quoteAt(104), nil)
	c.ports = stubPorts{src: src, exec: new(MockExecutor)}
	require.NoError(t, c.Start(context.Background(), testConfig()))

	require.Eventually(t, func() bool { return c.Status().CurrentLTP == 104 }, 2*time.Second, 5*time.Millisecond)
	st := c.Status()
	require.NotNil(t, st.Portfolio)
	assert.Equal(t, 1, st.Portfolio.Quantity)
	assert.Equal(t, 106.0, st.Portfolio.AveragePrice)
	assert.Equal(t, -2.0, st.Portfolio.UnrealizedPnL)
	assert.Equal(t, 1, st.BuyCount)
	require.Len(t, c.Orders(), 1)
	assert.Equal(t, "STK-7", c.Orders()[0].ExternalID)
	exec.AssertExpectations(t)
}

func TestAbandonedTickStaysInItsSession(t *testing.T) {
	stuck := &blockingSource{release: make(chan struct{}), price: 5000}
	opts := testOptions()
	opts.StopTimeout = 20 * time.Millisecond
	c := NewController(newFileStore(t), nil, stubPorts{src: stuck, exec: new(MockExecutor)}, opts)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	require.NoError(t, c.Start(context.Background(), testConfig()))
	require.Eventually(t, func() bool { return stuck.calls.Load() > 0 }, time.Second, time.Millisecond)
	c.mu.Lock()
	oldDone := c.done
	c.mu.Unlock()
	require.NoError(t, c.Stop(context.Background()))

	fresh := new(MockSource)
	fresh.On("Fetch", mock.Anything, 2000, types.ExchangeNSE).Return(quoteAt(100), nil)
	c.ports = stubPorts{src: fresh, exec: new(MockExecutor)}
	next := testConfig()
	next.ScripCode = 2000
	require.NoError(t, c.Start(context.Background(), next))
	require.Eventually(t, func() bool {
		st := c.Status()
		return st.LTPStats != nil && st.LTPStats.Count >= 2
	}, time.Second, time.Millisecond)

	close(stuck.release)
	select {
	case <-oldDone:
	case <-time.After(time.Second):
		t.Fatal("abandoned loop did not exit")
	}
	require.Eventually(t, func() bool { return c.Status().LTPStats.Count >= 5 }, time.Second, time.Millisecond)

	st := c.Status()
	assert.Equal(t, 2000, st.ScripCode)
	assert.Equal(t, 100.0, st.CurrentLTP)
	assert.Equal(t, 100.0, st.LTPStats.High)
	assert.Equal(t, 100.0, st.LTPStats.Average)
	c.mu.Lock()
	hist := c.history
	c.mu.Unlock()
	for _, p := range hist.Values() {
		assert.Equal(t, 100.0, p)
	}
	assert.Empty(t, c.Orders())
}

func TestZeroFillPriceIsNotBooked(t *testing.T) {
	var journaled atomic.Bool
	exec := new(MockExecutor)
	exec.On("Submit", mock.Anything, mock.Anything).Return(execution.Fill{Price: 0, ExternalOrderID: "STK-0"}, nil)
	journal := new(MockJournal)
	journal.On("Record", mock.Anything, mock.MatchedBy(func(a store.OrderAttempt) bool {
		return a.Outcome == store.AttemptFailed
	})).Return(nil).Run(func(mock.Arguments) { journaled.Store(true) })

	c := newController(t, newFileStore(t), journal, stubPorts{src: entrySource(), exec: exec})
	require.NoError(t, c.Start(context.Background(), testConfig()))

	require.Eventually(t, journaled.Load, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Empty(t, c.Orders())
	journal.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(a store.OrderAttempt) bool {
		return a.Outcome == store.AttemptFailed && a.Error == "non-positive fill price 0"
	}))
	journal.AssertNotCalled(t, "Record", mock.Anything, mock.MatchedBy(func(a store.OrderAttempt) bool {
		return a.Outcome == store.AttemptFilled
	}))
}
