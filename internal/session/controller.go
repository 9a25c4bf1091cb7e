// Package session drives one trading session at a time: it polls the market
// source on a fixed interval, asks the strategy for a decision and books
// fills into the position ledger.
package session

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"ltpbot/internal/config"
	"ltpbot/internal/execution"
	"ltpbot/internal/history"
	"ltpbot/internal/ledger"
	"ltpbot/internal/logger"
	"ltpbot/internal/market"
	"ltpbot/internal/metrics"
	"ltpbot/internal/scheduler"
	"ltpbot/internal/store"
	"ltpbot/internal/strategy"
	"ltpbot/internal/types"
)

var (
	ErrAlreadyRunning = errors.New("bot is already running")
	ErrNotRunning     = errors.New("bot is not running")
)

type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

const (
	DefaultInterval    = time.Second
	DefaultStopTimeout = 5 * time.Second
	DefaultTickTimeout = 15 * time.Second
)

type Options struct {
	Interval    time.Duration
	StopTimeout time.Duration
	TickTimeout time.Duration
	HistorySize int
	MaxOrders   int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.TickTimeout <= 0 {
		o.TickTimeout = DefaultTickTimeout
	}
	if o.HistorySize <= 0 {
		o.HistorySize = history.DefaultSize
	}
	if o.MaxOrders <= 0 {
		o.MaxOrders = ledger.DefaultMaxOrders
	}
	return o
}

// Controller is the only writer of session state. Status, Orders and Logs may
// be called from any goroutine while the loop runs.
type Controller struct {
	opts    Options
	store   store.LedgerStore
	journal store.Journal
	ports   PortFactory
	newID   func() (uuid.UUID, error)
	now     func() time.Time

	mu          sync.Mutex
	state       State
	cfg         *types.SessionConfig
	ledger      *ledger.Ledger
	history     *history.Ring
	source      market.Source
	executor    execution.Executor
	cancel      context.CancelFunc
	done        chan struct{}
	startedAt   time.Time
	lastPrice   float64
	lastPriceAt time.Time
}

// NewController wires a controller. journal may be nil.
func NewController(st store.LedgerStore, journal store.Journal, ports PortFactory, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		opts:    opts,
		store:   st,
		journal: journal,
		ports:   ports,
		newID:   uuid.NewV7,
		now:     time.Now,
	}
}

// Start validates cfg, loads the instrument's ledger and launches the loop.
// The loop outlives ctx; only Stop ends it.
func (c *Controller) Start(ctx context.Context, cfg types.SessionConfig) error {
	c.mu.Lock()
	if c.state != StateStopped {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.state = StateStarting
	c.mu.Unlock()

	cfg, led, src, exec, err := c.prepare(ctx, cfg)
	if err != nil {
		c.mu.Lock()
		c.state = StateStopped
		c.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.mu.Lock()
	c.cfg = &cfg
	c.ledger = led
	c.history = history.NewRing(c.opts.HistorySize)
	c.source = src
	c.executor = exec
	c.cancel = cancel
	c.done = done
	c.startedAt = c.now()
	c.lastPrice = 0
	c.lastPriceAt = time.Time{}
	c.state = StateRunning
	c.mu.Unlock()

	metrics.SetRunning(true)
	metrics.SetPosition(led.Snapshot(0))
	logger.Infof("Trading session started: scrip=%d exchange=%s lot=%d initial=%d mode=%s",
		cfg.ScripCode, cfg.Exchange, cfg.LotSize, cfg.InitialQuantity, cfg.Mode)

	go func() {
		defer close(done)
		scheduler.NewLoop(fmt.Sprintf("session-%d", cfg.ScripCode), c.opts.Interval).Run(runCtx, c.tick)
	}()
	return nil
}

func (c *Controller) prepare(ctx context.Context, cfg types.SessionConfig) (types.SessionConfig, *ledger.Ledger, market.Source, execution.Executor, error) {
	cfg, err := config.ValidateSession(cfg)
	if err != nil {
		return cfg, nil, nil, nil, err
	}
	if c.store == nil || c.ports == nil {
		return cfg, nil, nil, nil, fmt.Errorf("session controller not initialized")
	}
	logger.ResetRecent()
	logger.Infof("Received start command with config: %+v", cfg)

	led, err := ledger.Open(ctx, c.store, cfg.LedgerKey(), ledger.Options{MaxOrders: c.opts.MaxOrders})
	if err != nil {
		return cfg, nil, nil, nil, fmt.Errorf("open ledger %s: %w", cfg.LedgerKey(), err)
	}
	src, exec, err := c.ports.Open(cfg)
	if err != nil {
		return cfg, nil, nil, nil, fmt.Errorf("open endpoints: %w", err)
	}
	return cfg, led, src, exec, nil
}

// Stop cancels the loop and waits for the running tick up to the stop
// timeout. A loop that does not finish in time is abandoned.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.state = StateStopping
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	logger.Infof("Received stop command.")
	cancel()

	timer := time.NewTimer(c.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		logger.Infof("Trading loop stopped successfully.")
	case <-timer.C:
		logger.Warnf("Trading loop did not stop gracefully within %s.", c.opts.StopTimeout)
	case <-ctx.Done():
		logger.Warnf("Stop interrupted before the trading loop finished: %v", ctx.Err())
	}

	c.mu.Lock()
	c.cfg = nil
	c.ledger = nil
	c.history = nil
	c.source = nil
	c.executor = nil
	c.cancel = nil
	c.done = nil
	c.lastPrice = 0
	c.lastPriceAt = time.Time{}
	c.state = StateStopped
	c.mu.Unlock()

	metrics.SetRunning(false)
	return nil
}

// Close stops a running session. It is safe to call when nothing runs.
func (c *Controller) Close(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// tickDeps is the session a tick belongs to. A tick abandoned by Stop keeps
// its deps and must not write into a later session.
type tickDeps struct {
	cfg      types.SessionConfig
	ledger   *ledger.Ledger
	history  *history.Ring
	source   market.Source
	executor execution.Executor
}

func (c *Controller) deps() (tickDeps, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil || c.ledger == nil || c.history == nil || c.source == nil || c.executor == nil {
		return tickDeps{}, false
	}
	return tickDeps{cfg: *c.cfg, ledger: c.ledger, history: c.history, source: c.source, executor: c.executor}, true
}

// tick runs one evaluation under its own deadline. Stop does not cancel it.
func (c *Controller) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Trading loop panic: %v", r)
			debug.PrintStack()
			metrics.ObserveTick("panic")
		}
	}()

	d, ok := c.deps()
	if !ok {
		logger.Warnf("Trading loop: session state incomplete, skipping tick")
		metrics.ObserveTick("skipped")
		return
	}
	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.TickTimeout)
	defer cancel()
	metrics.ObserveTick(c.evaluate(tickCtx, d))
}

func (c *Controller) evaluate(ctx context.Context, d tickDeps) string {
	q, err := d.source.Fetch(ctx, d.cfg.ScripCode, d.cfg.Exchange)
	if err != nil {
		logger.Errorf("Error fetching LTP: %v", err)
		return "fetch_error"
	}
	if q.Price <= 0 {
		logger.Errorf("Error fetching LTP: non-positive price %v", q.Price)
		return "fetch_error"
	}
	d.history.Append(q.Price)
	if !c.observePrice(d.ledger, q) {
		logger.Warnf("Trading loop: session ended during fetch, dropping LTP=%.2f", q.Price)
		return "stale"
	}

	stats := d.history.Stats()
	pos := d.ledger.Snapshot(q.Price)
	metrics.SetLastPrice(q.Price)
	metrics.SetPosition(pos)
	logger.Infof("Current: LTP=%.2f, Qty=%d, AvgPrice=%.2f, Buys=%d, Sells=%d",
		q.Price, pos.Quantity, pos.AveragePrice, pos.BuyCount, pos.SellCount)

	act := strategy.Decide(strategy.MarketQuote{
		Last:       q.Price,
		High:       stats.High,
		Low:        stats.Low,
		Average:    stats.Average,
		HasHistory: stats.OK,
	}, pos, d.cfg)
	metrics.ObserveDecision(act.Kind.String())
	if act.IsNone() {
		logger.Infof("%s", act.Reason)
		return "ok"
	}
	logger.Infof("Strategy: %s", act.Reason)
	return c.execute(ctx, d, act)
}

func (c *Controller) execute(ctx context.Context, d tickDeps, act strategy.Action) string {
	if !c.owns(d.ledger) {
		logger.Warnf("Trading loop: session ended, not placing %s", act.Reason)
		return "stale"
	}
	side := act.Side()
	attempt := store.OrderAttempt{
		CreatedAt: c.now(),
		ScripCode: d.cfg.ScripCode,
		Exchange:  string(d.cfg.Exchange),
		Mode:      string(d.cfg.Mode),
		Side:      side,
		Quantity:  act.Quantity,
		Reason:    act.Reason,
	}

	fill, err := d.executor.Submit(ctx, execution.Request{
		ScripCode: d.cfg.ScripCode,
		Exchange:  d.cfg.Exchange,
		Side:      side,
		Quantity:  act.Quantity,
	})
	// bookkeeping must land even when the tick deadline has passed
	persistCtx := context.WithoutCancel(ctx)
	if err == nil && fill.Price <= 0 {
		err = fmt.Errorf("non-positive fill price %v", fill.Price)
	}
	if err != nil {
		logger.Errorf("Failed to place %s order for %d units: %v", side, act.Quantity, err)
		attempt.Outcome = store.AttemptFailed
		attempt.Error = err.Error()
		c.journalAttempt(persistCtx, attempt)
		return "order_error"
	}

	order := types.Order{
		ID:         c.orderID(),
		ExternalID: fill.ExternalOrderID,
		Timestamp:  c.now(),
		Side:       side,
		Quantity:   act.Quantity,
		Price:      fill.Price,
		Status:     types.OrderStatusCompleted,
	}
	attempt.Outcome = store.AttemptFilled
	attempt.OrderID = order.ID
	attempt.ExternalID = order.ExternalID
	attempt.FillPrice = order.Price
	c.journalAttempt(persistCtx, attempt)
	metrics.ObserveOrder(d.cfg.Mode, side)
	logger.Infof("%s order placed for %d units at %.2f. Order ID: %s", side, order.Quantity, order.Price, order.ExternalID)

	// a later session may have reopened the same ledger key
	if !c.owns(d.ledger) {
		logger.Errorf("Ledger: session ended before booking order %s (%s %d @ %.2f); fill kept in journal only",
			order.ID, side, order.Quantity, order.Price)
		return "stale"
	}
	outcome := "ok"
	if err := d.ledger.AppendOrder(persistCtx, order); err != nil {
		logger.Errorf("Ledger: persist after append failed: %v", err)
		outcome = "ledger_error"
	}
	snap, err := d.ledger.RecordFill(persistCtx, side, order.Quantity, order.Price)
	if err != nil {
		logger.Errorf("Ledger: record fill failed: %v", err)
		outcome = "ledger_error"
		snap = d.ledger.Snapshot(order.Price)
	}
	metrics.SetPosition(snap)
	return outcome
}

func (c *Controller) orderID() string {
	id, err := c.newID()
	if err != nil {
		logger.Warnf("uuid v7 failed, falling back to timestamp id: %v", err)
		return fmt.Sprintf("ORD_%d", c.now().UnixMilli())
	}
	return id.String()
}

func (c *Controller) journalAttempt(ctx context.Context, a store.OrderAttempt) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, a); err != nil {
		logger.Warnf("order journal write failed: %v", err)
	}
}

// observePrice publishes q unless the session it belongs to has ended.
func (c *Controller) observePrice(led *ledger.Ledger, q market.Quote) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ledger != led {
		return false
	}
	c.lastPrice = q.Price
	c.lastPriceAt = q.At
	return true
}

// owns reports whether led still belongs to the running session.
func (c *Controller) owns(led *ledger.Ledger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return led != nil && c.ledger == led
}
