package app

import (
	"fmt"
	"time"

	"ltpbot/internal/config"
	"ltpbot/internal/execution"
	"ltpbot/internal/logger"
	"ltpbot/internal/market"
	"ltpbot/internal/session"
	"ltpbot/internal/store"
	"ltpbot/internal/store/filestore"
	"ltpbot/internal/store/gormstore"
	"ltpbot/internal/store/journal"
	livehttp "ltpbot/internal/transport/http/live"
)

// provideLedgerStore 根据 store.driver 选择账本存储。
func provideLedgerStore(cfg *config.Config) (store.LedgerStore, func(), error) {
	var (
		st  store.LedgerStore
		err error
	)
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		st, err = gormstore.NewGormStore(cfg.Store.SQLitePath)
	case config.StoreDriverFile, "":
		st, err = filestore.New(cfg.Store.Dir)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("init ledger store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warnf("ledger store close failed: %v", err)
		}
	}
	return st, cleanup, nil
}

// provideJournal 打开订单审计库；journal_path 为空时返回 nil。
func provideJournal(cfg *config.Config) (store.Journal, func(), error) {
	if cfg.Store.JournalPath == "" {
		return nil, func() {}, nil
	}
	j, err := journal.Open(cfg.Store.JournalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init order journal: %w", err)
	}
	cleanup := func() {
		if err := j.Close(); err != nil {
			logger.Warnf("order journal close failed: %v", err)
		}
	}
	return j, cleanup, nil
}

func provideEndpoints(cfg *config.Config) session.PortFactory {
	return session.Endpoints{
		Feed: market.FeedConfig{
			URL:              cfg.Feed.URL,
			APIKey:           cfg.Feed.APIKey,
			Timeout:          time.Duration(cfg.Feed.TimeoutSeconds) * time.Second,
			MaxRetries:       cfg.Feed.MaxRetries,
			RetryBase:        time.Duration(cfg.Feed.RetryBaseMs) * time.Millisecond,
			BreakerThreshold: cfg.Feed.BreakerThreshold,
			BreakerCooldown:  time.Duration(cfg.Feed.BreakerCooldownSeconds) * time.Second,
		},
		Broker: execution.BrokerConfig{
			URL:              cfg.Broker.URL,
			ClientID:         cfg.Broker.ClientID,
			TokenPath:        cfg.Broker.TokenPath,
			Timeout:          time.Duration(cfg.Broker.TimeoutSeconds) * time.Second,
			BreakerThreshold: cfg.Broker.BreakerThreshold,
			BreakerCooldown:  time.Duration(cfg.Broker.BreakerCooldownSeconds) * time.Second,
		},
	}
}

func provideSessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Interval:    cfg.Loop.Interval(),
		StopTimeout: cfg.Loop.StopTimeout(),
		TickTimeout: cfg.Loop.TickTimeout(),
		HistorySize: cfg.Loop.HistorySize,
		MaxOrders:   cfg.Loop.OrderLogSize,
	}
}

func provideHTTPServer(cfg *config.Config, ctrl *session.Controller) (*livehttp.Server, error) {
	return livehttp.NewServer(livehttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Session: ctrl,
	})
}
