package app

import (
	"fmt"
	"strings"

	"ltpbot/internal/config"
	"ltpbot/internal/logger"
)

// StartupSummary 汇总启动时的关键配置，便于排查部署问题。
type StartupSummary struct {
	Env         string
	HTTPAddr    string
	StoreDriver string
	StoreTarget string
	Journal     string
	Interval    string
	HistorySize int
	OrderLog    int
	FeedURL     string
	BrokerURL   string
	AutoStart   string
}

func newStartupSummary(cfg *config.Config) *StartupSummary {
	s := &StartupSummary{
		Env:         cfg.App.Env,
		HTTPAddr:    cfg.App.HTTPAddr,
		StoreDriver: cfg.Store.Driver,
		StoreTarget: cfg.Store.Dir,
		Journal:     cfg.Store.JournalPath,
		Interval:    cfg.Loop.Interval().String(),
		HistorySize: cfg.Loop.HistorySize,
		OrderLog:    cfg.Loop.OrderLogSize,
		FeedURL:     cfg.Feed.URL,
		BrokerURL:   cfg.Broker.URL,
		AutoStart:   "-",
	}
	if cfg.Store.Driver == config.StoreDriverSQLite {
		s.StoreTarget = cfg.Store.SQLitePath
	}
	if s.Journal == "" {
		s.Journal = "(disabled)"
	}
	if sc := cfg.Session; sc.AutoStart {
		s.AutoStart = fmt.Sprintf("scrip=%d exchange=%s lot=%d initial=%d mode=%s",
			sc.ScripCode, sc.Exchange, sc.LotSize, sc.InitialQuantity, sc.Mode)
	}
	return s
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("启动配置摘要 (STARTUP SUMMARY)\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "  环境: %s\n", s.Env)
	fmt.Fprintf(&b, "  HTTP: %s\n", s.HTTPAddr)
	fmt.Fprintf(&b, "  存储: %s (%s)\n", s.StoreDriver, s.StoreTarget)
	fmt.Fprintf(&b, "  审计日志: %s\n", s.Journal)
	fmt.Fprintf(&b, "  轮询间隔: %s  价格窗口: %d  订单上限: %d\n", s.Interval, s.HistorySize, s.OrderLog)
	fmt.Fprintf(&b, "  行情: %s\n", s.FeedURL)
	fmt.Fprintf(&b, "  下单: %s\n", s.BrokerURL)
	fmt.Fprintf(&b, "  自动启动: %s\n", s.AutoStart)
	b.WriteString(strings.Repeat("=", 60))
	return b.String()
}

func (s *StartupSummary) Print() {
	if s == nil {
		return
	}
	logger.InfoBlock(s.String())
}
