package config

import (
	"fmt"
	"strings"

	"ltpbot/internal/types"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Loop.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Feed.validate(); err != nil {
		return err
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if c.Session.AutoStart {
		normalized, err := ValidateSession(c.Session.SessionConfig)
		if err != nil {
			return fmt.Errorf("session: %w", err)
		}
		c.Session.SessionConfig = normalized
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug|info|warn|error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr is required")
	}
	return nil
}

func (l *LoopConfig) validate() error {
	checks := []struct {
		key string
		val int
	}{
		{"loop.interval_ms", l.IntervalMs},
		{"loop.stop_timeout_ms", l.StopTimeoutMs},
		{"loop.tick_timeout_ms", l.TickTimeoutMs},
		{"loop.history_size", l.HistorySize},
		{"loop.order_log_size", l.OrderLogSize},
	}
	for _, c := range checks {
		if c.val <= 0 {
			return fmt.Errorf("%s must be > 0", c.key)
		}
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case StoreDriverFile:
		if strings.TrimSpace(s.Dir) == "" {
			return fmt.Errorf("store.dir is required for driver=file")
		}
	case StoreDriverSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("store.sqlite_path is required for driver=sqlite")
		}
	default:
		return fmt.Errorf("store.driver must be file or sqlite, got %q", s.Driver)
	}
	return nil
}

func (f *FeedConfig) validate() error {
	if f.TimeoutSeconds <= 0 {
		return fmt.Errorf("feed.timeout_seconds must be > 0")
	}
	if f.MaxRetries < 0 || f.MaxRetries > 10 {
		return fmt.Errorf("feed.max_retries must be within [0,10]")
	}
	if f.RetryBaseMs <= 0 {
		return fmt.Errorf("feed.retry_base_ms must be > 0")
	}
	if f.BreakerThreshold < 0 || f.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("feed breaker settings must be >= 0")
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	if b.TimeoutSeconds <= 0 {
		return fmt.Errorf("broker.timeout_seconds must be > 0")
	}
	if b.BreakerThreshold < 0 || b.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("broker breaker settings must be >= 0")
	}
	return nil
}

// ValidateSession 校验并规范化一次启动请求：交易所大写化，dummy_mode 映射为 simulated。
func ValidateSession(cfg types.SessionConfig) (types.SessionConfig, error) {
	if cfg.ScripCode <= 0 {
		return cfg, fmt.Errorf("scrip_code must be a positive integer")
	}
	exch, err := types.ParseExchange(string(cfg.Exchange))
	if err != nil {
		return cfg, err
	}
	cfg.Exchange = exch
	if cfg.LotSize <= 0 {
		return cfg, fmt.Errorf("lot_size must be a positive integer")
	}
	if cfg.InitialQuantity <= 0 {
		return cfg, fmt.Errorf("initial_quantity must be a positive integer")
	}
	switch types.ExecutionMode(strings.ToLower(strings.TrimSpace(string(cfg.Mode)))) {
	case "":
		cfg.Mode = types.ModeLive
	case types.ModeLive:
		cfg.Mode = types.ModeLive
	case types.ModeSimulated, "dummy":
		cfg.Mode = types.ModeSimulated
	default:
		return cfg, fmt.Errorf("mode must be live or simulated, got %q", cfg.Mode)
	}
	if cfg.DummyMode {
		cfg.Mode = types.ModeSimulated
	}
	cfg.DummyMode = cfg.Mode == types.ModeSimulated
	return cfg, nil
}
