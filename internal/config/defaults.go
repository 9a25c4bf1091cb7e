package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":5000"
	defaultLoopIntervalMs  = 1000
	defaultLoopStopMs      = 5000
	defaultLoopTickMs      = 15000
	defaultLoopHistory     = 300
	defaultLoopOrderLog    = 1000
	defaultStoreDriver     = StoreDriverFile
	defaultStoreDir        = "data"
	defaultStoreSQLite     = "data/ledger.db"
	defaultStoreJournal    = "data/journal.db"
	defaultFeedURL         = "https://Openapi.5paisa.com/VendorsAPI/Service1.svc/V1/MarketFeed"
	defaultFeedTimeout     = 5
	defaultFeedRetries     = 2
	defaultFeedRetryBaseMs = 200
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30
	defaultBrokerURL       = "https://api.stocko.in"
	defaultBrokerTokenPath = "access_token.json"
	defaultBrokerTimeout   = 10
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Loop.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Feed.applyDefaults(keys)
	c.Broker.applyDefaults(keys)
	c.Session.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (l *LoopConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		positiveIntDefault("loop.interval_ms", &l.IntervalMs, defaultLoopIntervalMs),
		positiveIntDefault("loop.stop_timeout_ms", &l.StopTimeoutMs, defaultLoopStopMs),
		positiveIntDefault("loop.tick_timeout_ms", &l.TickTimeoutMs, defaultLoopTickMs),
		positiveIntDefault("loop.history_size", &l.HistorySize, defaultLoopHistory),
		positiveIntDefault("loop.order_log_size", &l.OrderLogSize, defaultLoopOrderLog),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.driver", &s.Driver, defaultStoreDriver),
		stringFieldDefault("store.dir", &s.Dir, defaultStoreDir),
		stringFieldDefault("store.sqlite_path", &s.SQLitePath, defaultStoreSQLite),
		// journal_path 显式置空表示关闭审计日志
		stringFieldDefault("store.journal_path", &s.JournalPath, defaultStoreJournal),
	)
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
}

func (f *FeedConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("feed.url", &f.URL, defaultFeedURL),
		positiveIntDefault("feed.timeout_seconds", &f.TimeoutSeconds, defaultFeedTimeout),
		fieldDefault{
			key:   "feed.max_retries",
			need:  func() bool { return f.MaxRetries <= 0 },
			apply: func() { f.MaxRetries = defaultFeedRetries },
		},
		positiveIntDefault("feed.retry_base_ms", &f.RetryBaseMs, defaultFeedRetryBaseMs),
		positiveIntDefault("feed.breaker_threshold", &f.BreakerThreshold, defaultBreakerFailures),
		positiveIntDefault("feed.breaker_cooldown_seconds", &f.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
}

func (b *BrokerConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("broker.url", &b.URL, defaultBrokerURL),
		stringFieldDefault("broker.token_path", &b.TokenPath, defaultBrokerTokenPath),
		positiveIntDefault("broker.timeout_seconds", &b.TimeoutSeconds, defaultBrokerTimeout),
		positiveIntDefault("broker.breaker_threshold", &b.BreakerThreshold, defaultBreakerFailures),
		positiveIntDefault("broker.breaker_cooldown_seconds", &b.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
}

func (s *SessionConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("session.auto_start", &s.AutoStart, false),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// positiveIntDefault 在字段缺省或非正数时写入默认值；显式写入的非正数交给 validate 处理。
func positiveIntDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
