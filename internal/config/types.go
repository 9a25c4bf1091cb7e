package config

import (
	"strings"
	"time"

	"ltpbot/internal/types"
)

// Config 是 ltpbot 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app" yaml:"app"`
	Loop    LoopConfig    `toml:"loop" yaml:"loop"`
	Store   StoreConfig   `toml:"store" yaml:"store"`
	Feed    FeedConfig    `toml:"feed" yaml:"feed"`
	Broker  BrokerConfig  `toml:"broker" yaml:"broker"`
	Session SessionConfig `toml:"session" yaml:"session"`
}

type AppConfig struct {
	Env      string `toml:"env" yaml:"env"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
	HTTPAddr string `toml:"http_addr" yaml:"http_addr"`
	LogPath  string `toml:"log_path" yaml:"log_path"`
}

// LoopConfig 控制交易循环节奏与内存上限。
type LoopConfig struct {
	IntervalMs    int `toml:"interval_ms" yaml:"interval_ms"`
	StopTimeoutMs int `toml:"stop_timeout_ms" yaml:"stop_timeout_ms"`
	TickTimeoutMs int `toml:"tick_timeout_ms" yaml:"tick_timeout_ms"`
	HistorySize   int `toml:"history_size" yaml:"history_size"`
	OrderLogSize  int `toml:"order_log_size" yaml:"order_log_size"`
}

func (l LoopConfig) Interval() time.Duration { return time.Duration(l.IntervalMs) * time.Millisecond }
func (l LoopConfig) StopTimeout() time.Duration { return time.Duration(l.StopTimeoutMs) * time.Millisecond }
func (l LoopConfig) TickTimeout() time.Duration { return time.Duration(l.TickTimeoutMs) * time.Millisecond }

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

type StoreConfig struct {
	Driver      string `toml:"driver" yaml:"driver"`
	Dir         string `toml:"dir" yaml:"dir"`
	SQLitePath  string `toml:"sqlite_path" yaml:"sqlite_path"`
	JournalPath string `toml:"journal_path" yaml:"journal_path"`
}

type FeedConfig struct {
	URL                    string `toml:"url" yaml:"url"`
	APIKey                 string `toml:"api_key" yaml:"api_key"`
	TimeoutSeconds         int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries             int    `toml:"max_retries" yaml:"max_retries"`
	RetryBaseMs            int    `toml:"retry_base_ms" yaml:"retry_base_ms"`
	BreakerThreshold       int    `toml:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds" yaml:"breaker_cooldown_seconds"`
}

type BrokerConfig struct {
	URL                    string `toml:"url" yaml:"url"`
	ClientID               string `toml:"client_id" yaml:"client_id"`
	TokenPath              string `toml:"token_path" yaml:"token_path"`
	TimeoutSeconds         int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	BreakerThreshold       int    `toml:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds" yaml:"breaker_cooldown_seconds"`
}

// SessionConfig 描述启动时自动运行的交易会话（可选）。
type SessionConfig struct {
	AutoStart           bool `toml:"auto_start" yaml:"auto_start"`
	types.SessionConfig `toml:",squash" yaml:",inline"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
