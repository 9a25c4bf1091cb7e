package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"ltpbot/internal/logger"
	"ltpbot/internal/pkg/circuit"
	"ltpbot/internal/types"
)

const (
	DefaultFeedURL     = "https://Openapi.5paisa.com/VendorsAPI/Service1.svc/V1/MarketFeed"
	defaultFeedTimeout = 5 * time.Second
	defaultRetryBase   = 200 * time.Millisecond
	lastRatePath       = "body.Data.0.LastRate"
)

// FeedConfig configures the HTTP market feed.
type FeedConfig struct {
	URL              string
	APIKey           string
	Timeout          time.Duration
	MaxRetries       int
	RetryBase        time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Feed polls a MarketFeed endpoint for one instrument per request.
type Feed struct {
	url        string
	apiKey     string
	maxRetries int
	retryBase  time.Duration
	httpClient *http.Client
	breaker    *circuit.Breaker
	onAttempt  func(outcome string)
}

func NewFeed(cfg FeedConfig) (*Feed, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultFeedURL
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("feed.api_key 不能为空")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	base := cfg.RetryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Feed{
		url:        url,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		maxRetries: retries,
		retryBase:  base,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.New("market-feed", cfg.BreakerThreshold, cfg.BreakerCooldown),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (f *Feed) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}

// OnAttempt registers a hook called with "ok" or "error" after every request.
func (f *Feed) OnAttempt(fn func(outcome string)) {
	f.onAttempt = fn
}

type feedRequest struct {
	Head feedHead `json:"head"`
	Body feedBody `json:"body"`
}

type feedHead struct {
	Key string `json:"key"`
}

type feedBody struct {
	MarketFeedData  []feedInstrument `json:"MarketFeedData"`
	LastRequestTime string           `json:"LastRequestTime"`
	RefreshRate     string           `json:"RefreshRate"`
}

type feedInstrument struct {
	Exch      string `json:"Exch"`
	ExchType  string `json:"ExchType"`
	ScripCode int    `json:"ScripCode"`
}

// Fetch retries transient failures with exponential backoff. An open breaker
// or a cancelled context ends the attempt immediately.
func (f *Feed) Fetch(ctx context.Context, scripCode int, exch types.Exchange) (Quote, error) {
	payload := feedRequest{
		Head: feedHead{Key: f.apiKey},
		Body: feedBody{
			MarketFeedData:  []feedInstrument{{Exch: exch.FeedCode(), ExchType: "D", ScripCode: scripCode}},
			LastRequestTime: "/Date(0)/",
			RefreshRate:     "H",
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return Quote{}, fmt.Errorf("序列化 market feed 请求失败: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := f.retryBase << (attempt - 1)
			logger.Debugf("market feed: retry %d/%d for scrip %d in %s: %v", attempt, f.maxRetries, scripCode, wait, lastErr)
			if err := sleepCtx(ctx, wait); err != nil {
				return Quote{}, err
			}
		}
		var price float64
		lastErr = f.breaker.Do(ctx, func(ctx context.Context) error {
			p, err := f.request(ctx, buf)
			price = p
			return err
		})
		f.report(lastErr)
		if lastErr == nil {
			return Quote{Price: price, At: time.Now()}, nil
		}
		if errors.Is(lastErr, circuit.ErrOpen) || ctx.Err() != nil {
			break
		}
	}
	return Quote{}, fmt.Errorf("fetch ltp for scrip %d: %w", scripCode, lastErr)
}

// Quote is a fresh Fetch; the live feed has no cached level.
func (f *Feed) Quote(ctx context.Context, scripCode int, exch types.Exchange) (Quote, error) {
	return f.Fetch(ctx, scripCode, exch)
}

func (f *Feed) request(ctx context.Context, body []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("调用 market feed 失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("读取 market feed 响应失败: %w", err)
	}
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("market feed 返回错误(%s): %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return parseLastRate(data)
}

func parseLastRate(data []byte) (float64, error) {
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("market feed 响应不是合法 JSON")
	}
	rate := gjson.GetBytes(data, lastRatePath)
	if !rate.Exists() || rate.Type != gjson.Number {
		return 0, ErrNoPrice
	}
	price := rate.Float()
	if price <= 0 {
		return 0, fmt.Errorf("%w: LastRate=%v", ErrNoPrice, price)
	}
	return price, nil
}

func (f *Feed) report(err error) {
	if f.onAttempt == nil {
		return
	}
	if err != nil {
		f.onAttempt("error")
		return
	}
	f.onAttempt("ok")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
