package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"ltpbot/internal/logger"
	"ltpbot/internal/market"
	"ltpbot/internal/pkg/circuit"
)

const (
	DefaultBrokerURL     = "https://api.stocko.in"
	DefaultTokenPath     = "access_token.json"
	ordersPath           = "/api/v1/orders"
	defaultBrokerTimeout = 10 * time.Second
)

type BrokerConfig struct {
	URL              string
	ClientID         string
	TokenPath        string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Broker places MARKET/DAY/MIS orders on a Stocko-style REST endpoint. The
// endpoint does not report a fill price, so the LTP quoted immediately
// before submission is booked.
type Broker struct {
	endpoint   string
	clientID   string
	tokenPath  string
	quoter     market.Quoter
	httpClient *http.Client
	breaker    *circuit.Breaker
	now        func() time.Time
}

func NewBroker(cfg BrokerConfig, quoter market.Quoter) (*Broker, error) {
	if quoter == nil {
		return nil, fmt.Errorf("broker 需要行情 quoter")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		base = DefaultBrokerURL
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("broker.client_id 不能为空")
	}
	tokenPath := strings.TrimSpace(cfg.TokenPath)
	if tokenPath == "" {
		tokenPath = DefaultTokenPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBrokerTimeout
	}
	return &Broker{
		endpoint:   base + ordersPath,
		clientID:   clientID,
		tokenPath:  tokenPath,
		quoter:     quoter,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.New("broker", cfg.BreakerThreshold, cfg.BreakerCooldown),
		now:        time.Now,
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (b *Broker) SetHTTPClient(client *http.Client) {
	b.httpClient = client
}

type orderPayload struct {
	Exchange                   string  `json:"exchange"`
	OrderType                  string  `json:"order_type"`
	InstrumentToken            int     `json:"instrument_token"`
	Quantity                   int     `json:"quantity"`
	DisclosedQuantity          int     `json:"disclosed_quantity"`
	Price                      float64 `json:"price"`
	OrderSide                  string  `json:"order_side"`
	TriggerPrice               float64 `json:"trigger_price"`
	Validity                   string  `json:"validity"`
	Product                    string  `json:"product"`
	ClientID                   string  `json:"client_id"`
	UserOrderID                int64   `json:"user_order_id"`
	MarketProtectionPercentage float64 `json:"market_protection_percentage"`
	Device                     string  `json:"device"`
}

func (b *Broker) Submit(ctx context.Context, req Request) (Fill, error) {
	if err := req.validate(); err != nil {
		return Fill{}, err
	}
	q, err := b.quoter.Quote(ctx, req.ScripCode, req.Exchange)
	if err != nil {
		return Fill{}, fmt.Errorf("could not get LTP for %s order: %w", req.Side, err)
	}
	if q.Price <= 0 {
		return Fill{}, fmt.Errorf("could not get LTP for %s order: %w", req.Side, market.ErrNoPrice)
	}
	token, err := readAccessToken(b.tokenPath)
	if err != nil {
		return Fill{}, err
	}

	now := b.now()
	payload := orderPayload{
		Exchange:        req.Exchange.OrderSegment(),
		OrderType:       "MARKET",
		InstrumentToken: req.ScripCode,
		Quantity:        req.Quantity,
		OrderSide:       string(req.Side),
		Validity:        "DAY",
		Product:         "MIS",
		ClientID:        b.clientID,
		UserOrderID:     now.UnixMilli(),
		Device:          "WEB",
	}

	var orderID string
	err = b.breaker.Do(ctx, func(ctx context.Context) error {
		id, err := b.post(ctx, token, payload)
		orderID = id
		return err
	})
	if err != nil {
		return Fill{}, err
	}
	if orderID == "" {
		orderID = fmt.Sprintf("ORD_%d", now.UnixMilli())
	}
	logger.Infof("broker: %s %d units of %d accepted, order_id=%s ltp=%.2f", req.Side, req.Quantity, req.ScripCode, orderID, q.Price)
	return Fill{Price: q.Price, ExternalOrderID: orderID}, nil
}

func (b *Broker) post(ctx context.Context, token string, payload orderPayload) (string, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化下单请求失败: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("构造请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("调用 broker 失败: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("broker 返回错误(%s): %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode != http.StatusOK || gjson.GetBytes(data, "status").String() != "success" {
		return "", fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(string(data)))
	}
	return gjson.GetBytes(data, "order_id").String(), nil
}

// readAccessToken reads {"access_token": "..."}. It runs on every submission.
func readAccessToken(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s not found or unreadable: %w", path, err)
	}
	var file struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return "", fmt.Errorf("%s is invalid: %w", path, err)
	}
	token := strings.TrimSpace(file.AccessToken)
	if token == "" {
		return "", fmt.Errorf("access token not found in %s", path)
	}
	return token, nil
}
