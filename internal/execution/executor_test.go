package execution

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ltpbot/internal/market"
	"ltpbot/internal/types"
)

type MockQuoter struct {
	mock.Mock
}

func (m *MockQuoter) Quote(ctx context.Context, scripCode int, exch types.Exchange) (market.Quote, error) {
	args := m.Called(ctx, scripCode, exch)
	return args.Get(0).(market.Quote), args.Error(1)
}

func writeToken(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "access_token.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func buyReq() Request {
	return Request{ScripCode: 500325, Exchange: types.ExchangeBSE, Side: types.SideBuy, Quantity: 25}
}

func TestPaperFillsAtQuote(t *testing.T) {
	q := new(MockQuoter)
	q.On("Quote", mock.Anything, 500325, types.ExchangeBSE).Return(market.Quote{Price: 101.25}, nil)
	p := NewPaper(q)
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }

	fill, err := p.Submit(context.Background(), buyReq())
	require.NoError(t, err)
	assert.Equal(t, 101.25, fill.Price)
	assert.Equal(t, "DUMMY_1700000000123", fill.ExternalOrderID)
	q.AssertExpectations(t)
}

func TestPaperRejectsInvalidRequest(t *testing.T) {
	p := NewPaper(new(MockQuoter))
	req := buyReq()
	req.Quantity = 0
	_, err := p.Submit(context.Background(), req)
	assert.Error(t, err)

	req = buyReq()
	req.Side = "HOLD"
	_, err = p.Submit(context.Background(), req)
	assert.Error(t, err)
}

func TestBrokerSubmitSuccess(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ordersPath, r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &payload))
		_, _ = w.Write([]byte(`{"status":"success","order_id":"STK-77"}`))
	}))
	defer srv.Close()

	q := new(MockQuoter)
	q.On("Quote", mock.Anything, 500325, types.ExchangeBSE).Return(market.Quote{Price: 99.5}, nil)
	b, err := NewBroker(BrokerConfig{URL: srv.URL, ClientID: "C1", TokenPath: writeToken(t, `{"access_token":"tok-1"}`)}, q)
	require.NoError(t, err)

	fill, err := b.Submit(context.Background(), buyReq())
	require.NoError(t, err)
	assert.Equal(t, 99.5, fill.Price)
	assert.Equal(t, "STK-77", fill.ExternalOrderID)

	assert.Equal(t, "BFO", payload["exchange"])
	assert.Equal(t, "MARKET", payload["order_type"])
	assert.Equal(t, "DAY", payload["validity"])
	assert.Equal(t, "MIS", payload["product"])
	assert.Equal(t, "BUY", payload["order_side"])
	assert.Equal(t, "C1", payload["client_id"])
	assert.Equal(t, float64(25), payload["quantity"])
	assert.Equal(t, float64(500325), payload["instrument_token"])
}

func TestBrokerSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"insufficient margin"}`))
	}))
	defer srv.Close()

	q := new(MockQuoter)
	q.On("Quote", mock.Anything, mock.Anything, mock.Anything).Return(market.Quote{Price: 99.5}, nil)
	b, err := NewBroker(BrokerConfig{URL: srv.URL, ClientID: "C1", TokenPath: writeToken(t, `{"access_token":"tok"}`)}, q)
	require.NoError(t, err)

	_, err = b.Submit(context.Background(), buyReq())
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "insufficient margin")
}

func TestBrokerSubmitHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	q := new(MockQuoter)
	q.On("Quote", mock.Anything, mock.Anything, mock.Anything).Return(market.Quote{Price: 99.5}, nil)
	b, err := NewBroker(BrokerConfig{URL: srv.URL, ClientID: "C1", TokenPath: writeToken(t, `{"access_token":"tok"}`)}, q)
	require.NoError(t, err)

	_, err = b.Submit(context.Background(), buyReq())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestBrokerTokenProblems(t *testing.T) {
	q := new(MockQuoter)
	q.On("Quote", mock.Anything, mock.Anything, mock.Anything).Return(market.Quote{Price: 99.5}, nil)

	for name, path := range map[string]string{
		"missing": filepath.Join(t.TempDir(), "nope.json"),
		"invalid": writeToken(t, `{`),
		"empty":   writeToken(t, `{"access_token":""}`),
	} {
		b, err := NewBroker(BrokerConfig{URL: "http://127.0.0.1:1", ClientID: "C1", TokenPath: path}, q)
		require.NoError(t, err, name)
		_, err = b.Submit(context.Background(), buyReq())
		assert.Error(t, err, name)
	}
}

func TestBrokerAbortsWithoutQuote(t *testing.T) {
	q := new(MockQuoter)
	q.On("Quote", mock.Anything, mock.Anything, mock.Anything).Return(market.Quote{}, errors.New("feed down"))
	b, err := NewBroker(BrokerConfig{ClientID: "C1", TokenPath: writeToken(t, `{"access_token":"tok"}`)}, q)
	require.NoError(t, err)

	_, err = b.Submit(context.Background(), buyReq())
	assert.ErrorContains(t, err, "could not get LTP")
}
