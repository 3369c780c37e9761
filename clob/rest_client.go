package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// timeNowUnix 可注入，测试时固定时间戳。
var timeNowUnix = func() int64 { return time.Now().Unix() }

// RequestObserver 记录每次 REST 调用结果（如 Prometheus 指标）。
type RequestObserver interface {
	ObserveRequest(endpoint string, err error)
}

// RESTClient Polymarket CLOB 的 L2 签名客户端。默认不发起真实网络调用，
// HTTPClient 可注入 httptest。多 goroutine 并发安全。
type RESTClient struct {
	BaseURL    string
	Address    string // 账户地址（POLY_ADDRESS）
	APIKey     string
	Secret     string // url-safe base64 编码
	Passphrase string
	HTTPClient *http.Client
	Limiter    RateLimiter
	Observer   RequestObserver

	mu       sync.Mutex
	minSizes map[string]float64
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

type submitBody struct {
	Order     submitOrder `json:"order"`
	OrderType string      `json:"orderType"`
}

type submitOrder struct {
	TokenID    string `json:"token_id"`
	Side       Side   `json:"side"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	FeeRateBps int    `json:"fee_rate_bps"`
}

type submitResp struct {
	Success  bool   `json:"success"`
	OrderID  string `json:"orderID"`
	ErrorMsg string `json:"errorMsg"`
}

// SubmitOrder 提交 GTC 限价单，成功返回交易所分配的订单 id。
func (c *RESTClient) SubmitOrder(ctx context.Context, spec OrderSpec) (string, error) {
	body := submitBody{
		Order: submitOrder{
			TokenID:    spec.TokenID,
			Side:       spec.Side,
			Price:      strconv.FormatFloat(spec.Price, 'f', 2, 64),
			Size:       strconv.FormatFloat(spec.Size, 'f', -1, 64),
			FeeRateBps: spec.FeeRateBps,
		},
		OrderType: "GTC",
	}
	var resp submitResp
	if err := c.doJSON(ctx, http.MethodPost, "/order", nil, body, true, &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.OrderID == "" {
		if resp.ErrorMsg == "" {
			resp.ErrorMsg = "order rejected"
		}
		return "", fmt.Errorf("submit order: %s", resp.ErrorMsg)
	}
	return resp.OrderID, nil
}

// CancelOrder 撤销指定订单；调用方需检查返回的 canceled 集合确认结果。
func (c *RESTClient) CancelOrder(ctx context.Context, orderID string) (CancelResponse, error) {
	var resp CancelResponse
	err := c.doJSON(ctx, http.MethodDelete, "/order", nil, map[string]string{"orderID": orderID}, true, &resp)
	return resp, err
}

// OpenOrders 返回指定市场/token 上全体参与者的挂单。
func (c *RESTClient) OpenOrders(ctx context.Context, market, assetID string) ([]OpenOrder, error) {
	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}
	if assetID != "" {
		q.Set("asset_id", assetID)
	}
	var orders []OpenOrder
	if err := c.doJSON(ctx, http.MethodGet, "/data/orders", q, nil, true, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Trades 按过滤条件查询自己账户的成交历史。
func (c *RESTClient) Trades(ctx context.Context, f TradeFilter) ([]Trade, error) {
	q := url.Values{}
	if f.MakerAddress != "" {
		q.Set("maker_address", f.MakerAddress)
	}
	if f.Market != "" {
		q.Set("market", f.Market)
	}
	var trades []Trade
	if err := c.doJSON(ctx, http.MethodGet, "/data/trades", q, nil, true, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// SamplingMarkets 拉取一页启用奖励的 sampling 市场。
func (c *RESTClient) SamplingMarkets(ctx context.Context, cursor string) (MarketsPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("next_cursor", cursor)
	}
	var page MarketsPage
	err := c.doJSON(ctx, http.MethodGet, "/sampling-simplified-markets", q, nil, false, &page)
	return page, err
}

type marketResp struct {
	MinimumOrderSize decimal.Decimal `json:"minimum_order_size"`
}

// MinOrderSize 返回市场的最小下单数量，按 condition id 缓存。
func (c *RESTClient) MinOrderSize(ctx context.Context, market string) (float64, error) {
	c.mu.Lock()
	if s, ok := c.minSizes[market]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	var resp marketResp
	if err := c.doJSON(ctx, http.MethodGet, "/markets/"+market, nil, nil, false, &resp); err != nil {
		return 0, err
	}
	size := resp.MinimumOrderSize.InexactFloat64()

	c.mu.Lock()
	if c.minSizes == nil {
		c.minSizes = make(map[string]float64)
	}
	c.minSizes[market] = size
	c.mu.Unlock()
	return size, nil
}

// AccountAddress 返回签名所用的账户地址。
func (c *RESTClient) AccountAddress() string { return c.Address }

func (c *RESTClient) doJSON(ctx context.Context, method, path string, query url.Values, body any, signed bool, out any) (err error) {
	if c == nil || c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if c.Observer != nil {
		defer func() { c.Observer.ObserveRequest(path, err) }()
	}
	if c.Limiter != nil {
		if err = c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	// 签名覆盖完整请求路径，带查询参数的 GET 也不例外
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+requestPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if signed {
		ts := strconv.FormatInt(timeNowUnix(), 10)
		sig, serr := SignRequest(c.Secret, ts, method, requestPath, string(payload))
		if serr != nil {
			return serr
		}
		req.Header.Set("POLY_ADDRESS", c.Address)
		req.Header.Set("POLY_SIGNATURE", sig)
		req.Header.Set("POLY_TIMESTAMP", ts)
		req.Header.Set("POLY_API_KEY", c.APIKey)
		req.Header.Set("POLY_PASSPHRASE", c.Passphrase)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
