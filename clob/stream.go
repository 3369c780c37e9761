package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// DefaultWSEndpoint CLOB 行情推送地址。
const DefaultWSEndpoint = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// BookTop 单个 token 的盘口。
type BookTop struct {
	AssetID string
	BestBid float64 // 无买单时为 0
	BestAsk float64 // 无卖单时为 1
}

type bookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

type bookEvent struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Bids      []bookLevel `json:"bids"`
	Asks      []bookLevel `json:"asks"`
}

// ParseBookEvent 解析 market channel 的 book 快照，提取最优买卖价。
// 非 book 消息返回 ok=false。
func ParseBookEvent(raw []byte) (top BookTop, ok bool, err error) {
	var ev bookEvent
	if err = json.Unmarshal(raw, &ev); err != nil {
		return top, false, err
	}
	if ev.EventType != "book" || ev.AssetID == "" {
		return top, false, nil
	}
	top.AssetID = ev.AssetID
	top.BestBid = 0
	top.BestAsk = 1
	for i, lvl := range ev.Bids {
		p := lvl.Price.InexactFloat64()
		if i == 0 || p > top.BestBid {
			top.BestBid = p
		}
	}
	for i, lvl := range ev.Asks {
		p := lvl.Price.InexactFloat64()
		if i == 0 || p < top.BestAsk {
			top.BestAsk = p
		}
	}
	return top, true, nil
}

// BookMirror 维护每个 token 的最新盘口，供策略作为推送式 mid 来源。
type BookMirror struct {
	mu   sync.RWMutex
	tops map[string]BookTop
}

func NewBookMirror() *BookMirror {
	return &BookMirror{tops: make(map[string]BookTop)}
}

func (m *BookMirror) Apply(top BookTop) {
	m.mu.Lock()
	m.tops[top.AssetID] = top
	m.mu.Unlock()
}

// Top 返回指定 token 的盘口；尚未收到快照时 ok=false。
func (m *BookMirror) Top(assetID string) (BookTop, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	top, ok := m.tops[assetID]
	return top, ok
}

type subscribeMsg struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

// MarketStream 订阅 market channel 并把 book 快照喂给回调。
// 仅提供最小骨架：连接 + 订阅 + 读取；重连由调用方决定。
type MarketStream struct {
	Endpoint string
	AssetIDs []string
	Dialer   *websocket.Dialer
}

func NewMarketStream(assetIDs ...string) *MarketStream {
	return &MarketStream{
		Endpoint: DefaultWSEndpoint,
		AssetIDs: assetIDs,
		Dialer:   websocket.DefaultDialer,
	}
}

// Run 连接并持续读取，每收到一个 book 快照调用 onTop；连接断开时返回。
func (s *MarketStream) Run(ctx context.Context, onTop func(BookTop)) error {
	if len(s.AssetIDs) == 0 {
		return fmt.Errorf("no assets subscribed")
	}
	conn, _, err := s.Dialer.DialContext(ctx, s.Endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeMsg{AssetIDs: s.AssetIDs, Type: "market"}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		top, ok, err := ParseBookEvent(raw)
		if err != nil || !ok {
			continue // 心跳或 price_change 等消息
		}
		if onTop != nil {
			onTop(top)
		}
	}
}
