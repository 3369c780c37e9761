package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"polymarket-liquidity-go/clob"
)

// 交易所对报价的硬性限制。
const (
	MinPrice = 0.01
	MaxPrice = 0.99
)

// Exchange 下游交易所的窄接口；与 clob.RESTClient 对接。
type Exchange interface {
	SubmitOrder(ctx context.Context, spec clob.OrderSpec) (string, error)
	CancelOrder(ctx context.Context, orderID string) (clob.CancelResponse, error)
	OpenOrders(ctx context.Context, market, assetID string) ([]clob.OpenOrder, error)
	MinOrderSize(ctx context.Context, market string) (float64, error)
}

// PlaceResult 下单结果；外部调用错误不向上抛，统一折叠进该结构。
type PlaceResult struct {
	OK       bool
	OrderID  string
	Price    float64 // 钳制后实际提交的价格
	Size     float64 // 钳制后实际提交的数量
	ErrorMsg string
}

// CancelResult 撤单结果。Confirmed 表示 id 出现在交易所确认撤销集合中；
// OK 为 false 表示调用本身失败。
type CancelResult struct {
	OK        bool
	Confirmed bool
	ErrorMsg  string
}

// Manager 维护每个 instrument 的订单登记表并通过 Exchange 下发。
// 登记表按 instrument 隔离，多个策略循环可以共享一个 Manager。
type Manager struct {
	ex Exchange

	mu   sync.RWMutex
	book map[clob.Instrument]map[string]*Order
}

func NewManager(ex Exchange) *Manager {
	return &Manager{
		ex:   ex,
		book: make(map[clob.Instrument]map[string]*Order),
	}
}

// ClampPrice 把报价钳进交易所允许的 [0.01, 0.99] 区间。
func ClampPrice(p float64) float64 {
	if p < MinPrice {
		return MinPrice
	}
	if p > MaxPrice {
		return MaxPrice
	}
	return p
}

// Place 钳制价格/数量后提交限价单。成功时登记 LIVE 订单并返回其 id；
// 失败时不登记，错误信息折叠进返回值。
func (m *Manager) Place(ctx context.Context, inst clob.Instrument, side clob.Side, size, price float64, feeRateBps int) PlaceResult {
	price = ClampPrice(price)

	minSize, err := m.ex.MinOrderSize(ctx, inst.Market)
	if err != nil {
		return PlaceResult{ErrorMsg: fmt.Sprintf("min order size: %v", err)}
	}
	if size < minSize {
		size = minSize
	}

	o := &Order{
		Instrument: inst,
		Side:       side,
		Size:       size,
		Price:      price,
		PlacedAt:   time.Now().UTC(),
		Status:     StatusPending,
	}
	id, err := m.ex.SubmitOrder(ctx, clob.OrderSpec{
		TokenID:    inst.AssetID,
		Side:       side,
		Price:      price,
		Size:       size,
		FeeRateBps: feeRateBps,
	})
	if err != nil {
		return PlaceResult{ErrorMsg: err.Error(), Price: price, Size: size}
	}
	o.ID = id
	o.Status = StatusLive

	m.mu.Lock()
	reg := m.book[inst]
	if reg == nil {
		reg = make(map[string]*Order)
		m.book[inst] = reg
	}
	reg[id] = o
	m.mu.Unlock()

	return PlaceResult{OK: true, OrderID: id, Price: price, Size: size}
}

// Cancel 提交撤单。只有交易所确认的撤销才把本地状态置为 CANCELED；
// 未确认（包括传输错误）一律置为 UNKNOWN，等待 Reconcile 以交易所为准。
func (m *Manager) Cancel(ctx context.Context, orderID string) CancelResult {
	resp, err := m.ex.CancelOrder(ctx, orderID)
	if err != nil {
		m.setStatus(orderID, StatusUnknown, err.Error())
		return CancelResult{ErrorMsg: err.Error()}
	}
	if resp.Confirmed(orderID) {
		m.setStatus(orderID, StatusCanceled, "")
		return CancelResult{OK: true, Confirmed: true}
	}
	if reason, ok := resp.NotCanceled[orderID]; ok {
		m.setStatus(orderID, StatusUnknown, reason)
		return CancelResult{OK: true, ErrorMsg: reason}
	}
	m.setStatus(orderID, StatusUnknown, "cancel unconfirmed")
	return CancelResult{OK: true}
}

// Reconcile 用交易所的挂单集合校正本地 LIVE/UNKNOWN 状态：
// 仍在挂的回到 LIVE，不在挂的视为已撤。
func (m *Manager) Reconcile(ctx context.Context, inst clob.Instrument) error {
	open, err := m.ex.OpenOrders(ctx, inst.Market, inst.AssetID)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", inst.AssetID, err)
	}
	resting := make(map[string]struct{}, len(open))
	for _, o := range open {
		resting[o.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.book[inst] {
		if o.Status != StatusLive && o.Status != StatusUnknown {
			continue
		}
		if _, ok := resting[id]; ok {
			o.Status = StatusLive
		} else {
			o.Status = StatusCanceled
		}
	}
	return nil
}

// Live 返回 instrument 下所有 LIVE 订单的副本。
func (m *Manager) Live(inst clob.Instrument) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, o := range m.book[inst] {
		if o.Status == StatusLive {
			out = append(out, *o)
		}
	}
	return out
}

// LiveBySide 返回 instrument 指定方向的 LIVE 订单副本。
func (m *Manager) LiveBySide(inst clob.Instrument, side clob.Side) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, o := range m.book[inst] {
		if o.Status == StatusLive && o.Side == side {
			out = append(out, *o)
		}
	}
	return out
}

// Get 返回订单当前快照，如不存在则第二个返回值为 false。
func (m *Manager) Get(orderID string) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, reg := range m.book {
		if o, ok := reg[orderID]; ok {
			return *o, true
		}
	}
	return Order{}, false
}

func (m *Manager) setStatus(orderID string, st Status, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.book {
		if o, ok := reg[orderID]; ok {
			o.Status = st
			if errMsg != "" {
				o.LastError = errMsg
			}
			return
		}
	}
}
