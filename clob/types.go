package clob

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Side 订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 规范化 API 返回的方向字段（"buy"/"BUY" 均可）。
func ParseSide(s string) Side {
	return Side(strings.ToUpper(strings.TrimSpace(s)))
}

// Instrument 标识一次做市运行面向的市场与 outcome token，运行期间不变。
type Instrument struct {
	Market  string // condition id
	AssetID string // outcome token id
}

// OrderSpec 下单参数；价格与数量由调用方负责对齐交易所限制。
type OrderSpec struct {
	TokenID    string
	Side       Side
	Price      float64
	Size       float64
	FeeRateBps int
}

// OpenOrder 交易所返回的挂单视图（全体参与者）。
// CLOB 的价格/数量以字符串传输，用 decimal 解析避免精度损失。
type OpenOrder struct {
	ID      string          `json:"id"`
	Market  string          `json:"market"`
	AssetID string          `json:"asset_id"`
	Side    string          `json:"side"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"original_size"`
}

// CancelResponse DELETE /order 的结果：canceled 列出确认撤销的 id，
// not_canceled 给出未撤销 id 到原因的映射。
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// Confirmed 判断指定订单是否出现在确认撤销集合中。
func (r CancelResponse) Confirmed(orderID string) bool {
	for _, id := range r.Canceled {
		if id == orderID {
			return true
		}
	}
	return false
}

// TradeStatusConfirmed 只有该状态的成交计入 PnL。
const TradeStatusConfirmed = "CONFIRMED"

// Trade 自己账户的一笔成交，来自交易所、只读。
type Trade struct {
	ID     string          `json:"id"`
	Market string          `json:"market"`
	Side   string          `json:"side"`
	Status string          `json:"status"`
	Size   decimal.Decimal `json:"size"`
	Price  decimal.Decimal `json:"price"`
}

// TradeFilter 查询成交历史的过滤条件。
type TradeFilter struct {
	MakerAddress string
	Market       string
}

// MarketToken 市场内一个可交易 outcome。
type MarketToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

// RewardParams 流动性奖励参数。
type RewardParams struct {
	MinSize   decimal.Decimal `json:"min_size"`
	MaxSpread decimal.Decimal `json:"max_spread"`
}

// SimplifiedMarket sampling-simplified-markets 返回的市场描述。
type SimplifiedMarket struct {
	ConditionID string        `json:"condition_id"`
	Active      bool          `json:"active"`
	Closed      bool          `json:"closed"`
	Tokens      []MarketToken `json:"tokens"`
	Rewards     RewardParams  `json:"rewards"`
}

// MarketsPage 分页的市场列表；NextCursor 为 "LTE=" 表示最后一页。
type MarketsPage struct {
	Data       []SimplifiedMarket `json:"data"`
	NextCursor string             `json:"next_cursor"`
}

// EndCursor 分页结束哨兵。
const EndCursor = "LTE="
