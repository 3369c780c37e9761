package pnl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-liquidity-go/clob"
)

// TradeSource 提供自己账户的成交历史。
type TradeSource interface {
	Trades(ctx context.Context, f clob.TradeFilter) ([]clob.Trade, error)
	AccountAddress() string
}

// RewardsSource 提供流动性奖励累计额（外部结算，本核心不计算）。
type RewardsSource interface {
	RewardsTotal(ctx context.Context) (decimal.Decimal, error)
}

// FixedRewards 固定奖励额的占位实现；真实数据源接入前使用。
type FixedRewards struct {
	Amount decimal.Decimal
}

func (f FixedRewards) RewardsTotal(context.Context) (decimal.Decimal, error) {
	return f.Amount, nil
}

// Snapshot 一次 PnL 快照。
type Snapshot struct {
	Timestamp time.Time
	Realized  decimal.Decimal // 已实现盈亏：sell revenue − buy cost
	Rewards   decimal.Decimal
	Total     decimal.Decimal
}

// Tracker 把确认成交汇总为已实现 PnL 并累积带时间戳的历史。
// 历史只追加、不改写。卖出收入按二元结算约定计为 size*(1-price)。
type Tracker struct {
	trades  TradeSource
	rewards RewardsSource
	market  string // 可选：只统计该市场的成交

	mu      sync.RWMutex
	history []Snapshot
}

func NewTracker(trades TradeSource, rewards RewardsSource) *Tracker {
	if rewards == nil {
		rewards = FixedRewards{}
	}
	return &Tracker{trades: trades, rewards: rewards}
}

// SetMarket 限定统计范围为单个市场（condition id）。
func (t *Tracker) SetMarket(market string) { t.market = market }

var one = decimal.NewFromInt(1)

// Snapshot 拉取成交并追加一条快照。任一数据源失败时不追加、返回错误，
// 历史保持不变。
func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	trades, err := t.trades.Trades(ctx, clob.TradeFilter{
		MakerAddress: t.trades.AccountAddress(),
		Market:       t.market,
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch trades: %w", err)
	}

	var cost, revenue decimal.Decimal
	for _, tr := range trades {
		if tr.Status != clob.TradeStatusConfirmed {
			continue
		}
		switch clob.ParseSide(tr.Side) {
		case clob.SideBuy:
			cost = cost.Add(tr.Size.Mul(tr.Price))
		case clob.SideSell:
			revenue = revenue.Add(tr.Size.Mul(one.Sub(tr.Price)))
		}
	}
	realized := revenue.Sub(cost)

	rewards, err := t.rewards.RewardsTotal(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch rewards: %w", err)
	}

	snap := Snapshot{
		Timestamp: time.Now().UTC(),
		Realized:  realized,
		Rewards:   rewards,
		Total:     realized.Add(rewards),
	}
	t.mu.Lock()
	t.history = append(t.history, snap)
	t.mu.Unlock()
	return snap, nil
}

// History 返回快照历史的只读副本。
func (t *Tracker) History() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, len(t.history))
	copy(out, t.history)
	return out
}
