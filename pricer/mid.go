package pricer

import (
	"context"

	"polymarket-liquidity-go/clob"
)

// 无挂单/取数失败时的中性先验：二元市场真值未知，取 0.5。
const FallbackMid = 0.5

// Source 标记 mid 价的来源，供日志与指标区分“空盘口”和“取数失败”。
// 数值契约不变：两种情况都回退到 0.5。
type Source int

const (
	// SourceBook 盘口至少一侧有挂单。
	SourceBook Source = iota
	// SourceEmptyBook 两侧都没有挂单。
	SourceEmptyBook
	// SourceError 拉取或解析挂单失败。
	SourceError
)

func (s Source) String() string {
	switch s {
	case SourceBook:
		return "book"
	case SourceEmptyBook:
		return "empty_book"
	case SourceError:
		return "error"
	default:
		return "unknown"
	}
}

// Mid 一次定价结果。Err 仅在 Source == SourceError 时设置，调用方可以
// 自行决定是否对失败做额外处理；Price 始终可用。
type Mid struct {
	Price   float64
	BestBid float64
	BestAsk float64
	Source  Source
	Err     error
}

// BookSource 提供 instrument 上全体参与者的挂单。
type BookSource interface {
	OpenOrders(ctx context.Context, market, assetID string) ([]clob.OpenOrder, error)
}

// Pricer 从实时挂单推导公允中间价；纯读取，无副作用。
type Pricer struct {
	Book BookSource
}

func New(book BookSource) *Pricer {
	return &Pricer{Book: book}
}

// MidPrice 返回最优买价与最优卖价的算术平均。
// 无买单时买侧取 0，无卖单时卖侧取 1；两侧皆空或取数失败回退 0.5。
func (p *Pricer) MidPrice(ctx context.Context, inst clob.Instrument) Mid {
	orders, err := p.Book.OpenOrders(ctx, inst.Market, inst.AssetID)
	if err != nil {
		return Mid{Price: FallbackMid, Source: SourceError, Err: err}
	}

	var (
		bestBid, bestAsk float64
		hasBid, hasAsk   bool
	)
	for _, o := range orders {
		price := o.Price.InexactFloat64()
		switch clob.ParseSide(o.Side) {
		case clob.SideBuy:
			if !hasBid || price > bestBid {
				bestBid = price
				hasBid = true
			}
		case clob.SideSell:
			if !hasAsk || price < bestAsk {
				bestAsk = price
				hasAsk = true
			}
		}
	}

	if !hasBid && !hasAsk {
		return Mid{Price: FallbackMid, Source: SourceEmptyBook}
	}
	if !hasBid {
		bestBid = 0
	}
	if !hasAsk {
		bestAsk = 1
	}
	return Mid{
		Price:   (bestBid + bestAsk) / 2,
		BestBid: bestBid,
		BestAsk: bestAsk,
		Source:  SourceBook,
	}
}
