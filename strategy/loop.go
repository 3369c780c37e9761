package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"polymarket-liquidity-go/clob"
	"polymarket-liquidity-go/infrastructure/logger"
	"polymarket-liquidity-go/monitor"
	"polymarket-liquidity-go/order"
	"polymarket-liquidity-go/pricer"
)

// State 策略循环状态。
type State int

const (
	StateIdle State = iota
	StateRunning
	StateWindingDown
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateWindingDown:
		return "WINDING_DOWN"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// windDownTimeout 退出时撤净报价的时间上限。
const windDownTimeout = 15 * time.Second

// Params 一次做市运行的参数；除报价参数可热更外，运行期间不变。
type Params struct {
	Instrument       clob.Instrument
	RiskAmount       float64       // 两侧均分：每侧下单量 = RiskAmount/2
	MaxSpread        float64       // mid 两侧的报价偏移
	Duration         time.Duration // 运行时长硬上限
	RefreshInterval  time.Duration // 报价刷新周期，默认 30s
	RecoveryInterval time.Duration // 周期出错后的退避时间，默认 5s
	FeeRateBps       int
}

func (p Params) withDefaults() Params {
	if p.RefreshInterval <= 0 {
		p.RefreshInterval = 30 * time.Second
	}
	if p.RecoveryInterval <= 0 {
		p.RecoveryInterval = 5 * time.Second
	}
	return p
}

func (p Params) validate() error {
	if p.Instrument.Market == "" || p.Instrument.AssetID == "" {
		return errors.New("instrument is required")
	}
	if p.RiskAmount <= 0 {
		return errors.New("riskAmount must be > 0")
	}
	if p.MaxSpread <= 0 {
		return errors.New("maxSpread must be > 0")
	}
	if p.Duration <= 0 {
		return errors.New("duration must be > 0")
	}
	return nil
}

// MidSource 提供公允中间价。
type MidSource interface {
	MidPrice(ctx context.Context, inst clob.Instrument) pricer.Mid
}

// QuoteManager 订单生命周期管理的窄接口；与 order.Manager 对接。
type QuoteManager interface {
	Place(ctx context.Context, inst clob.Instrument, side clob.Side, size, price float64, feeRateBps int) order.PlaceResult
	Cancel(ctx context.Context, orderID string) order.CancelResult
	Reconcile(ctx context.Context, inst clob.Instrument) error
	Live(inst clob.Instrument) []order.Order
	LiveBySide(inst clob.Instrument, side clob.Side) []order.Order
}

// quotePair 一次运行独享的双边报价引用（每侧至多一张）。
type quotePair struct {
	buyID  string
	sellID string
}

func (q *quotePair) ref(side clob.Side) *string {
	if side == clob.SideBuy {
		return &q.buyID
	}
	return &q.sellID
}

// Loop 驱动单个 instrument 的报价循环：
// 取 mid → 撤旧报价 → 双边补挂 → 休眠，直至时长耗尽后撤净退出。
// 周期内任何失败都按瞬态处理：短退避后继续，运行只因时长耗尽或 ctx 取消而结束。
type Loop struct {
	pricer MidSource
	orders QuoteManager
	log    *logger.Logger
	mon    *monitor.Monitor
	clock  Clock

	mu        sync.RWMutex
	state     State
	maxSpread float64
	refresh   time.Duration
}

func NewLoop(mid MidSource, orders QuoteManager, log *logger.Logger, mon *monitor.Monitor) (*Loop, error) {
	if mid == nil || orders == nil {
		return nil, errors.New("loop not initialized")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Loop{
		pricer: mid,
		orders: orders,
		log:    log,
		mon:    mon,
		clock:  NowUTC,
		state:  StateIdle,
	}, nil
}

// State 返回当前状态。
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// UpdateQuoting 热更新报价参数（配置热加载入口），下个周期生效。
func (l *Loop) UpdateQuoting(maxSpread float64, refresh time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxSpread > 0 {
		l.maxSpread = maxSpread
	}
	if refresh > 0 {
		l.refresh = refresh
	}
}

// Run 执行一次完整运行，阻塞直至时长耗尽或 ctx 取消；两种退出都会撤净报价。
func (l *Loop) Run(ctx context.Context, p Params) error {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.state != StateIdle && l.state != StateDone {
		st := l.state
		l.mu.Unlock()
		return fmt.Errorf("loop already started (state: %s)", st)
	}
	l.state = StateRunning
	l.maxSpread = p.MaxSpread
	l.refresh = p.RefreshInterval
	l.mu.Unlock()

	size := p.RiskAmount / 2
	deadline := l.clock.Now().Add(p.Duration)
	var quotes quotePair

	l.log.Info("strategy starting",
		zap.String("market", p.Instrument.Market),
		zap.String("asset", p.Instrument.AssetID),
		zap.Float64("risk_amount", p.RiskAmount),
		zap.Float64("max_spread", p.MaxSpread),
		zap.Duration("duration", p.Duration))

	for l.clock.Now().Before(deadline) && ctx.Err() == nil {
		interval := l.currentRefresh()
		if err := l.cycle(ctx, p, size, &quotes); err != nil {
			l.mon.CycleError()
			l.log.Warn("quote cycle failed, backing off",
				zap.String("asset", p.Instrument.AssetID),
				zap.Error(err))
			interval = p.RecoveryInterval
		} else {
			l.mon.CycleDone()
		}
		l.sleep(ctx, interval, deadline)
	}

	// 运行 ctx 可能已被取消（信号退出），撤净必须在独立超时上下文里完成
	l.setState(StateWindingDown)
	windCtx, cancel := context.WithTimeout(context.Background(), windDownTimeout)
	l.windDown(windCtx, p, &quotes)
	cancel()
	l.setState(StateDone)

	l.log.Info("strategy completed", zap.String("asset", p.Instrument.AssetID))
	return nil
}

// cycle 一个报价周期。返回 error 表示瞬态失败，调用方退避后重试；
// 单侧下单失败不算周期失败，该侧留空到下个周期。
func (l *Loop) cycle(ctx context.Context, p Params, size float64, quotes *quotePair) error {
	mid := l.pricer.MidPrice(ctx, p.Instrument)
	l.mon.SetMid(mid.Price)
	if mid.Source != pricer.SourceBook {
		l.mon.MidFallback(mid.Source.String())
	}
	if mid.Source == pricer.SourceError {
		// 数值契约保留 0.5 回退，但失败要可见。
		l.log.Warn("mid price fell back",
			zap.String("asset", p.Instrument.AssetID),
			zap.Error(mid.Err))
	}

	buyPrice, sellPrice := QuotePrices(mid.Price, l.currentSpread())

	if err := l.refreshSide(ctx, p, clob.SideBuy, buyPrice, size, quotes); err != nil {
		return err
	}
	if err := l.refreshSide(ctx, p, clob.SideSell, sellPrice, size, quotes); err != nil {
		return err
	}

	l.log.Debug("quotes refreshed",
		zap.String("asset", p.Instrument.AssetID),
		zap.Float64("mid", mid.Price),
		zap.String("mid_source", mid.Source.String()),
		zap.Float64("buy", buyPrice),
		zap.Float64("sell", sellPrice))
	return nil
}

// refreshSide 撤掉一侧旧报价并补挂新价。旧单撤销未被确认时，先以
// 交易所挂单集合对账；若旧单仍在挂则本周期跳过补挂，保证单侧至多一张。
func (l *Loop) refreshSide(ctx context.Context, p Params, side clob.Side, price, size float64, quotes *quotePair) error {
	active := quotes.ref(side)
	if *active != "" {
		res := l.orders.Cancel(ctx, *active)
		if res.Confirmed {
			l.mon.OrderCanceled(string(side))
		} else {
			l.mon.CancelUnconfirmed()
			if err := l.orders.Reconcile(ctx, p.Instrument); err != nil {
				return err
			}
			if live := l.orders.LiveBySide(p.Instrument, side); len(live) > 0 {
				l.log.Warn("stale quote still resting, skip replacement",
					zap.String("asset", p.Instrument.AssetID),
					zap.String("side", string(side)),
					zap.String("order_id", *active))
				return nil
			}
		}
		*active = ""
	}

	res := l.orders.Place(ctx, p.Instrument, side, size, price, p.FeeRateBps)
	if !res.OK {
		l.mon.OrderFailed(string(side))
		l.log.LogOrder("place_failed", "", map[string]interface{}{
			"asset": p.Instrument.AssetID,
			"side":  string(side),
			"price": price,
			"error": res.ErrorMsg,
		})
		return nil
	}
	*active = res.OrderID
	l.mon.OrderPlaced(string(side))
	l.log.LogOrder("placed", res.OrderID, map[string]interface{}{
		"asset": p.Instrument.AssetID,
		"side":  string(side),
		"price": res.Price,
		"size":  res.Size,
	})
	return nil
}

// windDown 撤净本 instrument 的报价，不留任何挂单。ctx 独立于运行
// ctx，信号退出后撤单仍要能落到交易所。
func (l *Loop) windDown(ctx context.Context, p Params, quotes *quotePair) {
	for _, id := range []string{quotes.buyID, quotes.sellID} {
		if id == "" {
			continue
		}
		if res := l.orders.Cancel(ctx, id); res.Confirmed {
			l.mon.OrderCanceled("")
		} else {
			l.mon.CancelUnconfirmed()
		}
	}
	// 登记表兜底：撤净对账后仍 LIVE 的挂单。
	if err := l.orders.Reconcile(ctx, p.Instrument); err != nil {
		l.log.Warn("wind-down reconcile failed", zap.Error(err))
	}
	for _, o := range l.orders.Live(p.Instrument) {
		if res := l.orders.Cancel(ctx, o.ID); !res.Confirmed {
			l.log.Warn("order may still be resting after wind-down",
				zap.String("order_id", o.ID),
				zap.String("side", string(o.Side)))
		}
	}
	quotes.buyID, quotes.sellID = "", ""
}

// sleep 等待下个周期；到 deadline 或 ctx 取消会提前醒来。
func (l *Loop) sleep(ctx context.Context, d time.Duration, deadline time.Time) {
	if rem := deadline.Sub(l.clock.Now()); rem < d {
		d = rem
	}
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loop) currentSpread() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxSpread
}

func (l *Loop) currentRefresh() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.refresh
}
