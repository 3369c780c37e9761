package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polymarket-liquidity-go/clob"
	"polymarket-liquidity-go/config"
	"polymarket-liquidity-go/infrastructure/logger"
	"polymarket-liquidity-go/monitor"
	"polymarket-liquidity-go/order"
	"polymarket-liquidity-go/pnl"
	"polymarket-liquidity-go/pricer"
	"polymarket-liquidity-go/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	market := flag.String("market", "", "condition id，覆盖配置")
	asset := flag.String("asset", "", "token id，覆盖配置")
	risk := flag.Float64("risk", 0, "总风险敞口，覆盖配置")
	spread := flag.Float64("spread", 0, "单边报价偏移，覆盖配置")
	durationMin := flag.Int("durationMin", 0, "运行时长（分钟），覆盖配置")
	dryRun := flag.Bool("dryRun", false, "仅日志输出，不真正下单")
	restRate := flag.Float64("restRate", 5, "REST 限流：每秒令牌数")
	restBurst := flag.Int("restBurst", 10, "REST 限流：最大突发令牌数")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置；留空用配置值")
	flag.Parse()

	// 凭证通常放 .env，缺文件不算错误
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *market != "" {
		cfg.Strategy.Market = *market
	}
	if *asset != "" {
		cfg.Strategy.AssetID = *asset
	}
	if *risk > 0 {
		cfg.Strategy.RiskAmount = *risk
	}
	if *spread > 0 {
		cfg.Strategy.MaxSpread = *spread
	}
	if *durationMin > 0 {
		cfg.Strategy.DurationMinutes = *durationMin
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("配置校验失败: %v", err)
	}

	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Close()

	mon := monitor.New("liquidity")
	if cfg.MetricsAddr != "" {
		go mon.Serve(cfg.MetricsAddr)
	}

	restClient := &clob.RESTClient{
		BaseURL:    cfg.Gateway.BaseURL,
		Address:    cfg.Gateway.Address,
		APIKey:     cfg.Gateway.APIKey,
		Secret:     cfg.Gateway.APISecret,
		Passphrase: cfg.Gateway.Passphrase,
		HTTPClient: clob.NewDefaultHTTPClient(),
		Limiter:    clob.NewTokenBucketLimiter(*restRate, *restBurst),
		Observer:   mon,
	}

	var ex order.Exchange = restClient
	if *dryRun {
		ex = &dryRunExchange{inner: restClient, log: zlog}
		zlog.Info("dry-run mode, orders will not reach the exchange")
	}

	mgr := order.NewManager(ex)
	quoter := pricer.New(restClient)
	tracker := pnl.NewTracker(restClient, pnl.FixedRewards{Amount: decimal.NewFromFloat(cfg.Strategy.RewardsTotal)})
	tracker.SetMarket(cfg.Strategy.Market)

	loop, err := strategy.NewLoop(quoter, mgr, zlog, mon)
	if err != nil {
		log.Fatalf("初始化策略失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 配置热加载：报价参数下个周期生效
	watcher := config.Watcher{Path: *cfgPath, Cooldown: 5 * time.Second}
	go func() {
		err := watcher.Start(ctx, func(next config.AppConfig) {
			loop.UpdateQuoting(next.Strategy.MaxSpread, next.Strategy.RefreshInterval())
			zlog.Info("quoting parameters reloaded",
				zap.Float64("max_spread", next.Strategy.MaxSpread),
				zap.Duration("refresh", next.Strategy.RefreshInterval()))
		})
		if err != nil && ctx.Err() == nil {
			zlog.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	if cfg.Gateway.WSURL != "" {
		go watchBook(ctx, cfg, mon, zlog)
	}
	go snapshotLoop(ctx, tracker, mon, zlog, cfg.Strategy.RefreshInterval())

	err = loop.Run(ctx, strategy.Params{
		Instrument: clob.Instrument{
			Market:  cfg.Strategy.Market,
			AssetID: cfg.Strategy.AssetID,
		},
		RiskAmount:       cfg.Strategy.RiskAmount,
		MaxSpread:        cfg.Strategy.MaxSpread,
		Duration:         cfg.Strategy.RunDuration(),
		RefreshInterval:  cfg.Strategy.RefreshInterval(),
		RecoveryInterval: cfg.Strategy.RecoveryInterval(),
		FeeRateBps:       cfg.Strategy.FeeRateBps,
	})
	if err != nil {
		zlog.LogError(err, map[string]interface{}{"component": "strategy"})
		return
	}

	// 结算快照走独立超时，不依赖已取消的运行 ctx
	finalCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if snap, err := tracker.Snapshot(finalCtx); err != nil {
		zlog.Warn("final pnl snapshot failed", zap.Error(err))
	} else {
		realized, _ := snap.Realized.Float64()
		rewards, _ := snap.Rewards.Float64()
		total, _ := snap.Total.Float64()
		mon.SetPnL(realized, total)
		zlog.LogPnL(realized, rewards, total)
	}
}

// snapshotLoop 周期性记录 PnL 快照，失败只告警不中断。
func snapshotLoop(ctx context.Context, tracker *pnl.Tracker, mon *monitor.Monitor, zlog *logger.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := tracker.Snapshot(ctx)
			if err != nil {
				zlog.Warn("pnl snapshot failed", zap.Error(err))
				continue
			}
			realized, _ := snap.Realized.Float64()
			rewards, _ := snap.Rewards.Float64()
			total, _ := snap.Total.Float64()
			mon.SetPnL(realized, total)
			zlog.LogPnL(realized, rewards, total)
		}
	}
}

// watchBook 订阅市场频道，把 top-of-book 写进日志与指标。
// 断线后短暂退避重连，直至 ctx 取消。
func watchBook(ctx context.Context, cfg config.AppConfig, mon *monitor.Monitor, zlog *logger.Logger) {
	stream := clob.NewMarketStream(cfg.Strategy.AssetID)
	stream.Endpoint = cfg.Gateway.WSURL
	for ctx.Err() == nil {
		err := stream.Run(ctx, func(top clob.BookTop) {
			zlog.Debug("book top",
				zap.String("asset", top.AssetID),
				zap.Float64("best_bid", top.BestBid),
				zap.Float64("best_ask", top.BestAsk))
		})
		if err != nil && ctx.Err() == nil {
			zlog.Warn("market stream disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
		case <-time.After(3 * time.Second):
		}
	}
}

// dryRunExchange 把下单/撤单折叠成日志，查询仍然走真实接口。
type dryRunExchange struct {
	inner *clob.RESTClient
	log   *logger.Logger
	seq   atomic.Int64
}

func (d *dryRunExchange) SubmitOrder(_ context.Context, spec clob.OrderSpec) (string, error) {
	id := fmt.Sprintf("dry-%d", d.seq.Add(1))
	d.log.LogOrder("order_place_dry_run", id, map[string]interface{}{
		"token_id": spec.TokenID,
		"side":     string(spec.Side),
		"price":    spec.Price,
		"size":     spec.Size,
	})
	return id, nil
}

func (d *dryRunExchange) CancelOrder(_ context.Context, orderID string) (clob.CancelResponse, error) {
	d.log.LogOrder("order_cancel_dry_run", orderID, nil)
	return clob.CancelResponse{Canceled: []string{orderID}}, nil
}

func (d *dryRunExchange) OpenOrders(context.Context, string, string) ([]clob.OpenOrder, error) {
	// 干跑订单从不落到交易所，挂单集合恒为空
	return nil, nil
}

func (d *dryRunExchange) MinOrderSize(ctx context.Context, market string) (float64, error) {
	return d.inner.MinOrderSize(ctx, market)
}
