package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"polymarket-liquidity-go/clob"
	"polymarket-liquidity-go/config"
	"polymarket-liquidity-go/pnl"
)

// 按账户成交历史出一份已实现 PnL 报表。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	marketFilter := flag.String("market", "", "仅统计指定市场 (condition id，默认配置值)")
	allMarkets := flag.Bool("all", false, "统计全部市场")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	client := &clob.RESTClient{
		BaseURL:    cfg.Gateway.BaseURL,
		Address:    cfg.Gateway.Address,
		APIKey:     cfg.Gateway.APIKey,
		Secret:     cfg.Gateway.APISecret,
		Passphrase: cfg.Gateway.Passphrase,
		HTTPClient: clob.NewDefaultHTTPClient(),
		Limiter:    clob.NewTokenBucketLimiter(5, 10),
	}

	tracker := pnl.NewTracker(client, pnl.FixedRewards{Amount: decimal.NewFromFloat(cfg.Strategy.RewardsTotal)})
	switch {
	case *allMarkets:
		// 不限定市场
	case *marketFilter != "":
		tracker.SetMarket(*marketFilter)
	default:
		tracker.SetMarket(cfg.Strategy.Market)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := tracker.Snapshot(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "拉取成交失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("account   %s\n", client.AccountAddress())
	if !*allMarkets {
		if *marketFilter != "" {
			fmt.Printf("market    %s\n", *marketFilter)
		} else {
			fmt.Printf("market    %s\n", cfg.Strategy.Market)
		}
	}
	fmt.Printf("as of     %s\n", snap.Timestamp.Format(time.RFC3339))
	fmt.Printf("realized  %s\n", snap.Realized.StringFixed(4))
	fmt.Printf("rewards   %s\n", snap.Rewards.StringFixed(4))
	fmt.Printf("total     %s\n", snap.Total.StringFixed(4))
}
