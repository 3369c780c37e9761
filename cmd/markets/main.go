package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"polymarket-liquidity-go/clob"
	"polymarket-liquidity-go/config"
	"polymarket-liquidity-go/market"
)

// 列出启用流动性奖励的 sampling 市场，供选择 -market/-asset 参数。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	query := flag.String("q", "", "按描述过滤（大小写不敏感）")
	quotableOnly := flag.Bool("quotable", false, "只显示当前可报价的市场")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	client := &clob.RESTClient{
		BaseURL:    cfg.Gateway.BaseURL,
		HTTPClient: clob.NewDefaultHTTPClient(),
		Limiter:    clob.NewTokenBucketLimiter(5, 10),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	catalog := market.NewCatalog(client)
	if err := catalog.Refresh(ctx); err != nil {
		log.Fatalf("拉取市场目录失败: %v", err)
	}

	markets := catalog.Markets()
	if *query != "" {
		markets = catalog.Search(*query)
	}

	shown := 0
	for _, m := range markets {
		if *quotableOnly && !m.Quotable() {
			continue
		}
		shown++
		fmt.Printf("%s\n  condition=%s active=%v closed=%v\n", m.Description, m.ConditionID, m.Active, m.Closed)
		for _, tok := range m.Tokens {
			fmt.Printf("  %-4s token=%s\n", tok.Outcome, tok.TokenID)
		}
		if !m.Rewards.MinSize.IsZero() || !m.Rewards.MaxSpread.IsZero() {
			fmt.Printf("  rewards: min_size=%s max_spread=%s\n", m.Rewards.MinSize, m.Rewards.MaxSpread)
		}
	}
	fmt.Printf("%d market(s)\n", shown)
}
