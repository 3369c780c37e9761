package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"polymarket-liquidity-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string         `yaml:"env"`
	Gateway     GatewayConfig  `yaml:"gateway"`
	Strategy    StrategyConfig `yaml:"strategy"`
	Logging     logger.Config  `yaml:"logging"`
	MetricsAddr string         `yaml:"metricsAddr"`
}

// GatewayConfig CLOB 接入配置；凭证可由环境变量覆盖。
type GatewayConfig struct {
	BaseURL    string `yaml:"baseURL"`
	WSURL      string `yaml:"wsURL"`
	Address    string `yaml:"address"`
	APIKey     string `yaml:"apiKey"`
	APISecret  string `yaml:"apiSecret"`
	Passphrase string `yaml:"passphrase"`
}

type StrategyConfig struct {
	Market          string  `yaml:"market"`          // condition id
	AssetID         string  `yaml:"assetId"`         // 报价的 token id
	RiskAmount      float64 `yaml:"riskAmount"`      // 总风险敞口，双边各占一半
	MaxSpread       float64 `yaml:"maxSpread"`       // 相对 mid 的单边报价偏移
	DurationMinutes int     `yaml:"durationMinutes"` // 运行时长（分钟）
	RefreshSeconds  int     `yaml:"refreshSeconds"`  // 报价刷新周期（秒）
	RecoverySeconds int     `yaml:"recoverySeconds"` // 周期失败后的退避（秒）
	FeeRateBps      int     `yaml:"feeRateBps"`
	RewardsTotal    float64 `yaml:"rewardsTotal"` // 做市奖励估计，计入 PnL 快照
}

// RunDuration/RefreshInterval/RecoveryInterval 把整数配置转成 time.Duration。
func (s StrategyConfig) RunDuration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s StrategyConfig) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshSeconds) * time.Second
}

func (s StrategyConfig) RecoveryInterval() time.Duration {
	return time.Duration(s.RecoverySeconds) * time.Second
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides credentials from env vars
// if present. Credentials normally live in the environment, not the file.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("POLY_ADDRESS"); v != "" {
		cfg.Gateway.Address = v
	}
	if v := os.Getenv("POLY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("POLY_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	if v := os.Getenv("POLY_PASSPHRASE"); v != "" {
		cfg.Gateway.Passphrase = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Gateway.BaseURL == "" {
		return errors.New("gateway.baseURL is required")
	}
	if cfg.Gateway.Address == "" {
		return errors.New("gateway.address is required (or POLY_ADDRESS)")
	}
	if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" || cfg.Gateway.Passphrase == "" {
		return errors.New("gateway credentials are required (or POLY_API_KEY/POLY_API_SECRET/POLY_PASSPHRASE)")
	}
	if cfg.Strategy.Market == "" || cfg.Strategy.AssetID == "" {
		return errors.New("strategy.market and strategy.assetId are required")
	}
	if cfg.Strategy.RiskAmount <= 0 {
		return errors.New("strategy.riskAmount must be > 0")
	}
	if cfg.Strategy.MaxSpread <= 0 || cfg.Strategy.MaxSpread >= 0.5 {
		return errors.New("strategy.maxSpread must be in (0, 0.5)")
	}
	if cfg.Strategy.DurationMinutes <= 0 {
		return errors.New("strategy.durationMinutes must be > 0")
	}
	if cfg.Strategy.RefreshSeconds < 0 || cfg.Strategy.RecoverySeconds < 0 {
		return errors.New("strategy intervals must be >= 0")
	}
	if cfg.Strategy.FeeRateBps < 0 {
		return errors.New("strategy.feeRateBps must be >= 0")
	}
	if cfg.Strategy.RewardsTotal < 0 {
		return errors.New("strategy.rewardsTotal must be >= 0")
	}
	return nil
}
