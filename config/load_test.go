package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
env: dev
gateway:
  baseURL: https://clob.test
  wsURL: wss://ws.test
  address: "0xabc"
  apiKey: key
  apiSecret: c2VjcmV0
  passphrase: pass
strategy:
  market: "0xcond"
  assetId: tok
  riskAmount: 20
  maxSpread: 0.03
  durationMinutes: 30
  refreshSeconds: 30
  recoverySeconds: 5
logging:
  level: info
  outputs: [stdout]
  format: json
metricsAddr: ":9100"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "dev" || cfg.Gateway.APIKey != "key" {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	if cfg.Strategy.Market != "0xcond" || cfg.Strategy.AssetID != "tok" {
		t.Fatalf("unexpected strategy values: %+v", cfg.Strategy)
	}
	if cfg.Strategy.RunDuration().Minutes() != 30 {
		t.Fatalf("unexpected duration: %v", cfg.Strategy.RunDuration())
	}
	if cfg.Strategy.RefreshInterval().Seconds() != 30 || cfg.Strategy.RecoveryInterval().Seconds() != 5 {
		t.Fatalf("unexpected intervals: %+v", cfg.Strategy)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	t.Setenv("POLY_ADDRESS", "0xenv")
	t.Setenv("POLY_API_KEY", "env-key")
	t.Setenv("POLY_API_SECRET", "env-secret")
	t.Setenv("POLY_PASSPHRASE", "env-pass")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.Address != "0xenv" || cfg.Gateway.APIKey != "env-key" {
		t.Fatalf("env overrides not applied: %+v", cfg.Gateway)
	}
	if cfg.Gateway.APISecret != "env-secret" || cfg.Gateway.Passphrase != "env-pass" {
		t.Fatalf("env overrides not applied: %+v", cfg.Gateway)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(AppConfig{}); err == nil {
		t.Fatalf("expected error for empty config")
	}

	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := cfg
	bad.Strategy.MaxSpread = 0.6
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for maxSpread >= 0.5")
	}

	bad = cfg
	bad.Strategy.RiskAmount = 0
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for riskAmount 0")
	}

	bad = cfg
	bad.Gateway.Passphrase = ""
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for missing passphrase")
	}
}
