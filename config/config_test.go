package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	check.Equal(t, DefaultStartMoney, cfg.Economy.StartMoney)
	check.Equal(t, DefaultMaxGoods, cfg.Economy.MaxGoods)
	check.Equal(t, DefaultBlocks, cfg.Trials.Blocks)
	check.Equal(t, DefaultTrials, cfg.Trials.PerBlock)
	check.Equal(t, DefaultPriceSteps, cfg.Clock.PriceSteps)
	check.Equal(t, 4*time.Second, cfg.Clock.AuctionDuration())
	check.Equal(t, len(DefaultNames), len(cfg.Pool.Names))
	check.Equal(t, DefaultOpponentName, cfg.Pool.OpponentName)
	check.Equal(t, DefaultPort, cfg.Server.Port)
	check.True(t, cfg.Server.Keyboard)
	check.NoError(t, cfg.Validate())
}

func TestLoad_YAMLWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_AUCTION_SEED", "lab-session-7")

	yaml := `
seed: ${TEST_AUCTION_SEED}
economy:
  start_money: 500
  max_goods: 900
  fog_of_warehouse: true
trials:
  blocks: 2
  per_block: 3
clock:
  price_steps: 40
  price_step_duration: 25ms
  delay_before: 1s
pool:
  names: [Ann, Ben]
server:
  keyboard: false
`
	cfg, err := Load(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	check.Equal(t, "lab-session-7", cfg.Seed)
	check.Equal(t, 500.0, cfg.Economy.StartMoney)
	check.Equal(t, 900, cfg.Economy.MaxGoods)
	check.True(t, cfg.Economy.FogOfWarehouse)
	check.Equal(t, 2, cfg.Trials.Blocks)
	check.Equal(t, 3, cfg.Trials.PerBlock)
	check.Equal(t, time.Second, cfg.Clock.DelayBefore)
	check.Equal(t, time.Second, cfg.Clock.AuctionDuration())
	check.Equal(t, []string{"Ann", "Ben"}, cfg.Pool.Names)
	check.False(t, cfg.Server.Keyboard)
	// unset values still receive defaults
	check.Equal(t, DefaultDelayAfter, cfg.Clock.DelayAfter)
}

func TestLoad_ExplicitZeroIsKept(t *testing.T) {
	yaml := `
economy:
  decimals: 0
clock:
  start_delay: 0s
  delay_before: 0s
  delay_after: 0s
`
	cfg, err := Load(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	check.Equal(t, 0, cfg.Economy.Decimals)
	check.Equal(t, time.Duration(0), cfg.Clock.StartDelay)
	check.Equal(t, time.Duration(0), cfg.Clock.DelayBefore)
	check.Equal(t, time.Duration(0), cfg.Clock.DelayAfter)
	check.Equal(t, DefaultPriceStepDuration, cfg.Clock.PriceStepDuration)
	check.NoError(t, cfg.Validate())

	cfg, err = Load(writeTempFile(t, "economy:\n  max_goods: 0\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	check.Equal(t, 0, cfg.Economy.MaxGoods)
	check.Error(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "4044")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DATABASE_URL", "postgres://localhost/auction")

	cfg, err := Load(writeTempFile(t, "server:\n  port: 5055\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	check.Equal(t, 4044, cfg.Server.Port)
	check.Equal(t, 3, cfg.Storage.RedisDB)
	check.Equal(t, "postgres://localhost/auction", cfg.Storage.DatabaseURL)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("REDIS_DB", "three")

	_, err := Load("")
	check.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	check.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero max goods", func(c *Config) { c.Economy.MaxGoods = 0 }},
		{"negative money", func(c *Config) { c.Economy.StartMoney = -1 }},
		{"no blocks", func(c *Config) { c.Trials.Blocks = 0 }},
		{"inverted price multipliers", func(c *Config) { c.Trials.PriceMultMin, c.Trials.PriceMultMax = 2, 1 }},
		{"no price steps", func(c *Config) { c.Clock.PriceSteps = 0 }},
		{"negative delay", func(c *Config) { c.Clock.DelayAfter = -time.Second }},
		{"duplicate name", func(c *Config) { c.Pool.Names = []string{"Fred", "Fred"} }},
		{"empty name", func(c *Config) { c.Pool.Names = []string{"Fred", ""} }},
		{"opponent collides", func(c *Config) { c.Pool.OpponentName = "Fred" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			check.Error(t, cfg.Validate())
		})
	}
}
