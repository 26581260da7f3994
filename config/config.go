package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Env     string        `yaml:"env"`
	Seed    string        `yaml:"seed"`
	Economy EconomyConfig `yaml:"economy"`
	Trials  TrialsConfig  `yaml:"trials"`
	Clock   ClockConfig   `yaml:"clock"`
	Pool    PoolConfig    `yaml:"pool"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
}

type EconomyConfig struct {
	StartMoney     float64 `yaml:"start_money"`
	MaxGoods       int     `yaml:"max_goods"`
	Decimals       int     `yaml:"decimals"`
	FogOfWarehouse bool    `yaml:"fog_of_warehouse"`
}

type TrialsConfig struct {
	Blocks       int     `yaml:"blocks"`
	PerBlock     int     `yaml:"per_block"`
	QtyMax       int     `yaml:"qty_max"`
	QtyBase      float64 `yaml:"qty_base"`
	QtySpread    float64 `yaml:"qty_spread"`
	PriceMultMin float64 `yaml:"price_mult_min"`
	PriceMultMax float64 `yaml:"price_mult_max"`
}

type ClockConfig struct {
	PriceSteps        int           `yaml:"price_steps"`
	PriceStepDuration time.Duration `yaml:"price_step_duration"`
	StartDelay        time.Duration `yaml:"start_delay"`
	DelayBefore       time.Duration `yaml:"delay_before"`
	DelayAfter        time.Duration `yaml:"delay_after"`
}

// AuctionDuration is the full length of the price-descent clock.
func (c ClockConfig) AuctionDuration() time.Duration {
	return time.Duration(c.PriceSteps) * c.PriceStepDuration
}

type PoolConfig struct {
	Names        []string `yaml:"names"`
	OpponentName string   `yaml:"opponent_name"`
}

type ServerConfig struct {
	Host      string `yaml:"host"` // empty: first external IPv4 address
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
	IndexFile string `yaml:"index_file"`
	DataDir   string `yaml:"data_dir"`
	Keyboard  bool   `yaml:"keyboard"`
}

type StorageConfig struct {
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDB       string `yaml:"mongo_db"`
}

// Load starts from Defaults, overlays the keys present in an optional YAML
// file, then the environment (.env included). An empty path skips the file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidate loads config and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Env, "APP_ENV")
	setString(&c.Seed, "AUCTION_SEED")
	setString(&c.Storage.DatabaseURL, "DATABASE_URL")
	setString(&c.Storage.RedisAddr, "REDIS_URL")
	setString(&c.Storage.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Storage.MongoURI, "MONGO_URI")
	setString(&c.Storage.MongoDB, "MONGO_DB")
	setString(&c.Server.Host, "HOST")

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_DB: %w", err)
		}
		c.Storage.RedisDB = db
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
