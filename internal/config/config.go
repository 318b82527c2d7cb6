package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds bot settings loaded from flags, env, or config file.
type Config struct {
	RPCURL  string
	Network string
	PGDSN   string

	// Discovery backfill.
	FromBlock  uint64
	ToBlock    uint64
	BatchSize  uint64
	Checkpoint string

	// Simulation and search.
	TickWindowRadius int32
	MaxCycleLen      int
	MinProfitUSD     float64

	// Runtime behavior.
	Concurrency    int
	MaxRetries     int
	RetryBackoff   time.Duration
	TokenCacheSize int
	PriceTTL       time.Duration

	Journal  string
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
// Env vars use the ARBBOT prefix with dashes mapped to underscores.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARBBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "mainnet")
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("tick-window-radius", 2)
	v.SetDefault("max-cycle-len", 4)
	v.SetDefault("min-profit-usd", float64(0))
	v.SetDefault("concurrency", 8)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("token-cache-size", 4096)
	v.SetDefault("price-ttl", time.Minute)
	v.SetDefault("journal", "./data/opportunities.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc"),
		Network:          v.GetString("network"),
		PGDSN:            v.GetString("pg-dsn"),
		FromBlock:        v.GetUint64("from"),
		ToBlock:          v.GetUint64("to"),
		BatchSize:        v.GetUint64("batch-size"),
		Checkpoint:       v.GetString("checkpoint"),
		TickWindowRadius: v.GetInt32("tick-window-radius"),
		MaxCycleLen:      v.GetInt("max-cycle-len"),
		MinProfitUSD:     v.GetFloat64("min-profit-usd"),
		Concurrency:      v.GetInt("concurrency"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		TokenCacheSize:   v.GetInt("token-cache-size"),
		PriceTTL:         v.GetDuration("price-ttl"),
		Journal:          v.GetString("journal"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}
