package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	StateFile    string
	PgDSN        string
	SnapshotName string
	Events       string
	LogLevel     string
	From         string
	RPCURL       string
	MaxRetries   int
	RetryBackoff time.Duration
	Listen       string
	ChainID      uint64
	PairSuffix   string
	Deadline     string
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the TOKNSWAP_ prefix with dashes replaced by
// underscores, e.g. TOKNSWAP_PG_DSN.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOKNSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-file", "./data/state.json")
	v.SetDefault("snapshot-name", "default")
	v.SetDefault("events", "./data/events.jsonl")
	v.SetDefault("log-level", "info")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("listen", ":8545")
	v.SetDefault("chain-id", uint64(31337))
	v.SetDefault("pair-suffix", "TLP")
	v.SetDefault("deadline", "20m")

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
		StateFile:    v.GetString("state-file"),
		PgDSN:        v.GetString("pg-dsn"),
		SnapshotName: v.GetString("snapshot-name"),
		Events:       v.GetString("events"),
		LogLevel:     v.GetString("log-level"),
		From:         strings.TrimSpace(v.GetString("from")),
		RPCURL:       v.GetString("rpc"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Listen:       v.GetString("listen"),
		ChainID:      v.GetUint64("chain-id"),
		PairSuffix:   v.GetString("pair-suffix"),
		Deadline:     v.GetString("deadline"),
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("max-retries must not be negative")
	}
	return cfg, nil
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
