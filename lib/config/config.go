package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel   string
	Scenario   string
	EventsOut  string
	ResultsOut string
	MetricsOut string
	PGDSN      string

	// amm config used when the scenario does not bring its own
	TickSpacing     uint16
	TradeFeeRate    uint32
	ProtocolFeeRate uint32
	FundFeeRate     uint32

	// seconds between two snapshots of the replay
	SnapshotInterval uint64
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("scenario", "./data/scenario.json")
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("results-out", "./data/results.json")
	v.SetDefault("tick-spacing", 10)
	v.SetDefault("trade-fee-rate", 2500)
	v.SetDefault("protocol-fee-rate", 120000)
	v.SetDefault("fund-fee-rate", 40000)
	v.SetDefault("snapshot-interval", 3600)

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
		LogLevel:         v.GetString("log-level"),
		Scenario:         v.GetString("scenario"),
		EventsOut:        v.GetString("events-out"),
		ResultsOut:       v.GetString("results-out"),
		MetricsOut:       v.GetString("metrics-out"),
		PGDSN:            v.GetString("pg-dsn"),
		TickSpacing:      v.GetUint16("tick-spacing"),
		TradeFeeRate:     v.GetUint32("trade-fee-rate"),
		ProtocolFeeRate:  v.GetUint32("protocol-fee-rate"),
		FundFeeRate:      v.GetUint32("fund-fee-rate"),
		SnapshotInterval: v.GetUint64("snapshot-interval"),
	}
	if cfg.TickSpacing == 0 {
		return Config{}, fmt.Errorf("tick-spacing must be positive")
	}
	return cfg, nil
}
