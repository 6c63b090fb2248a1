package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ScanConfig holds configuration for the scan command.
type ScanConfig struct {
	RPCURL          string
	PositionManager string
	Count           int
	MaxProbes       int
	Seed            int64
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// LoadScan merges config file, environment variables, and flags into ScanConfig.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("POSITIONTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("count", 10)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return ScanConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return ScanConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return ScanConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := ScanConfig{
		RPCURL:          v.GetString("rpc"),
		PositionManager: v.GetString("position-manager"),
		Count:           v.GetInt("count"),
		MaxProbes:       v.GetInt("max-probes"),
		Seed:            v.GetInt64("seed"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
