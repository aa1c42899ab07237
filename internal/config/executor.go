// Package config loads executor and client process settings from
// flags and environment variables (prefixed AQUEDUCTS_), layered
// through viper the way the teacher's own CLI configuration does.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Executor holds the aqueducts-executor serve command's settings.
type Executor struct {
	APIKey        string
	Host          string
	Port          int
	MaxMemoryGB   int // 0 means unbounded
	ExecutorID    string
	LogLevel      string
}

// LoadExecutor layers AQUEDUCTS_-prefixed environment variables under
// flags already bound to fs, returning the resolved settings.
func LoadExecutor(fs *pflag.FlagSet) (Executor, error) {
	v := viper.New()
	v.SetEnvPrefix("AQUEDUCTS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 7878)
	v.SetDefault("max-memory", 0)
	v.SetDefault("log-level", "info")

	if err := v.BindPFlags(fs); err != nil {
		return Executor{}, fmt.Errorf("binding executor flags: %w", err)
	}

	cfg := Executor{
		APIKey:      v.GetString("api-key"),
		Host:        v.GetString("host"),
		Port:        v.GetInt("port"),
		MaxMemoryGB: v.GetInt("max-memory"),
		ExecutorID:  v.GetString("executor-id"),
		LogLevel:    v.GetString("log-level"),
	}
	if cfg.APIKey == "" {
		return Executor{}, fmt.Errorf("an api key is required (--api-key or AQUEDUCTS_API_KEY)")
	}
	return cfg, nil
}

// MemoryLimitBytes converts MaxMemoryGB into the byte budget
// internal/sqlctx.Config expects, 0 meaning no limit.
func (e Executor) MemoryLimitBytes() int64 {
	if e.MaxMemoryGB <= 0 {
		return 0
	}
	return int64(e.MaxMemoryGB) * 1024 * 1024 * 1024
}

// Client holds the aqueducts CLI client's connection settings.
type Client struct {
	Executor string
	APIKey   string
}

// LoadClient layers AQUEDUCTS_-prefixed environment variables under
// flags already bound to fs.
func LoadClient(fs *pflag.FlagSet) (Client, error) {
	v := viper.New()
	v.SetEnvPrefix("AQUEDUCTS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Client{}, fmt.Errorf("binding client flags: %w", err)
	}

	return Client{
		Executor: v.GetString("executor"),
		APIKey:   v.GetString("api-key"),
	}, nil
}
