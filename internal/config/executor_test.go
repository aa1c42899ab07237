package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadExecutor_RequiresAPIKey(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("api-key", "", "")
	fs.String("host", "", "")
	fs.Int("port", 0, "")
	fs.Int("max-memory", 0, "")
	fs.String("executor-id", "", "")
	fs.String("log-level", "", "")

	_, err := LoadExecutor(fs)
	require.Error(t, err)
}

func TestLoadExecutor_DefaultsAndOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("api-key", "secret", "")
	fs.String("host", "", "")
	fs.Int("port", 0, "")
	fs.Int("max-memory", 0, "")
	fs.String("executor-id", "", "")
	fs.String("log-level", "", "")

	cfg, err := LoadExecutor(fs)
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.APIKey)
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, 7878, cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, int64(0), cfg.MemoryLimitBytes())
}

func TestLoadExecutor_EnvVarOverridesFlagDefault(t *testing.T) {
	t.Setenv("AQUEDUCTS_API_KEY", "from-env")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("api-key", "", "")
	fs.String("host", "", "")
	fs.Int("port", 0, "")
	fs.Int("max-memory", 0, "")
	fs.String("executor-id", "", "")
	fs.String("log-level", "", "")

	cfg, err := LoadExecutor(fs)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.APIKey)

	_ = os.Unsetenv("AQUEDUCTS_API_KEY")
}

func TestMemoryLimitBytes_ConvertsGigabytesToBytes(t *testing.T) {
	e := Executor{MaxMemoryGB: 4}
	require.Equal(t, int64(4*1024*1024*1024), e.MemoryLimitBytes())
}

func TestLoadClient_ReadsExecutorAndAPIKeyFlags(t *testing.T) {
	fs := pflag.NewFlagSet("root", pflag.ContinueOnError)
	fs.String("executor", "", "")
	fs.String("api-key", "", "")
	require.NoError(t, fs.Set("executor", "127.0.0.1:7878"))
	require.NoError(t, fs.Set("api-key", "k"))

	cfg, err := LoadClient(fs)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7878", cfg.Executor)
	require.Equal(t, "k", cfg.APIKey)
}
