package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "scan"

[chain]
rpc_url = "https://polygon-rpc.example"
chain_id = 137

[scanner]
strategy = "stable_peg"
scan_interval = "2s"
min_spread_bps = 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://polygon-rpc.example", cfg.Chain.RPCURL)
	require.Equal(t, "stable_peg", cfg.Scanner.Strategy)
	require.Equal(t, 2*time.Second, cfg.Scanner.ScanInterval.Duration)
	require.Equal(t, int64(20), cfg.Scanner.MinSpreadBps)

	// Untouched fields keep their defaults.
	require.Equal(t, "atom:kill", cfg.Control.KillKey)
	require.Equal(t, int64(10_000), cfg.Scanner.StreamMaxLen)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[chain]
rpc_url = "https://file-rpc.example"
`)

	t.Setenv("ATOM_CHAIN_RPC_URL", "https://env-rpc.example")
	t.Setenv("ATOM_SCANNER_STRATEGY", "triangular")
	t.Setenv("ATOM_SCANNER_SCAN_INTERVAL", "500ms")
	t.Setenv("ATOM_SUPERVISOR_ENABLED", "cross_venue, triangular")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://env-rpc.example", cfg.Chain.RPCURL)
	require.Equal(t, "triangular", cfg.Scanner.Strategy)
	require.Equal(t, 500*time.Millisecond, cfg.Scanner.ScanInterval.Duration)
	require.Equal(t, []string{"cross_venue", "triangular"}, cfg.Supervisor.Enabled)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "scan"
	cfg.Chain.RPCURL = ""
	cfg.Scanner.Strategy = "nope"
	cfg.Scanner.TradeSizeUSD = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "rpc_url")
	require.Contains(t, err.Error(), `unknown strategy "nope"`)
	require.Contains(t, err.Error(), "trade_size_usd")
}

func TestValidateNormalizesModeCase(t *testing.T) {
	// A mixed-case mode must not slip past the scan-mode requirements.
	cfg := Defaults()
	cfg.Mode = "Scan"
	cfg.LogLevel = "INFO"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "venues: at least one venue is required")
	require.Contains(t, err.Error(), "tokens: at least two tokens are required")

	require.Equal(t, "scan", cfg.Mode)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestValidateSupervisorMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "supervise"
	cfg.Supervisor.Enabled = []string{"cross_venue"}
	require.NoError(t, cfg.Validate())

	cfg.Supervisor.Enabled = []string{"unknown_bot"}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown scanner "unknown_bot"`)
}
