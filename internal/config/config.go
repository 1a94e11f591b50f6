// Package config defines the top-level configuration for the scanner fleet
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ATOM_* environment variables.
type Config struct {
	Chain      ChainConfig      `toml:"chain"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	Control    ControlConfig    `toml:"control"`
	Notify     NotifyConfig     `toml:"notify"`
	Venues     []VenueConfig    `toml:"venues"`
	Tokens     []TokenConfig    `toml:"tokens"`
	Pairs      [][]string       `toml:"pairs"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ChainConfig holds RPC endpoint and oracle parameters.
type ChainConfig struct {
	RPCURL      string   `toml:"rpc_url"`
	ChainID     int64    `toml:"chain_id"`
	CallTimeout duration `toml:"call_timeout"`
	// GasOracleFeed is the Chainlink aggregator for the native/USD price.
	GasOracleFeed string `toml:"gas_oracle_feed"`
	// NativeUSDFallback is used when the oracle cannot be read.
	NativeUSDFallback float64 `toml:"native_usd_fallback"`
	// GasPriceFallbackGwei is used when the node refuses a gas estimate.
	GasPriceFallbackGwei float64 `toml:"gas_price_fallback_gwei"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds parameters for the optional signal archive database.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds parameters for the optional cold-storage archiver.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	Interval       duration `toml:"interval"`
	MaxAge         duration `toml:"max_age"`
}

// ScannerConfig holds the parameters for one scanner process.
type ScannerConfig struct {
	// Strategy selects the scan shape: "cross_venue", "stable_peg",
	// "triangular".
	Strategy          string   `toml:"strategy"`
	ScanInterval      duration `toml:"scan_interval"`
	DiscoveryInterval duration `toml:"discovery_interval"`
	// MinSpreadBps of zero selects the strategy's own default threshold.
	MinSpreadBps    int64   `toml:"min_spread_bps"`
	MinNetProfitUSD float64 `toml:"min_net_profit_usd"`
	GasUnits        uint64  `toml:"gas_units"`
	FlashFeeBps     int64   `toml:"flash_fee_bps"`
	TradeSizeUSD    float64 `toml:"trade_size_usd"`
	StreamMaxLen    int64   `toml:"stream_max_len"`
	// MetricsPort of zero disables the endpoint. Supervised children are
	// each assigned metrics_port + their index in the enabled list.
	MetricsPort int `toml:"metrics_port"`
	// DiscoveryConcurrency bounds the fan-out of pool lookups in one pass.
	DiscoveryConcurrency int `toml:"discovery_concurrency"`
}

// SupervisorConfig holds the fleet supervisor parameters.
type SupervisorConfig struct {
	// Enabled is the allowlist of scanner strategy names to run.
	Enabled []string `toml:"enabled"`
	// ChildBinary is the executable spawned per scanner; empty means the
	// supervisor re-executes itself.
	ChildBinary         string   `toml:"child_binary"`
	ChildConfig         string   `toml:"child_config"`
	InitialBackoff      duration `toml:"initial_backoff"`
	MaxBackoff          duration `toml:"max_backoff"`
	RestartWindow       duration `toml:"restart_window"`
	MaxRestartsInWindow int      `toml:"max_restarts_in_window"`
	GracePeriod         duration `toml:"grace_period"`
	PollInterval        duration `toml:"poll_interval"`
	MetricsPort         int      `toml:"metrics_port"`
}

// ControlConfig holds the external flag key names.
type ControlConfig struct {
	KillKey     string `toml:"kill_key"`
	PausePrefix string `toml:"pause_prefix"`
}

// NotifyConfig holds the operator alert channels. Channels with empty
// credentials are skipped.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	// Events filters delivered alert types; empty allows everything.
	Events []string `toml:"events"`
}

// VenueConfig describes one DEX factory to scan.
type VenueConfig struct {
	Name    string `toml:"name"`
	Factory string `toml:"factory"`
	FeeBps  int64  `toml:"fee_bps"`
}

// TokenConfig describes one token in the universe.
type TokenConfig struct {
	Symbol  string `toml:"symbol"`
	Address string `toml:"address"`
	Stable  bool   `toml:"stable"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:               "http://localhost:8545",
			ChainID:              137,
			CallTimeout:          duration{5 * time.Second},
			NativeUSDFallback:    2000.0,
			GasPriceFallbackGwei: 100.0,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "atom",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "atom-signals",
			UseSSL:         false,
			ForcePathStyle: true,
			Interval:       duration{6 * time.Hour},
			MaxAge:         duration{30 * 24 * time.Hour},
		},
		Scanner: ScannerConfig{
			Strategy:             "cross_venue",
			ScanInterval:         duration{3 * time.Second},
			DiscoveryInterval:    duration{10 * time.Minute},
			MinSpreadBps:         0, // strategy default
			MinNetProfitUSD:      25.0,
			GasUnits:             300_000,
			FlashFeeBps:          9, // Aave flash-loan premium
			TradeSizeUSD:         10_000.0,
			StreamMaxLen:         10_000,
			MetricsPort:          9100,
			DiscoveryConcurrency: 8,
		},
		Supervisor: SupervisorConfig{
			Enabled:             []string{"cross_venue", "stable_peg", "triangular"},
			InitialBackoff:      duration{1 * time.Second},
			MaxBackoff:          duration{60 * time.Second},
			RestartWindow:       duration{5 * time.Minute},
			MaxRestartsInWindow: 5,
			GracePeriod:         duration{10 * time.Second},
			PollInterval:        duration{3 * time.Second},
			MetricsPort:         9090,
		},
		Control: ControlConfig{
			KillKey:     "atom:kill",
			PausePrefix: "atom:pause:",
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":      true,
	"supervise": true,
	"tail":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validStrategies enumerates the scanner strategy names.
var validStrategies = map[string]bool{
	"cross_venue": true,
	"stable_peg":  true,
	"triangular":  true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. Mode and LogLevel are
// normalized to lower case so every later comparison sees the canonical form.
func (c *Config) Validate() error {
	var errs []string

	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if !validModes[c.Mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, supervise, tail)", c.Mode))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if c.Chain.CallTimeout.Duration <= 0 {
		errs = append(errs, "chain: call_timeout must be > 0")
	}
	if c.Chain.NativeUSDFallback <= 0 {
		errs = append(errs, "chain: native_usd_fallback must be > 0")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres (only when enabled)
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
	}

	// S3 (only when enabled)
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.S3.Interval.Duration <= 0 {
			errs = append(errs, "s3: interval must be > 0")
		}
	}

	// Scanner
	if c.Mode == "scan" {
		if !validStrategies[c.Scanner.Strategy] {
			errs = append(errs, fmt.Sprintf("scanner: unknown strategy %q (valid: cross_venue, stable_peg, triangular)", c.Scanner.Strategy))
		}
		if c.Scanner.ScanInterval.Duration <= 0 {
			errs = append(errs, "scanner: scan_interval must be > 0")
		}
		if c.Scanner.DiscoveryInterval.Duration <= 0 {
			errs = append(errs, "scanner: discovery_interval must be > 0")
		}
		if c.Scanner.MinSpreadBps < 0 {
			errs = append(errs, "scanner: min_spread_bps must be >= 0")
		}
		if c.Scanner.TradeSizeUSD <= 0 {
			errs = append(errs, "scanner: trade_size_usd must be > 0")
		}
		if c.Scanner.GasUnits == 0 {
			errs = append(errs, "scanner: gas_units must be > 0")
		}
		if c.Scanner.StreamMaxLen < 1 {
			errs = append(errs, "scanner: stream_max_len must be >= 1")
		}
		if c.Scanner.DiscoveryConcurrency < 1 {
			errs = append(errs, "scanner: discovery_concurrency must be >= 1")
		}
		if len(c.Venues) == 0 {
			errs = append(errs, "venues: at least one venue is required for scan mode")
		}
		if len(c.Tokens) < 2 {
			errs = append(errs, "tokens: at least two tokens are required for scan mode")
		}
	}
	for i, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: name must not be empty", i))
		}
		if v.Factory == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: factory address must not be empty", i))
		}
		if v.FeeBps < 0 || v.FeeBps >= 10000 {
			errs = append(errs, fmt.Sprintf("venues[%d]: fee_bps must be in [0, 10000)", i))
		}
	}
	for i, t := range c.Tokens {
		if t.Symbol == "" {
			errs = append(errs, fmt.Sprintf("tokens[%d]: symbol must not be empty", i))
		}
		if t.Address == "" {
			errs = append(errs, fmt.Sprintf("tokens[%d]: address must not be empty", i))
		}
	}
	for i, p := range c.Pairs {
		if len(p) != 2 {
			errs = append(errs, fmt.Sprintf("pairs[%d]: must list exactly two token symbols", i))
		}
	}

	// Tail follows one strategy's stream; it needs the strategy name and a
	// poll interval but no venues or tokens.
	if c.Mode == "tail" {
		if !validStrategies[c.Scanner.Strategy] {
			errs = append(errs, fmt.Sprintf("scanner: unknown strategy %q (valid: cross_venue, stable_peg, triangular)", c.Scanner.Strategy))
		}
		if c.Scanner.ScanInterval.Duration <= 0 {
			errs = append(errs, "scanner: scan_interval must be > 0")
		}
	}

	// Supervisor
	if c.Mode == "supervise" {
		if len(c.Supervisor.Enabled) == 0 {
			errs = append(errs, "supervisor: enabled must list at least one scanner")
		}
		for _, name := range c.Supervisor.Enabled {
			if !validStrategies[name] {
				errs = append(errs, fmt.Sprintf("supervisor: unknown scanner %q in enabled list", name))
			}
		}
		if c.Supervisor.InitialBackoff.Duration <= 0 {
			errs = append(errs, "supervisor: initial_backoff must be > 0")
		}
		if c.Supervisor.MaxBackoff.Duration < c.Supervisor.InitialBackoff.Duration {
			errs = append(errs, "supervisor: max_backoff must be >= initial_backoff")
		}
		if c.Supervisor.GracePeriod.Duration <= 0 {
			errs = append(errs, "supervisor: grace_period must be > 0")
		}
		if c.Supervisor.PollInterval.Duration <= 0 {
			errs = append(errs, "supervisor: poll_interval must be > 0")
		}
	}

	// Control
	if c.Control.KillKey == "" {
		errs = append(errs, "control: kill_key must not be empty")
	}
	if c.Control.PausePrefix == "" {
		errs = append(errs, "control: pause_prefix must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
