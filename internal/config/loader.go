package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ATOM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ATOM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject endpoints and credentials at deploy
// time without touching the TOML file, and lets the supervisor retarget a
// child scanner through its environment.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "ATOM_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "ATOM_CHAIN_ID")
	setDuration(&cfg.Chain.CallTimeout, "ATOM_CHAIN_CALL_TIMEOUT")
	setStr(&cfg.Chain.GasOracleFeed, "ATOM_CHAIN_GAS_ORACLE_FEED")
	setFloat64(&cfg.Chain.NativeUSDFallback, "ATOM_CHAIN_NATIVE_USD_FALLBACK")
	setFloat64(&cfg.Chain.GasPriceFallbackGwei, "ATOM_CHAIN_GAS_PRICE_FALLBACK_GWEI")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ATOM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ATOM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ATOM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ATOM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ATOM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ATOM_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ATOM_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ATOM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ATOM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ATOM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ATOM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ATOM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ATOM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ATOM_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ATOM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ATOM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ATOM_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ATOM_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ATOM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ATOM_S3_REGION")
	setStr(&cfg.S3.Bucket, "ATOM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ATOM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ATOM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ATOM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ATOM_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.Interval, "ATOM_S3_INTERVAL")
	setDuration(&cfg.S3.MaxAge, "ATOM_S3_MAX_AGE")

	// ── Scanner ──
	setStr(&cfg.Scanner.Strategy, "ATOM_SCANNER_STRATEGY")
	setDuration(&cfg.Scanner.ScanInterval, "ATOM_SCANNER_SCAN_INTERVAL")
	setDuration(&cfg.Scanner.DiscoveryInterval, "ATOM_SCANNER_DISCOVERY_INTERVAL")
	setInt64(&cfg.Scanner.MinSpreadBps, "ATOM_SCANNER_MIN_SPREAD_BPS")
	setFloat64(&cfg.Scanner.MinNetProfitUSD, "ATOM_SCANNER_MIN_NET_PROFIT_USD")
	setUint64(&cfg.Scanner.GasUnits, "ATOM_SCANNER_GAS_UNITS")
	setInt64(&cfg.Scanner.FlashFeeBps, "ATOM_SCANNER_FLASH_FEE_BPS")
	setFloat64(&cfg.Scanner.TradeSizeUSD, "ATOM_SCANNER_TRADE_SIZE_USD")
	setInt64(&cfg.Scanner.StreamMaxLen, "ATOM_SCANNER_STREAM_MAX_LEN")
	setInt(&cfg.Scanner.MetricsPort, "ATOM_SCANNER_METRICS_PORT")
	setInt(&cfg.Scanner.DiscoveryConcurrency, "ATOM_SCANNER_DISCOVERY_CONCURRENCY")

	// ── Supervisor ──
	setStringSlice(&cfg.Supervisor.Enabled, "ATOM_SUPERVISOR_ENABLED")
	setStr(&cfg.Supervisor.ChildBinary, "ATOM_SUPERVISOR_CHILD_BINARY")
	setStr(&cfg.Supervisor.ChildConfig, "ATOM_SUPERVISOR_CHILD_CONFIG")
	setDuration(&cfg.Supervisor.InitialBackoff, "ATOM_SUPERVISOR_INITIAL_BACKOFF")
	setDuration(&cfg.Supervisor.MaxBackoff, "ATOM_SUPERVISOR_MAX_BACKOFF")
	setDuration(&cfg.Supervisor.RestartWindow, "ATOM_SUPERVISOR_RESTART_WINDOW")
	setInt(&cfg.Supervisor.MaxRestartsInWindow, "ATOM_SUPERVISOR_MAX_RESTARTS_IN_WINDOW")
	setDuration(&cfg.Supervisor.GracePeriod, "ATOM_SUPERVISOR_GRACE_PERIOD")
	setDuration(&cfg.Supervisor.PollInterval, "ATOM_SUPERVISOR_POLL_INTERVAL")
	setInt(&cfg.Supervisor.MetricsPort, "ATOM_SUPERVISOR_METRICS_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ATOM_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ATOM_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ATOM_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ATOM_NOTIFY_EVENTS")

	// ── Control ──
	setStr(&cfg.Control.KillKey, "ATOM_CONTROL_KILL_KEY")
	setStr(&cfg.Control.PausePrefix, "ATOM_CONTROL_PAUSE_PREFIX")

	// ── Top-level ──
	setStr(&cfg.Mode, "ATOM_MODE")
	setStr(&cfg.LogLevel, "ATOM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
