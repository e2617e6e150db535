package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file, merges it on top of the built-in
// defaults, applies JOEBOT_* environment overrides, and returns the final
// Config. The result has not been validated; the caller should invoke
// Config.Validate after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites config fields from well-known JOEBOT_*
// variables when set, letting operators inject secrets at deploy time
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "JOEBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "JOEBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "JOEBOT_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "JOEBOT_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "JOEBOT_CHAIN_ID")
	setStr(&cfg.Chain.LiquidatorContract, "JOEBOT_CHAIN_LIQUIDATOR_CONTRACT")
	setStr(&cfg.Chain.SwapRouter, "JOEBOT_CHAIN_SWAP_ROUTER")
	setStr(&cfg.Chain.NativeMarket, "JOEBOT_CHAIN_NATIVE_MARKET")

	// ── Subgraph ──
	setStr(&cfg.Subgraph.URL, "JOEBOT_SUBGRAPH_URL")
	setStr(&cfg.Subgraph.APIKey, "JOEBOT_SUBGRAPH_API_KEY")

	// ── Liquidation ──
	setStr(&cfg.Liquidation.FundingAssetSymbol, "JOEBOT_LIQUIDATION_FUNDING_ASSET_SYMBOL")
	setStr(&cfg.Liquidation.FundingAssetAddress, "JOEBOT_LIQUIDATION_FUNDING_ASSET_ADDRESS")
	setInt(&cfg.Liquidation.FundingAssetDecimals, "JOEBOT_LIQUIDATION_FUNDING_ASSET_DECIMALS")
	setFloat64(&cfg.Liquidation.CloseFactor, "JOEBOT_LIQUIDATION_CLOSE_FACTOR")
	setDuration(&cfg.Liquidation.PollInterval, "JOEBOT_LIQUIDATION_POLL_INTERVAL")
	setDuration(&cfg.Liquidation.TickTimeout, "JOEBOT_LIQUIDATION_TICK_TIMEOUT")
	setDuration(&cfg.Liquidation.SettlementTimeout, "JOEBOT_LIQUIDATION_SETTLEMENT_TIMEOUT")
	setDuration(&cfg.Liquidation.Cooldown, "JOEBOT_LIQUIDATION_COOLDOWN")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "JOEBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "JOEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "JOEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "JOEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "JOEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "JOEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "JOEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "JOEBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "JOEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "JOEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "JOEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "JOEBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "JOEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "JOEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "JOEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "JOEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "JOEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "JOEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "JOEBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "JOEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "JOEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "JOEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "JOEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "JOEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "JOEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "JOEBOT_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "JOEBOT_S3_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "JOEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "JOEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "JOEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "JOEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "JOEBOT_MODE")
	setStr(&cfg.LogLevel, "JOEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.
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
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
