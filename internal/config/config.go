// Package config defines the liquidation agent's configuration and its
// validation rules. Missing required configuration is fatal: the process
// reports every problem and exits before the poll loop starts.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file and
// then overridden by JOEBOT_* environment variables.
type Config struct {
	Wallet      WalletConfig      `toml:"wallet"`
	Chain       ChainConfig       `toml:"chain"`
	Subgraph    SubgraphConfig    `toml:"subgraph"`
	Liquidation LiquidationConfig `toml:"liquidation"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// WalletConfig holds the signing credential. Exactly one key source is
// required for modes that submit transactions.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds node and contract parameters.
type ChainConfig struct {
	RPCURL             string `toml:"rpc_url"`
	ChainID            int64  `toml:"chain_id"`
	LiquidatorContract string `toml:"liquidator_contract"`
	SwapRouter         string `toml:"swap_router"`
	// NativeMarket is the wrapped-native lending market address; the
	// liquidator contract treats it specially.
	NativeMarket string `toml:"native_market"`
}

// SubgraphConfig holds the lending subgraph endpoint.
type SubgraphConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// LiquidationConfig holds the scan and execution policy.
type LiquidationConfig struct {
	// FundingAsset identifies the flash-borrowed intermediate asset.
	FundingAssetSymbol   string `toml:"funding_asset_symbol"`
	FundingAssetAddress  string `toml:"funding_asset_address"`
	FundingAssetDecimals int    `toml:"funding_asset_decimals"`

	// CloseFactor is the repayable fraction of one borrow position. The
	// protocol exposes it per market; this is the agent's policy value.
	CloseFactor float64 `toml:"close_factor"`

	PollInterval      duration `toml:"poll_interval"`
	TickTimeout       duration `toml:"tick_timeout"`
	SettlementTimeout duration `toml:"settlement_timeout"`

	// Cooldown is how long an attempted borrower is skipped after a
	// submission. Zero disables the cooldown.
	Cooldown duration `toml:"cooldown"`
}

// PostgresConfig holds attempt-journal connection parameters.
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

// RedisConfig holds cooldown-cache and lock connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds cold-archive object storage parameters.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// NotifyConfig holds operator alert channels.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so TOML strings like "10s" decode directly.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
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
			RPCURL:  "https://api.avax.network/ext/bc/C/rpc",
			ChainID: 43114,
		},
		Subgraph: SubgraphConfig{
			URL: "https://api.thegraph.com/subgraphs/name/traderjoe-xyz/lending",
		},
		Liquidation: LiquidationConfig{
			FundingAssetSymbol:   "USDC.e",
			FundingAssetDecimals: 6,
			CloseFactor:          0.5,
			PollInterval:         duration{10 * time.Second},
			TickTimeout:          duration{5 * time.Minute},
			SettlementTimeout:    duration{2 * time.Minute},
			Cooldown:             duration{5 * time.Minute},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "liquidator",
			User:          "liquidator",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:         false,
			Region:          "us-east-1",
			Bucket:          "liquidator-archive",
			ForcePathStyle:  true,
			ArchiveInterval: duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"liquidation_succeeded", "settlement_timeout"},
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":     true,
	"scan":    true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the Config and returns a combined error describing every
// problem found. A non-nil return is fatal at startup.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, scan, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — only run mode submits transactions.
	if mode == "run" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode run")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Chain
	if mode == "run" || mode == "scan" {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url must not be empty")
		}
		if c.Chain.ChainID <= 0 {
			errs = append(errs, "chain: chain_id must be positive")
		}
		if c.Chain.SwapRouter == "" {
			errs = append(errs, "chain: swap_router must not be empty")
		}
	}
	if mode == "run" && c.Chain.LiquidatorContract == "" {
		errs = append(errs, "chain: liquidator_contract must not be empty for mode run")
	}

	// Subgraph
	if (mode == "run" || mode == "scan") && c.Subgraph.URL == "" {
		errs = append(errs, "subgraph: url must not be empty")
	}

	// Liquidation policy
	if c.Liquidation.FundingAssetSymbol == "" {
		errs = append(errs, "liquidation: funding_asset_symbol must not be empty")
	}
	if (mode == "run" || mode == "scan") && c.Liquidation.FundingAssetAddress == "" {
		errs = append(errs, "liquidation: funding_asset_address must not be empty")
	}
	if c.Liquidation.FundingAssetDecimals <= 0 {
		errs = append(errs, "liquidation: funding_asset_decimals must be positive")
	}
	if c.Liquidation.CloseFactor <= 0 || c.Liquidation.CloseFactor > 1 {
		errs = append(errs, fmt.Sprintf("liquidation: close_factor must be in (0, 1], got %g", c.Liquidation.CloseFactor))
	}
	if c.Liquidation.PollInterval.Duration <= 0 {
		errs = append(errs, "liquidation: poll_interval must be positive")
	}
	if c.Liquidation.TickTimeout.Duration <= 0 {
		errs = append(errs, "liquidation: tick_timeout must be positive")
	}
	if c.Liquidation.SettlementTimeout.Duration <= 0 {
		errs = append(errs, "liquidation: settlement_timeout must be positive")
	}

	// Postgres
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
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archiving requires postgres to be enabled")
		}
	}
	if mode == "archive" && !c.S3.Enabled {
		errs = append(errs, "s3: must be enabled for mode archive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
