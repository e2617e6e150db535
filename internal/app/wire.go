package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/0xnivek/joe-liquidator/internal/blob/s3"
	"github.com/0xnivek/joe-liquidator/internal/cache/redis"
	"github.com/0xnivek/joe-liquidator/internal/config"
	"github.com/0xnivek/joe-liquidator/internal/crypto"
	"github.com/0xnivek/joe-liquidator/internal/domain"
	"github.com/0xnivek/joe-liquidator/internal/notify"
	"github.com/0xnivek/joe-liquidator/internal/platform/chain"
	"github.com/0xnivek/joe-liquidator/internal/platform/dex"
	"github.com/0xnivek/joe-liquidator/internal/platform/subgraph"
	"github.com/0xnivek/joe-liquidator/internal/store/postgres"
)

// Dependencies bundles every external capability the run modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Pipeline collaborators
	AccountSource domain.AccountSource
	SwapQuoter    domain.SwapQuoter
	Liquidator    domain.Liquidator

	// FundingAsset is the configured flash-capital asset.
	FundingAsset domain.Asset

	// Persistence and coordination (nil when the backing service is disabled)
	AttemptStore domain.AttemptStore
	Cooldown     domain.CooldownCache
	LockManager  domain.LockManager
	BlobWriter   domain.BlobWriter

	Notifier *notify.Notifier
}

// needsChain returns true for modes that talk to the node.
func needsChain(mode string) bool {
	return mode == "run" || mode == "scan"
}

// needsKey returns true for modes that submit transactions.
func needsKey(mode string) bool {
	return mode == "run"
}

// Wire constructs all concrete dependency implementations from the
// configuration and returns them with a cleanup function to call on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		FundingAsset: domain.Asset{
			Symbol:   cfg.Liquidation.FundingAssetSymbol,
			Address:  cfg.Liquidation.FundingAssetAddress,
			Decimals: cfg.Liquidation.FundingAssetDecimals,
		},
	}

	// --- Notifier ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- PostgreSQL attempt journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.AttemptStore = postgres.NewAttemptStore(pgClient.Pool())
	}

	// --- Redis cooldown cache and submitter lock ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cooldown = redis.NewCooldownCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
	}

	// --- S3 archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Subgraph account source ---
	if needsChain(mode) {
		deps.AccountSource = subgraph.NewClient(cfg.Subgraph.URL, cfg.Subgraph.APIKey, logger)
	}

	// --- Node clients ---
	if needsChain(mode) {
		eth, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: dial node: %w", err)
		}
		closers = append(closers, eth.Close)

		quoter, err := dex.NewQuoter(eth, common.HexToAddress(cfg.Chain.SwapRouter))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: dex quoter: %w", err)
		}
		deps.SwapQuoter = quoter

		if needsKey(mode) {
			key, err := crypto.LoadKey(crypto.KeyConfig{
				RawPrivateKey:    cfg.Wallet.PrivateKey,
				EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
				KeyPassword:      cfg.Wallet.KeyPassword,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: signing key: %w", err)
			}

			logger.Info("signing identity loaded",
				slog.String("address", crypto.Address(key).Hex()),
			)

			liq, err := chain.New(
				eth,
				common.HexToAddress(cfg.Chain.LiquidatorContract),
				key,
				cfg.Chain.ChainID,
				deps.FundingAsset,
			)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: liquidator client: %w", err)
			}
			deps.Liquidator = liq
		}
	}

	return deps, cleanup, nil
}
