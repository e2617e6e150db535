package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/0xnivek/joe-liquidator/internal/blob/s3"
	"github.com/0xnivek/joe-liquidator/internal/coordinator"
	"github.com/0xnivek/joe-liquidator/internal/poller"
	"github.com/0xnivek/joe-liquidator/internal/router"
	"github.com/0xnivek/joe-liquidator/internal/selector"
)

// submitterLockKey guards against two agent instances submitting against the
// same contract at once.
const submitterLockKey = "liquidator:submitter"

// submitterLockTTL must comfortably exceed one tick so the lock survives a
// full scan-and-settle cycle between renewals.
const submitterLockTTL = 10 * time.Minute

// RunMode starts the full agent: the scan poller with live execution, plus
// the attempt archiver when object storage is configured.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode")

	if deps.LockManager != nil {
		release, err := deps.LockManager.Acquire(ctx, submitterLockKey, submitterLockTTL)
		if err != nil {
			return fmt.Errorf("app: acquire submitter lock: %w", err)
		}
		defer release()
		a.logger.InfoContext(ctx, "submitter lock acquired", slog.String("key", submitterLockKey))
	}

	sel := selector.New(a.cfg.Liquidation.CloseFactor)
	rtr := router.New(deps.SwapQuoter, deps.FundingAsset, a.logger)

	var opts []coordinator.Option
	if deps.AttemptStore != nil {
		opts = append(opts, coordinator.WithAttemptStore(deps.AttemptStore))
	}
	if deps.Cooldown != nil && a.cfg.Liquidation.Cooldown.Duration > 0 {
		opts = append(opts, coordinator.WithCooldown(deps.Cooldown, a.cfg.Liquidation.Cooldown.Duration))
	}
	if deps.Notifier != nil {
		opts = append(opts, coordinator.WithNotifier(deps.Notifier))
	}

	coord := coordinator.New(
		rtr,
		deps.Liquidator,
		a.cfg.Liquidation.SettlementTimeout.Duration,
		a.logger,
		opts...,
	)

	p := poller.New(
		deps.AccountSource,
		sel,
		coord,
		deps.Cooldown,
		a.cfg.Liquidation.PollInterval.Duration,
		a.cfg.Liquidation.TickTimeout.Duration,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(ctx)
	})

	if deps.BlobWriter != nil && deps.AttemptStore != nil {
		archiver := s3blob.NewArchiver(deps.AttemptStore, deps.BlobWriter, a.logger)
		interval := a.cfg.S3.ArchiveInterval.Duration
		g.Go(func() error {
			return archiver.RunLoop(ctx, interval)
		})
	}

	return g.Wait()
}

// ScanMode runs the scan loop without submitting anything: accounts are
// fetched, opportunities selected, and funding plans computed and logged.
// Useful for validating subgraph and router connectivity before going live.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode (dry run)")

	sel := selector.New(a.cfg.Liquidation.CloseFactor)
	rtr := router.New(deps.SwapQuoter, deps.FundingAsset, a.logger)

	interval := a.cfg.Liquidation.PollInterval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.scanOnce(ctx, deps, sel, rtr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) scanOnce(ctx context.Context, deps *Dependencies, sel *selector.Selector, rtr *router.Router) {
	tickCtx, cancel := context.WithTimeout(ctx, a.cfg.Liquidation.TickTimeout.Duration)
	defer cancel()

	accounts, err := deps.AccountSource.FetchUnderwaterAccounts(tickCtx)
	if err != nil {
		a.logger.WarnContext(ctx, "account fetch failed", slog.String("error", err.Error()))
		return
	}
	a.logger.InfoContext(ctx, "scan cycle", slog.Int("underwater_accounts", len(accounts)))

	for _, acct := range accounts {
		if !acct.IsLiquidatable() {
			continue
		}
		opp, ok := sel.Select(acct)
		if !ok {
			continue
		}
		plan, err := rtr.Plan(tickCtx, opp)
		if err != nil {
			a.logger.WarnContext(ctx, "funding plan failed",
				slog.String("borrower", opp.Borrower()),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.InfoContext(ctx, "liquidation candidate",
			slog.String("borrower", opp.Borrower()),
			slog.Float64("health", acct.Health),
			slog.String("repay_market", opp.Repay.MarketAddress()),
			slog.String("seize_market", opp.Seize.MarketAddress()),
			slog.String("repay_amount", plan.RepayAmount.String()),
			slog.String("borrow_amount", plan.BorrowAmount.String()),
			slog.Bool("direct", plan.Direct()),
		)
	}
}

// ArchiveMode performs a one-shot export of the attempt journal to object
// storage and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.BlobWriter == nil || deps.AttemptStore == nil {
		return fmt.Errorf("app: archive mode requires postgres and s3 to be enabled")
	}

	archiver := s3blob.NewArchiver(deps.AttemptStore, deps.BlobWriter, a.logger)
	since := time.Now().Add(-a.cfg.S3.ArchiveInterval.Duration)
	n, err := archiver.ArchiveSince(ctx, since)
	if err != nil {
		return fmt.Errorf("app: archive attempts: %w", err)
	}

	a.logger.InfoContext(ctx, "archive complete", slog.Int("attempts", n))
	return nil
}
