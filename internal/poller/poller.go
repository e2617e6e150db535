// Package poller implements the fixed-interval scan loop. Each tick pulls a
// fresh snapshot of underwater accounts and feeds them through the
// selector/router/coordinator pipeline until the first submitted outcome.
package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/0xnivek/joe-liquidator/internal/coordinator"
	"github.com/0xnivek/joe-liquidator/internal/domain"
	"github.com/0xnivek/joe-liquidator/internal/selector"
)

// Poller schedules scan cycles. Ticks are strictly sequential: a busy guard
// skips a tick while the previous one is still evaluating, so two submissions
// are never in flight at once and no partial state crosses tick boundaries.
type Poller struct {
	source   domain.AccountSource
	selector *selector.Selector
	coord    *coordinator.Coordinator
	cooldown domain.CooldownCache // optional

	interval    time.Duration
	tickTimeout time.Duration
	logger      *slog.Logger

	busy atomic.Bool
}

// New creates a Poller. interval is the tick period; tickTimeout bounds a
// single cycle, after which the current account is abandoned and the next
// tick resumes at the normal cadence.
func New(
	source domain.AccountSource,
	sel *selector.Selector,
	coord *coordinator.Coordinator,
	cooldown domain.CooldownCache,
	interval, tickTimeout time.Duration,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		source:      source,
		selector:    sel,
		coord:       coord,
		cooldown:    cooldown,
		interval:    interval,
		tickTimeout: tickTimeout,
		logger:      logger.With(slog.String("component", "poller")),
	}
}

// Run executes the scan loop until ctx is cancelled. The first tick runs
// immediately; subsequent ticks follow the configured interval.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		slog.Duration("interval", p.interval),
		slog.Duration("tick_timeout", p.tickTimeout),
	)
	defer p.logger.Info("poller stopped")

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one scan cycle. Every error is contained here: a data-source
// failure skips the cycle, a per-account failure moves on to the next
// account, and nothing leaks into the next cycle's state.
func (p *Poller) tick(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.logger.Warn("previous cycle still running, skipping tick")
		return
	}
	defer p.busy.Store(false)

	tickCtx, cancel := context.WithTimeout(ctx, p.tickTimeout)
	defer cancel()

	accounts, err := p.source.FetchUnderwaterAccounts(tickCtx)
	if err != nil {
		p.logger.Warn("account snapshot failed, skipping cycle",
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.Debug("scanning accounts", slog.Int("count", len(accounts)))

	for _, acct := range accounts {
		if tickCtx.Err() != nil {
			p.logger.Warn("cycle timed out, abandoning remaining accounts")
			return
		}
		if !acct.IsLiquidatable() {
			continue
		}
		if p.inCooldown(tickCtx, acct.Address) {
			p.logger.Debug("borrower in cooldown, skipping",
				slog.String("borrower", acct.Address),
			)
			continue
		}

		opp, ok := p.selector.Select(acct)
		if !ok {
			continue
		}

		p.logger.Info("liquidation opportunity found",
			slog.String("borrower", acct.Address),
			slog.Float64("health", acct.Health),
			slog.String("repay", opp.Repay.Market.Symbol),
			slog.String("seize", opp.Seize.Market.Symbol),
		)

		res := p.coord.Execute(tickCtx, opp)
		if res.State.Submitted() {
			// At most one submission per tick; skipped attempts keep
			// scanning the rest of the batch.
			return
		}
	}

	p.logger.Debug("cycle complete, no liquidation submitted")
}

func (p *Poller) inCooldown(ctx context.Context, borrower string) bool {
	if p.cooldown == nil {
		return false
	}
	held, err := p.cooldown.InCooldown(ctx, borrower)
	if err != nil {
		p.logger.Warn("cooldown lookup failed",
			slog.String("borrower", borrower),
			slog.String("error", err.Error()),
		)
		return false
	}
	return held
}
