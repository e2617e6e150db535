// Package coordinator drives a single liquidation attempt through its state
// machine: Idle -> Planning -> Submitting -> AwaitingSettlement -> terminal.
// Submission is the only irreversible step in the pipeline; the coordinator
// guarantees it is never attempted twice concurrently for the same borrower.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0xnivek/joe-liquidator/internal/domain"
	"github.com/0xnivek/joe-liquidator/internal/notify"
	"github.com/0xnivek/joe-liquidator/internal/router"
)

// Coordinator executes liquidation opportunities. Terminal results are
// journaled through the attempt store and flagged in the cooldown cache; both
// are optional and failures there never fail the attempt itself.
type Coordinator struct {
	router   *router.Router
	liq      domain.Liquidator
	attempts domain.AttemptStore   // optional
	cooldown domain.CooldownCache  // optional
	notifier *notify.Notifier      // optional

	settlementTimeout time.Duration
	cooldownTTL       time.Duration
	logger            *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool // borrower address -> submission in progress
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

// WithAttemptStore journals every terminal result.
func WithAttemptStore(s domain.AttemptStore) Option {
	return func(c *Coordinator) { c.attempts = s }
}

// WithCooldown marks attempted borrowers so the next cycles skip them for ttl.
func WithCooldown(cc domain.CooldownCache, ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.cooldown = cc
		c.cooldownTTL = ttl
	}
}

// WithNotifier sends operator alerts for succeeded and timed-out attempts.
func WithNotifier(n *notify.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// New creates a Coordinator. settlementTimeout bounds the wait between
// transaction hand-off and observed settlement.
func New(r *router.Router, liq domain.Liquidator, settlementTimeout time.Duration, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		router:            r,
		liq:               liq,
		settlementTimeout: settlementTimeout,
		logger:            logger.With(slog.String("component", "coordinator")),
		inFlight:          make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs one opportunity to a terminal state and returns the result.
// It never retries within the cycle: a router failure skips the opportunity,
// a revert is final, and a timed-out settlement is left to the operator since
// the pending transaction may still land.
func (c *Coordinator) Execute(ctx context.Context, opp *domain.LiquidationOpportunity) domain.ExecutionResult {
	res := domain.ExecutionResult{
		ID:          uuid.New().String(),
		Borrower:    opp.Borrower(),
		RepayMarket: opp.Repay.MarketAddress(),
		SeizeMarket: opp.Seize.MarketAddress(),
		RepaySymbol: opp.Repay.Market.Symbol,
		SeizeSymbol: opp.Seize.Market.Symbol,
		StartedAt:   time.Now().UTC(),
	}

	log := c.logger.With(
		slog.String("attempt_id", res.ID),
		slog.String("borrower", res.Borrower),
		slog.String("repay", res.RepaySymbol),
		slog.String("seize", res.SeizeSymbol),
	)

	c.transition(log, domain.StateIdle, domain.StatePlanning)

	plan, err := c.router.Plan(ctx, opp)
	if err != nil {
		// Routing failure abandons the opportunity for this cycle only.
		res.State = domain.StateSkipped
		res.Reason = err.Error()
		log.Warn("funding plan failed, skipping opportunity", slog.String("error", err.Error()))
		return c.finish(ctx, log, res)
	}

	if !c.beginSubmission(res.Borrower) {
		res.State = domain.StateSkipped
		res.Reason = "submission already in flight for borrower"
		log.Warn("duplicate submission blocked")
		return c.finish(ctx, log, res)
	}
	defer c.endSubmission(res.Borrower)

	c.transition(log, domain.StatePlanning, domain.StateSubmitting)
	log.Info("submitting liquidation",
		slog.String("funding_asset", plan.FundingAsset.Symbol),
		slog.String("borrow_amount", plan.BorrowAmount.String()),
		slog.Bool("direct", plan.Direct()),
	)

	txHash, err := c.liq.Submit(ctx, res.Borrower, res.RepayMarket, res.SeizeMarket)
	if err != nil {
		var revert *domain.RevertError
		if errors.As(err, &revert) {
			res.State = domain.StateReverted
			res.Reason = revert.Reason
			log.Warn("liquidation rejected at submission", slog.String("reason", revert.Reason))
		} else {
			res.State = domain.StateSkipped
			res.Reason = err.Error()
			log.Warn("submission hand-off failed", slog.String("error", err.Error()))
		}
		return c.finish(ctx, log, res)
	}
	res.TxHash = txHash

	c.transition(log, domain.StateSubmitting, domain.StateAwaitingSettlement)

	waitCtx, cancel := context.WithTimeout(ctx, c.settlementTimeout)
	defer cancel()

	settlement, err := c.liq.AwaitSettlement(waitCtx, txHash)
	switch {
	case err == nil && settlement.RepaidAmount != nil && settlement.RepaidAmount.Sign() > 0:
		res.State = domain.StateSucceeded
		res.RepaidAmount = settlement.RepaidAmount
		res.ProfitUSD = settlement.ProfitUSD
		log.Info("liquidation succeeded",
			slog.String("tx", txHash),
			slog.String("repaid", settlement.RepaidAmount.String()),
			slog.Float64("profit_usd", settlement.ProfitUSD),
		)
		c.notify(ctx, "liquidation_succeeded", "Liquidation succeeded",
			"borrower "+res.Borrower+" repaid "+res.RepaidAmount.String()+" "+res.RepaySymbol)

	case err == nil:
		// Settled but repaid nothing; the protocol call was a no-op.
		res.State = domain.StateReverted
		res.Reason = "settled with zero repaid amount"
		res.RepaidAmount = big.NewInt(0)
		log.Warn("liquidation settled without effect", slog.String("tx", txHash))

	default:
		var revert *domain.RevertError
		switch {
		case errors.As(err, &revert):
			res.State = domain.StateReverted
			res.Reason = revert.Reason
			log.Warn("liquidation reverted",
				slog.String("tx", txHash),
				slog.String("reason", revert.Reason),
			)
		case errors.Is(err, domain.ErrSettlementTimeout), errors.Is(err, context.DeadlineExceeded):
			// Indeterminate: the transaction may still land. Not retried
			// automatically; alert the operator instead.
			res.State = domain.StateTimedOut
			res.Reason = "settlement not observed within " + c.settlementTimeout.String()
			log.Error("settlement timed out", slog.String("tx", txHash))
			c.notify(ctx, "settlement_timeout", "Settlement timed out",
				"tx "+txHash+" for borrower "+res.Borrower+" is still pending")
		default:
			res.State = domain.StateTimedOut
			res.Reason = err.Error()
			log.Error("settlement observation failed",
				slog.String("tx", txHash),
				slog.String("error", err.Error()),
			)
		}
	}

	return c.finish(ctx, log, res)
}

// transition logs a state change.
func (c *Coordinator) transition(log *slog.Logger, from, to domain.ExecutionState) {
	log.Debug("state transition",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

// beginSubmission marks the borrower as having a submission in flight. It
// returns false when one already is, which the caller must treat as terminal.
func (c *Coordinator) beginSubmission(borrower string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[borrower] {
		return false
	}
	c.inFlight[borrower] = true
	return true
}

func (c *Coordinator) endSubmission(borrower string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, borrower)
}

// finish stamps the terminal result, journals it, and marks the borrower
// cooldown. Journal and cache failures are logged, never propagated; the
// attempt's outcome stands regardless.
func (c *Coordinator) finish(ctx context.Context, log *slog.Logger, res domain.ExecutionResult) domain.ExecutionResult {
	res.CompletedAt = time.Now().UTC()

	if c.attempts != nil {
		if err := c.attempts.Insert(ctx, res); err != nil {
			log.Warn("attempt journal write failed", slog.String("error", err.Error()))
		}
	}

	if c.cooldown != nil && res.State.Submitted() {
		if err := c.cooldown.MarkAttempt(ctx, res.Borrower, c.cooldownTTL); err != nil {
			log.Warn("cooldown mark failed", slog.String("error", err.Error()))
		}
	}

	return res
}

func (c *Coordinator) notify(ctx context.Context, event, title, message string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, event, title, message); err != nil {
		c.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}
