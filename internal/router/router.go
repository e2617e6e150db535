// Package router implements capital sizing: given a selected opportunity it
// determines how much of the configured funding asset must be flash-borrowed,
// and through which swap path, to fully cover the repay amount.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// Router plans the funding leg of a liquidation. All amounts are integer base
// units scaled by each asset's decimals; arithmetic never mixes raw integers
// of different precision.
type Router struct {
	quoter  domain.SwapQuoter
	funding domain.Asset
	logger  *slog.Logger
}

// New creates a Router that funds liquidations with the given asset and
// prices swaps through quoter.
func New(quoter domain.SwapQuoter, funding domain.Asset, logger *slog.Logger) *Router {
	return &Router{
		quoter:  quoter,
		funding: funding,
		logger:  logger.With(slog.String("component", "router")),
	}
}

// Plan computes the funding plan for an opportunity. The repay amount is the
// full outstanding borrow, scaled to base units from the data source's exact
// decimal figure; under-funding the repay call is the failure mode to avoid,
// so every rounding in the plan is toward more input.
//
// When the repay asset is the funding asset the plan degenerates to a direct
// amount with no swap. Otherwise the swap venue is asked for the required
// input along the [funding, repay] path; a venue no-route answer surfaces as
// domain.ErrNoRoute.
func (r *Router) Plan(ctx context.Context, opp *domain.LiquidationOpportunity) (*domain.FundingPlan, error) {
	repayAsset := opp.Repay.Market.Underlying()
	repayAmount := opp.Repay.BorrowBaseUnits()
	if repayAmount.Sign() <= 0 {
		return nil, fmt.Errorf("router: repay amount for %s is not positive", repayAsset.Symbol)
	}

	if repayAsset.Is(r.funding) {
		r.logger.DebugContext(ctx, "direct funding plan",
			slog.String("asset", repayAsset.Symbol),
			slog.String("amount", repayAmount.String()),
		)
		return &domain.FundingPlan{
			FundingAsset: r.funding,
			BorrowAmount: new(big.Int).Set(repayAmount),
			RepayAmount:  repayAmount,
		}, nil
	}

	required, err := r.quoter.QuoteInputForExactOutput(ctx, r.funding, repayAsset, repayAmount)
	if err != nil {
		return nil, fmt.Errorf("router: quote %s->%s: %w", r.funding.Symbol, repayAsset.Symbol, err)
	}
	if required == nil || required.Sign() <= 0 {
		return nil, fmt.Errorf("router: quote %s->%s: %w", r.funding.Symbol, repayAsset.Symbol, domain.ErrBadQuote)
	}

	r.logger.DebugContext(ctx, "swap funding plan",
		slog.String("funding", r.funding.Symbol),
		slog.String("repay", repayAsset.Symbol),
		slog.String("borrow_amount", required.String()),
		slog.String("repay_amount", repayAmount.String()),
	)

	return &domain.FundingPlan{
		FundingAsset: r.funding,
		BorrowAmount: required,
		Path:         []domain.Asset{r.funding, repayAsset},
		RepayAmount:  repayAmount,
	}, nil
}
