package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

var (
	usdc = domain.Asset{Symbol: "USDC", Address: "0xusdc", Decimals: 6}
	usdt = domain.Asset{Symbol: "USDT", Address: "0xusdt", Decimals: 6}
)

// fakeQuoter returns a canned amount or error and records invocations.
type fakeQuoter struct {
	amount *big.Int
	err    error
	calls  int
}

func (q *fakeQuoter) QuoteInputForExactOutput(_ context.Context, _, _ domain.Asset, _ *big.Int) (*big.Int, error) {
	q.calls++
	return q.amount, q.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func oppWithRepay(m domain.Market, borrow float64) *domain.LiquidationOpportunity {
	return &domain.LiquidationOpportunity{
		Account: domain.Account{Address: "0xborrower"},
		Repay: domain.Position{
			ID:            "0xjrepay-0xborrower",
			Market:        m,
			BorrowBalance: borrow,
		},
		Seize: domain.Position{ID: "0xjseize-0xborrower"},
	}
}

func TestPlan_DirectWhenRepayIsFundingAsset(t *testing.T) {
	q := &fakeQuoter{}
	r := New(q, usdc, testLogger())

	m := domain.Market{
		Symbol:             "jUSDC",
		UnderlyingSymbol:   usdc.Symbol,
		UnderlyingAddress:  usdc.Address,
		UnderlyingDecimals: usdc.Decimals,
	}
	plan, err := r.Plan(context.Background(), oppWithRepay(m, 1000))
	require.NoError(t, err)

	assert.True(t, plan.Direct())
	assert.Equal(t, 0, plan.RepayAmount.Cmp(big.NewInt(1_000_000_000)))
	assert.Equal(t, 0, plan.BorrowAmount.Cmp(plan.RepayAmount))
	assert.Zero(t, q.calls, "direct plans must not hit the swap venue")
}

func TestPlan_SwapPathWhenAssetsDiffer(t *testing.T) {
	q := &fakeQuoter{amount: big.NewInt(1_005_000_000)}
	r := New(q, usdc, testLogger())

	m := domain.Market{
		Symbol:             "jUSDT",
		UnderlyingSymbol:   usdt.Symbol,
		UnderlyingAddress:  usdt.Address,
		UnderlyingDecimals: usdt.Decimals,
	}
	plan, err := r.Plan(context.Background(), oppWithRepay(m, 1000))
	require.NoError(t, err)

	assert.False(t, plan.Direct())
	require.Len(t, plan.Path, 2)
	assert.Equal(t, usdc, plan.Path[0])
	assert.True(t, usdt.Is(plan.Path[1]))
	assert.Equal(t, 0, plan.BorrowAmount.Cmp(big.NewInt(1_005_000_000)))
	assert.Equal(t, 0, plan.RepayAmount.Cmp(big.NewInt(1_000_000_000)))
	assert.Equal(t, 1, q.calls)
}

func TestPlan_SizesRepayFromExactDecimalString(t *testing.T) {
	q := &fakeQuoter{}
	dai := domain.Asset{Symbol: "DAI", Address: "0xdai", Decimals: 18}
	r := New(q, dai, testLogger())

	// 0.3 DAI cannot be represented exactly in float64; sizing must come from
	// the decimal string so the repay is neither under- nor over-funded.
	opp := oppWithRepay(domain.Market{
		Symbol:             "jDAI",
		UnderlyingSymbol:   dai.Symbol,
		UnderlyingAddress:  dai.Address,
		UnderlyingDecimals: dai.Decimals,
	}, 0.3)
	opp.Repay.BorrowBalanceRaw = "0.3"

	plan, err := r.Plan(context.Background(), opp)
	require.NoError(t, err)

	want, _ := new(big.Int).SetString("300000000000000000", 10)
	assert.Equal(t, 0, plan.RepayAmount.Cmp(want))
}

func TestPlan_NoRoute(t *testing.T) {
	q := &fakeQuoter{err: domain.ErrNoRoute}
	r := New(q, usdc, testLogger())

	m := domain.Market{
		Symbol:             "jXYZ",
		UnderlyingSymbol:   "XYZ",
		UnderlyingAddress:  "0xxyz",
		UnderlyingDecimals: 18,
	}
	_, err := r.Plan(context.Background(), oppWithRepay(m, 10))
	assert.True(t, errors.Is(err, domain.ErrNoRoute))
}

func TestPlan_NonPositiveQuoteRejected(t *testing.T) {
	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		q := &fakeQuoter{amount: amount}
		r := New(q, usdc, testLogger())

		m := domain.Market{
			Symbol:             "jUSDT",
			UnderlyingSymbol:   usdt.Symbol,
			UnderlyingAddress:  usdt.Address,
			UnderlyingDecimals: usdt.Decimals,
		}
		_, err := r.Plan(context.Background(), oppWithRepay(m, 10))
		assert.True(t, errors.Is(err, domain.ErrBadQuote))
	}
}

func TestPlan_ZeroBorrowBalance(t *testing.T) {
	q := &fakeQuoter{}
	r := New(q, usdc, testLogger())

	m := domain.Market{
		Symbol:             "jUSDT",
		UnderlyingSymbol:   usdt.Symbol,
		UnderlyingAddress:  usdt.Address,
		UnderlyingDecimals: usdt.Decimals,
	}
	_, err := r.Plan(context.Background(), oppWithRepay(m, 0))
	require.Error(t, err)
	assert.Zero(t, q.calls)
}
