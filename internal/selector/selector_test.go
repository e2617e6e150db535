package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

func usdtMarket() domain.Market {
	return domain.Market{
		Symbol:             "jUSDT",
		UnderlyingSymbol:   "USDT",
		UnderlyingAddress:  "0xusdt",
		UnderlyingDecimals: 6,
		UnderlyingPriceUSD: 1,
	}
}

func linkMarket() domain.Market {
	return domain.Market{
		Symbol:             "jLINK",
		UnderlyingSymbol:   "LINK",
		UnderlyingAddress:  "0xlink",
		UnderlyingDecimals: 18,
		UnderlyingPriceUSD: 15,
	}
}

func underwaterAccount(positions ...domain.Position) domain.Account {
	return domain.Account{
		Address:             "0xborrower",
		Health:              0.8,
		TotalBorrowValueUSD: 1000,
		Positions:           positions,
	}
}

func TestSelect_PairsBorrowWithCollateral(t *testing.T) {
	acct := underwaterAccount(
		domain.Position{
			ID:            "0xjusdt-0xborrower",
			Market:        usdtMarket(),
			BorrowBalance: 1000,
		},
		domain.Position{
			ID:                  "0xjlink-0xborrower",
			Market:              linkMarket(),
			SupplyBalance:       100, // $1500
			EnteredAsCollateral: true,
		},
	)

	opp, ok := New(0.5).Select(acct)
	require.True(t, ok)
	assert.Equal(t, "jUSDT", opp.Repay.Market.Symbol)
	assert.Equal(t, "jLINK", opp.Seize.Market.Symbol)
	assert.Equal(t, "0xborrower", opp.Borrower())
}

func TestSelect_NoPositions(t *testing.T) {
	_, ok := New(0.5).Select(underwaterAccount())
	assert.False(t, ok)
}

func TestSelect_SinglePositionCannotPairWithItself(t *testing.T) {
	// One market carrying both the borrow and the collateral never pairs.
	acct := underwaterAccount(
		domain.Position{
			ID:                  "0xjusdt-0xborrower",
			Market:              usdtMarket(),
			BorrowBalance:       1000,
			SupplyBalance:       5000,
			EnteredAsCollateral: true,
		},
	)

	_, ok := New(0.5).Select(acct)
	assert.False(t, ok)
}

func TestSelect_CollateralBelowCloseFactorBound(t *testing.T) {
	// Borrow is $100; at close factor 0.5 the seize side must cover $50.
	// $49 of collateral is not enough, $50 is.
	borrow := domain.Position{
		ID:            "0xjusdt-0xborrower",
		Market:        usdtMarket(),
		BorrowBalance: 100,
	}
	collateral := func(usd float64) domain.Position {
		return domain.Position{
			ID:                  "0xjlink-0xborrower",
			Market:              linkMarket(),
			SupplyBalance:       usd / 15,
			EnteredAsCollateral: true,
		}
	}

	_, ok := New(0.5).Select(underwaterAccount(borrow, collateral(49)))
	assert.False(t, ok)

	opp, ok := New(0.5).Select(underwaterAccount(borrow, collateral(51)))
	require.True(t, ok)
	assert.Equal(t, "jLINK", opp.Seize.Market.Symbol)
}

func TestSelect_ExactCloseFactorBoundary(t *testing.T) {
	// Supply worth exactly closeFactor times the borrow value satisfies the
	// bound. Both markets are priced at 1 so the products are float-exact.
	daiMarket := domain.Market{
		Symbol:             "jDAI",
		UnderlyingSymbol:   "DAI",
		UnderlyingAddress:  "0xdai",
		UnderlyingDecimals: 18,
		UnderlyingPriceUSD: 1,
	}
	acct := underwaterAccount(
		domain.Position{
			ID:            "0xjusdt-0xborrower",
			Market:        usdtMarket(),
			BorrowBalance: 100,
		},
		domain.Position{
			ID:                  "0xjdai-0xborrower",
			Market:              daiMarket,
			SupplyBalance:       50,
			EnteredAsCollateral: true,
		},
	)

	opp, ok := New(0.5).Select(acct)
	require.True(t, ok)
	assert.Equal(t, "jDAI", opp.Seize.Market.Symbol)
}

func TestSelect_SupplyNotEnteredAsCollateral(t *testing.T) {
	acct := underwaterAccount(
		domain.Position{
			ID:            "0xjusdt-0xborrower",
			Market:        usdtMarket(),
			BorrowBalance: 100,
		},
		domain.Position{
			ID:                  "0xjlink-0xborrower",
			Market:              linkMarket(),
			SupplyBalance:       1000,
			EnteredAsCollateral: false,
		},
	)

	_, ok := New(0.5).Select(acct)
	assert.False(t, ok)
}

func TestSelect_FirstMatchWins(t *testing.T) {
	// Two valid pairs exist; snapshot order decides, not profitability.
	acct := underwaterAccount(
		domain.Position{
			ID:            "0xjusdt-0xborrower",
			Market:        usdtMarket(),
			BorrowBalance: 100,
		},
		domain.Position{
			ID:                  "0xjlink-0xborrower",
			Market:              linkMarket(),
			SupplyBalance:       10, // $150
			EnteredAsCollateral: true,
		},
		domain.Position{
			ID: "0xjavax-0xborrower",
			Market: domain.Market{
				Symbol:             "jAVAX",
				UnderlyingSymbol:   "AVAX",
				UnderlyingAddress:  "0xavax",
				UnderlyingDecimals: 18,
				UnderlyingPriceUSD: 30,
			},
			SupplyBalance:       1000, // $30000, far richer
			EnteredAsCollateral: true,
		},
	)

	opp, ok := New(0.5).Select(acct)
	require.True(t, ok)
	assert.Equal(t, "jLINK", opp.Seize.Market.Symbol)
}

func TestSelect_SkipsRepayWithoutSeizeThenFindsNextPair(t *testing.T) {
	// The first borrow has no matching collateral; the second does.
	acct := underwaterAccount(
		domain.Position{
			ID:            "0xjbig-0xborrower",
			Market:        domain.Market{Symbol: "jBIG", UnderlyingSymbol: "BIG", UnderlyingAddress: "0xbig", UnderlyingDecimals: 18, UnderlyingPriceUSD: 1},
			BorrowBalance: 1_000_000,
		},
		domain.Position{
			ID:            "0xjusdt-0xborrower",
			Market:        usdtMarket(),
			BorrowBalance: 100,
		},
		domain.Position{
			ID:                  "0xjlink-0xborrower",
			Market:              linkMarket(),
			SupplyBalance:       10, // $150, covers the small borrow only
			EnteredAsCollateral: true,
		},
	)

	opp, ok := New(0.5).Select(acct)
	require.True(t, ok)
	assert.Equal(t, "jUSDT", opp.Repay.Market.Symbol)
	assert.Equal(t, "jLINK", opp.Seize.Market.Symbol)
}
