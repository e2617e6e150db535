package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleToBase_WholeAmount(t *testing.T) {
	got := ScaleToBase(1000, 6)
	assert.Equal(t, 0, got.Cmp(big.NewInt(1_000_000_000)))
}

func TestScaleToBase_FractionRoundsUp(t *testing.T) {
	// 0.15 at one decimal is 1.5 base units; under-funding the repay is the
	// failure mode, so the result must round up.
	got := ScaleToBase(0.15, 1)
	assert.Equal(t, 0, got.Cmp(big.NewInt(2)))
}

func TestScaleToBase_ZeroAndNegative(t *testing.T) {
	assert.Equal(t, 0, ScaleToBase(0, 6).Sign())
	assert.Equal(t, 0, ScaleToBase(-5, 6).Sign())
}

func TestScaleToBase_NeverBelowExactValue(t *testing.T) {
	// Whatever the rounding, 1.000001 USDC must scale to at least 1000001.
	got := ScaleToBase(1.000001, 6)
	assert.GreaterOrEqual(t, got.Int64(), int64(1_000_001))
}

func TestScaleDecimalToBase_Exact(t *testing.T) {
	// Values float64 cannot represent exactly must still scale without loss.
	tenth18, _ := new(big.Int).SetString("100000000000000000", 10)
	assert.Equal(t, 0, ScaleDecimalToBase("0.1", 18).Cmp(tenth18))
	assert.Equal(t, 0, ScaleDecimalToBase("1000.5", 6).Cmp(big.NewInt(1_000_500_000)))
}

func TestScaleDecimalToBase_ExcessPrecisionRoundsUp(t *testing.T) {
	got := ScaleDecimalToBase("0.0000001", 6)
	assert.Equal(t, 0, got.Cmp(big.NewInt(1)))
}

func TestScaleDecimalToBase_InvalidAndNegative(t *testing.T) {
	assert.Equal(t, 0, ScaleDecimalToBase("not a number", 6).Sign())
	assert.Equal(t, 0, ScaleDecimalToBase("", 6).Sign())
	assert.Equal(t, 0, ScaleDecimalToBase("-5", 6).Sign())
}

func TestPosition_BorrowBaseUnits(t *testing.T) {
	// 0.3 is not exactly representable in float64; the raw string must win.
	p := Position{
		BorrowBalance:    0.3,
		BorrowBalanceRaw: "0.3",
		Market:           Market{UnderlyingDecimals: 18},
	}
	want, _ := new(big.Int).SetString("300000000000000000", 10)
	assert.Equal(t, 0, p.BorrowBaseUnits().Cmp(want))

	// Without the raw figure the float balance is the fallback.
	p = Position{
		BorrowBalance: 1000,
		Market:        Market{UnderlyingDecimals: 6},
	}
	assert.Equal(t, 0, p.BorrowBaseUnits().Cmp(big.NewInt(1_000_000_000)))
}

func TestPosition_MarketAddress(t *testing.T) {
	p := Position{ID: "0xmarket-0xborrower"}
	assert.Equal(t, "0xmarket", p.MarketAddress())

	// Malformed IDs fall back to the whole string.
	p = Position{ID: "0xnodash"}
	assert.Equal(t, "0xnodash", p.MarketAddress())
}

func TestPosition_USDValues(t *testing.T) {
	p := Position{
		Market:        Market{UnderlyingPriceUSD: 15},
		BorrowBalance: 0,
		SupplyBalance: 100,
	}
	assert.Equal(t, 0.0, p.BorrowValueUSD())
	assert.InDelta(t, 1500.0, p.SupplyValueUSD(), 1e-9)
}

func TestAccount_IsLiquidatable(t *testing.T) {
	cases := []struct {
		name   string
		health float64
		borrow float64
		want   bool
	}{
		{"underwater", 0.8, 1000, true},
		{"healthy", 1.2, 1000, false},
		{"exactly one", 1.0, 1000, false},
		{"no debt", 0, 0, false},
		{"underwater but zero borrow", 0.5, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Account{Health: tc.health, TotalBorrowValueUSD: tc.borrow}
			assert.Equal(t, tc.want, a.IsLiquidatable())
		})
	}
}

func TestAsset_Is(t *testing.T) {
	usdc := Asset{Symbol: "USDC", Address: "0xAbC1", Decimals: 6}

	assert.True(t, usdc.Is(Asset{Symbol: "anything", Address: "0xabc1"}))
	assert.False(t, usdc.Is(Asset{Symbol: "USDC", Address: "0xdef2"}))

	// Without addresses the symbol decides.
	assert.True(t, Asset{Symbol: "USDT"}.Is(Asset{Symbol: "USDT"}))
	assert.False(t, Asset{Symbol: "USDT"}.Is(Asset{Symbol: "DAI"}))
}

func TestFundingPlan_Direct(t *testing.T) {
	assert.True(t, FundingPlan{}.Direct())
	assert.False(t, FundingPlan{Path: []Asset{{Symbol: "A"}, {Symbol: "B"}}}.Direct())
}

func TestExecutionState_TerminalAndSubmitted(t *testing.T) {
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateAwaitingSettlement.Terminal())

	for _, s := range []ExecutionState{StateSucceeded, StateReverted, StateTimedOut, StateSkipped} {
		assert.True(t, s.Terminal(), string(s))
	}

	// Skipped never put a transaction on the wire.
	assert.True(t, StateSucceeded.Submitted())
	assert.True(t, StateReverted.Submitted())
	assert.True(t, StateTimedOut.Submitted())
	assert.False(t, StateSkipped.Submitted())
}

func TestMarket_Underlying(t *testing.T) {
	m := Market{
		Symbol:             "jLINK",
		UnderlyingSymbol:   "LINK",
		UnderlyingAddress:  "0xlink",
		UnderlyingDecimals: 18,
	}
	got := m.Underlying()
	assert.Equal(t, Asset{Symbol: "LINK", Address: "0xlink", Decimals: 18}, got)
}
