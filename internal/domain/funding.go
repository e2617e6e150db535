package domain

import (
	"math/big"
	"strings"
)

// Asset identifies an ERC-20 token used in swap routing. Amounts of an Asset
// are integer base units scaled by Decimals.
type Asset struct {
	Symbol   string
	Address  string
	Decimals int
}

// Is reports whether two assets are the same token. Addresses are compared
// case-insensitively; when either side has no address (test fixtures), the
// symbol is used instead.
func (a Asset) Is(other Asset) bool {
	if a.Address != "" && other.Address != "" {
		return strings.EqualFold(a.Address, other.Address)
	}
	return a.Symbol == other.Symbol
}

// FundingPlan specifies how the repay capital for a liquidation is acquired:
// the funding asset, the amount of it to flash-borrow, and the swap path that
// converts it into RepayAmount of the repay asset. A direct plan (funding
// asset == repay asset) has an empty Path.
type FundingPlan struct {
	FundingAsset Asset

	// BorrowAmount is the amount of FundingAsset to flash-borrow, in base
	// units, rounded up so the swap output covers RepayAmount in full.
	BorrowAmount *big.Int

	// Path is the swap route from FundingAsset to the repay asset. Empty for
	// a direct plan.
	Path []Asset

	// RepayAmount is the exact repay-asset amount the plan must yield, in
	// base units of the repay asset.
	RepayAmount *big.Int
}

// Direct reports whether the plan needs no swap.
func (p FundingPlan) Direct() bool {
	return len(p.Path) == 0
}

// ScaleDecimalToBase converts a decimal string to integer base units at the
// given precision without a float64 round trip, so a repay sized from the
// data source's own figure is exact. Excess precision rounds up; malformed
// or non-positive input yields zero.
func ScaleDecimalToBase(s string, decimals int) *big.Int {
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() <= 0 {
		return big.NewInt(0)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	q := new(big.Int).Quo(r.Num(), r.Denom())
	if new(big.Int).Mul(q, r.Denom()).Cmp(r.Num()) != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// ScaleToBase converts a decimal amount of underlying units into integer base
// units at the given precision, rounding up so a repay funded from the result
// is never short.
func ScaleToBase(amount float64, decimals int) *big.Int {
	f := new(big.Float).SetFloat64(amount)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f.Mul(f, new(big.Float).SetInt(scale))

	i, acc := f.Int(nil)
	if acc == big.Below {
		i.Add(i, big.NewInt(1))
	}
	if i.Sign() < 0 {
		return big.NewInt(0)
	}
	return i
}
