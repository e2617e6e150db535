package domain

import (
	"math/big"
	"strings"
)

// Position is a borrower's stake in one Market. Balances are decimal
// underlying units as reported by the data source; USD values are derived on
// demand from the snapshot's oracle prices.
type Position struct {
	// ID is the data source's position identifier, formatted as
	// "<marketAddress>-<borrowerAddress>".
	ID string

	Market Market

	// BorrowBalance and SupplyBalance are in underlying units.
	BorrowBalance float64
	SupplyBalance float64

	// BorrowBalanceRaw is the data source's decimal string for the borrow
	// balance, kept so base-unit sizing avoids float64 precision loss.
	BorrowBalanceRaw string

	// EnteredAsCollateral reports whether the supply side has been posted
	// as collateral (the protocol's "entered market" membership).
	EnteredAsCollateral bool
}

// MarketAddress extracts the market contract address from the position ID.
func (p Position) MarketAddress() string {
	if i := strings.IndexByte(p.ID, '-'); i >= 0 {
		return p.ID[:i]
	}
	return p.ID
}

// BorrowBaseUnits returns the outstanding borrow scaled to base units of the
// underlying, preferring the source's exact decimal string when present.
func (p Position) BorrowBaseUnits() *big.Int {
	if p.BorrowBalanceRaw != "" {
		return ScaleDecimalToBase(p.BorrowBalanceRaw, p.Market.UnderlyingDecimals)
	}
	return ScaleToBase(p.BorrowBalance, p.Market.UnderlyingDecimals)
}

// BorrowValueUSD is the USD value of the outstanding borrow.
func (p Position) BorrowValueUSD() float64 {
	return p.BorrowBalance * p.Market.UnderlyingPriceUSD
}

// SupplyValueUSD is the USD value of the supplied balance.
func (p Position) SupplyValueUSD() float64 {
	return p.SupplyBalance * p.Market.UnderlyingPriceUSD
}

// Account is a borrower with its per-market positions, ordered as returned
// by the data source.
type Account struct {
	Address string

	// Health is collateral value over borrow value. Strictly between 0 and 1
	// means liquidatable; 0 means no debt (undefined), >= 1 means safe.
	Health float64

	TotalBorrowValueUSD     float64
	TotalCollateralValueUSD float64

	Positions []Position
}

// IsLiquidatable reports whether the account is underwater: positive debt
// with health strictly between 0 and 1.
func (a Account) IsLiquidatable() bool {
	return a.Health > 0 && a.Health < 1 && a.TotalBorrowValueUSD > 0
}
