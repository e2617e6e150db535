// Package domain defines the snapshot model for the liquidation agent: the
// lending markets, borrower accounts, per-market positions, and the derived
// opportunity/plan/result types that flow through the scan pipeline. Every
// type here is rebuilt fresh from the data source on each poll cycle and is
// never mutated in place.
package domain

// Market identifies a lending pool for one underlying asset. A Market value
// is immutable within a snapshot and refreshed on every poll cycle.
type Market struct {
	// Symbol is the protocol's share-token symbol, e.g. "jLINK".
	Symbol string

	// CollateralFactor is the fraction (0-1) of the underlying's value that
	// counts toward borrowing power.
	CollateralFactor float64

	// UnderlyingPriceUSD is the oracle price of one underlying unit.
	UnderlyingPriceUSD float64

	// ExchangeRate converts share tokens to underlying units.
	ExchangeRate float64

	// ReserveFactor is the protocol's cut of accrued interest.
	ReserveFactor float64

	// UnderlyingSymbol and UnderlyingAddress identify the underlying ERC-20.
	UnderlyingSymbol  string
	UnderlyingAddress string

	// UnderlyingDecimals is the underlying token's decimal precision.
	UnderlyingDecimals int
}

// Underlying returns the market's underlying token as an Asset for use in
// swap routing.
func (m Market) Underlying() Asset {
	return Asset{
		Symbol:   m.UnderlyingSymbol,
		Address:  m.UnderlyingAddress,
		Decimals: m.UnderlyingDecimals,
	}
}
