package domain

// LiquidationOpportunity pairs one position to repay with one position to
// seize for a single underwater account. It is computed once per poll cycle
// and discarded after execution. The seize position always has
// EnteredAsCollateral set and references a different market than the repay
// position.
type LiquidationOpportunity struct {
	Account Account
	Repay   Position
	Seize   Position
}

// Borrower returns the address of the account being liquidated.
func (o LiquidationOpportunity) Borrower() string {
	return o.Account.Address
}
