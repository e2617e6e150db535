// Package selector implements opportunity detection: turning an account
// snapshot into a repay/seize position pair that satisfies the protocol's
// close-factor bound.
package selector

import (
	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// Selector finds liquidation opportunities within a single account snapshot.
// It applies a first-match policy: positions are scanned in snapshot order
// and the first valid repay/seize pair wins. It does not search for the most
// profitable pair.
type Selector struct {
	closeFactor float64
}

// New creates a Selector with the given close factor, the maximum fraction of
// a borrow position repayable in one liquidation (0.5 for Compound-style
// protocols).
func New(closeFactor float64) *Selector {
	return &Selector{closeFactor: closeFactor}
}

// Select returns the first repay/seize pair for the account, or false when no
// valid pair exists. It is a pure function over the snapshot.
//
// A repay candidate is any position with positive borrow value. A matching
// seize position must be a different position, have been entered as
// collateral, and hold supply value of at least closeFactor times the repay
// candidate's borrow value, so the seize covers the maximum repayable debt.
func (s *Selector) Select(acct domain.Account) (*domain.LiquidationOpportunity, bool) {
	for _, repay := range acct.Positions {
		borrowValue := repay.BorrowValueUSD()
		if borrowValue <= 0 {
			continue
		}

		seize, ok := s.findSeize(acct.Positions, repay, borrowValue)
		if !ok {
			continue
		}

		return &domain.LiquidationOpportunity{
			Account: acct,
			Repay:   repay,
			Seize:   seize,
		}, true
	}
	return nil, false
}

// findSeize scans for the first position that can be seized against the given
// repay candidate.
func (s *Selector) findSeize(positions []domain.Position, repay domain.Position, borrowValue float64) (domain.Position, bool) {
	for _, p := range positions {
		if !p.EnteredAsCollateral || p.ID == repay.ID {
			continue
		}
		if p.SupplyValueUSD() >= s.closeFactor*borrowValue {
			return p, true
		}
	}
	return domain.Position{}, false
}
