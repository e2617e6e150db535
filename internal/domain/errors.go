package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNoRoute           = errors.New("no swap route")
	ErrBadQuote          = errors.New("quote amount not positive")
	ErrLockHeld          = errors.New("lock already held")
	ErrSettlementTimeout = errors.New("settlement not observed in time")
)

// RevertError signals that the protocol rejected a submitted liquidation
// (for example the borrower became healthy again before inclusion).
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "transaction reverted"
	}
	return fmt.Sprintf("transaction reverted: %s", e.Reason)
}
