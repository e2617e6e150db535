package domain

import (
	"math/big"
	"time"
)

// ExecutionState enumerates the coordinator's states. Idle, Planning,
// Submitting, and AwaitingSettlement are transient; the rest are terminal
// and returned as the outcome of an attempt.
type ExecutionState string

const (
	StateIdle               ExecutionState = "idle"
	StatePlanning           ExecutionState = "planning"
	StateSubmitting         ExecutionState = "submitting"
	StateAwaitingSettlement ExecutionState = "awaiting_settlement"
	StateSucceeded          ExecutionState = "succeeded"
	StateReverted           ExecutionState = "reverted"
	StateTimedOut           ExecutionState = "timed_out"
	StateSkipped            ExecutionState = "skipped"
)

// Terminal reports whether the state ends an attempt.
func (s ExecutionState) Terminal() bool {
	switch s {
	case StateSucceeded, StateReverted, StateTimedOut, StateSkipped:
		return true
	}
	return false
}

// Submitted reports whether the outcome implies a transaction left the
// process. The polling driver stops the tick after any submitted outcome so
// at most one liquidation is attempted per cycle.
func (s ExecutionState) Submitted() bool {
	switch s {
	case StateSucceeded, StateReverted, StateTimedOut:
		return true
	}
	return false
}

// Settlement is the observed on-chain result of a liquidation transaction.
type Settlement struct {
	TxHash       string
	RepaidAmount *big.Int
	ProfitUSD    float64
}

// ExecutionResult is the terminal record of one liquidation attempt. It is
// journaled and reported, never retried in place; a fresh opportunity is
// recomputed from fresh state on the next cycle.
type ExecutionResult struct {
	ID          string
	Borrower    string
	RepayMarket string
	SeizeMarket string
	RepaySymbol string
	SeizeSymbol string

	State        ExecutionState
	RepaidAmount *big.Int
	ProfitUSD    float64
	TxHash       string

	// Reason carries the revert or skip cause for non-succeeded outcomes.
	Reason string

	StartedAt   time.Time
	CompletedAt time.Time
}
