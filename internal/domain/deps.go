package domain

import (
	"context"
	"io"
	"math/big"
	"time"
)

// AccountSource is the read-only index of protocol accounts. Implementations
// query an external indexer and return a fresh snapshot of underwater
// accounts (0 < health < 1, positive borrow value) in the indexer's order.
type AccountSource interface {
	FetchUnderwaterAccounts(ctx context.Context) ([]Account, error)
}

// SwapQuoter prices the reverse direction on the swap venue: given a desired
// output amount of assetOut, it returns the required input amount of assetIn
// along the shortest available path. It returns ErrNoRoute when the venue has
// no path between the two assets.
type SwapQuoter interface {
	QuoteInputForExactOutput(ctx context.Context, assetIn, assetOut Asset, amountOut *big.Int) (*big.Int, error)
}

// Liquidator is the on-chain liquidation-execution capability. Submit hands
// the (borrower, repay market, seize market) triple to the liquidator
// contract and returns once the transaction is accepted for inclusion.
// AwaitSettlement blocks until the transaction settles or ctx expires,
// returning a *RevertError on protocol rejection and ErrSettlementTimeout
// when no settlement is observed in time.
type Liquidator interface {
	Submit(ctx context.Context, borrower, repayMarket, seizeMarket string) (txHash string, err error)
	AwaitSettlement(ctx context.Context, txHash string) (Settlement, error)
}

// AttemptStore journals terminal execution results.
type AttemptStore interface {
	Insert(ctx context.Context, res ExecutionResult) error
	ListSince(ctx context.Context, since time.Time) ([]ExecutionResult, error)
}

// CooldownCache damps re-attempts against a borrower whose previous attempt
// may still be pending on-chain.
type CooldownCache interface {
	MarkAttempt(ctx context.Context, borrower string, ttl time.Duration) error
	InCooldown(ctx context.Context, borrower string) (bool, error)
}

// LockManager provides a process-exclusion lock around the shared signing
// identity, so two agent instances never submit concurrently.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter uploads a single object to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
