// Package dex implements domain.SwapQuoter against a UniswapV2-style router
// contract. Only the read-side getAmountsIn quote is used; the swap itself is
// executed inside the liquidator contract.
package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// routerABIJSON covers the single router method the quoter needs.
const routerABIJSON = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsIn",
		"outputs": [
			{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Quoter prices exact-output swaps through the on-chain router.
type Quoter struct {
	contract *bind.BoundContract
	router   common.Address
}

// NewQuoter binds the router contract at routerAddr using the given node
// client.
func NewQuoter(client *ethclient.Client, routerAddr common.Address) (*Quoter, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("dex: parse router abi: %w", err)
	}
	return &Quoter{
		contract: bind.NewBoundContract(routerAddr, parsed, client, client, client),
		router:   routerAddr,
	}, nil
}

// QuoteInputForExactOutput returns the assetIn amount the router requires to
// produce amountOut of assetOut along the direct [assetIn, assetOut] path.
// getAmountsIn already rounds the required input up, so the quoted amount
// always covers the output in full.
//
// A router revert on the pair (no pool, or not enough liquidity for the
// requested output) is reported as domain.ErrNoRoute rather than an opaque
// call error.
func (q *Quoter) QuoteInputForExactOutput(ctx context.Context, assetIn, assetOut domain.Asset, amountOut *big.Int) (*big.Int, error) {
	if assetIn.Is(assetOut) {
		return new(big.Int).Set(amountOut), nil
	}

	path := []common.Address{
		common.HexToAddress(assetIn.Address),
		common.HexToAddress(assetOut.Address),
	}

	var out []any
	err := q.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountsIn", amountOut, path)
	if err != nil {
		if isNoRouteRevert(err) {
			return nil, fmt.Errorf("dex: %s -> %s: %w", assetIn.Symbol, assetOut.Symbol, domain.ErrNoRoute)
		}
		return nil, fmt.Errorf("dex: getAmountsIn %s -> %s: %w", assetIn.Symbol, assetOut.Symbol, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("dex: empty getAmountsIn result for %s -> %s", assetIn.Symbol, assetOut.Symbol)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("dex: unexpected getAmountsIn result for %s -> %s", assetIn.Symbol, assetOut.Symbol)
	}

	required := amounts[0]
	if required == nil || required.Sign() <= 0 {
		return nil, fmt.Errorf("dex: %s -> %s: %w", assetIn.Symbol, assetOut.Symbol, domain.ErrBadQuote)
	}
	return required, nil
}

// isNoRouteRevert matches the router's revert strings for a missing or
// illiquid pair.
func isNoRouteRevert(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "INSUFFICIENT_LIQUIDITY") ||
		strings.Contains(msg, "INVALID_PATH") ||
		strings.Contains(msg, "execution reverted")
}

// Compile-time interface check.
var _ domain.SwapQuoter = (*Quoter)(nil)
