// Package chain implements domain.Liquidator against the deployed liquidator
// contract. It owns the transaction hand-off and settlement observation; gas
// pricing and nonce management are left to the node via go-ethereum defaults.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// liquidatorABIJSON covers the liquidate entry point and the settlement event
// the contract emits on a completed liquidation.
const liquidatorABIJSON = `[
	{
		"inputs": [
			{"internalType": "address", "name": "borrowerToLiquidate", "type": "address"},
			{"internalType": "address", "name": "jRepayToken", "type": "address"},
			{"internalType": "address", "name": "jSeizeToken", "type": "address"}
		],
		"name": "liquidate",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "borrower", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "jRepayToken", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "jSeizeToken", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "repaidAmount", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "profit", "type": "uint256"}
		],
		"name": "LiquidationEvent",
		"type": "event"
	}
]`

// defaultReceiptInterval is how often the settlement wait polls for a receipt.
const defaultReceiptInterval = 3 * time.Second

// liquidationEvent mirrors the LiquidationEvent log payload.
type liquidationEvent struct {
	Borrower     common.Address
	JRepayToken  common.Address
	JSeizeToken  common.Address
	RepaidAmount *big.Int
	Profit       *big.Int
}

// Client submits liquidations through the liquidator contract and observes
// their settlement.
type Client struct {
	eth             *ethclient.Client
	contract        *bind.BoundContract
	contractABI     abi.ABI
	contractAddr    common.Address
	auth            *bind.TransactOpts
	funding         domain.Asset
	receiptInterval time.Duration
}

// New binds the liquidator contract and prepares the signing identity. The
// funding asset is used to denominate the reported profit.
func New(eth *ethclient.Client, contractAddr common.Address, key *ecdsa.PrivateKey, chainID int64, funding domain.Asset) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(liquidatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse liquidator abi: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("chain: build transactor: %w", err)
	}

	return &Client{
		eth:             eth,
		contract:        bind.NewBoundContract(contractAddr, parsed, eth, eth, eth),
		contractABI:     parsed,
		contractAddr:    contractAddr,
		auth:            auth,
		funding:         funding,
		receiptInterval: defaultReceiptInterval,
	}, nil
}

// Submit hands the liquidation triple to the contract and returns the
// transaction hash once the node accepts it for inclusion. A node-side
// execution-reverted answer during gas estimation is reported as a
// *domain.RevertError, since the protocol has already rejected the call.
func (c *Client) Submit(ctx context.Context, borrower, repayMarket, seizeMarket string) (string, error) {
	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "liquidate",
		common.HexToAddress(borrower),
		common.HexToAddress(repayMarket),
		common.HexToAddress(seizeMarket),
	)
	if err != nil {
		if strings.Contains(err.Error(), "execution reverted") {
			return "", &domain.RevertError{Reason: err.Error()}
		}
		return "", fmt.Errorf("chain: submit liquidate: %w", err)
	}

	return tx.Hash().Hex(), nil
}

// AwaitSettlement polls for the transaction receipt until ctx expires. A
// successful receipt yields the repaid amount and profit from the contract's
// LiquidationEvent log; a failed receipt is a *domain.RevertError; ctx expiry
// maps to domain.ErrSettlementTimeout because the transaction may still land.
func (c *Client) AwaitSettlement(ctx context.Context, txHash string) (domain.Settlement, error) {
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(c.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			return c.settle(receipt, txHash)
		case errors.Is(err, ethereum.NotFound):
			// Not mined yet; keep polling.
		case ctx.Err() != nil:
			return domain.Settlement{}, domain.ErrSettlementTimeout
		default:
			return domain.Settlement{}, fmt.Errorf("chain: fetch receipt %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return domain.Settlement{}, domain.ErrSettlementTimeout
		case <-ticker.C:
		}
	}
}

// settle classifies a mined receipt.
func (c *Client) settle(receipt *types.Receipt, txHash string) (domain.Settlement, error) {
	if receipt.Status == types.ReceiptStatusFailed {
		return domain.Settlement{}, &domain.RevertError{Reason: "liquidation rejected on-chain"}
	}

	settlement := domain.Settlement{
		TxHash:       txHash,
		RepaidAmount: big.NewInt(0),
	}

	for _, logEntry := range receipt.Logs {
		if logEntry.Address != c.contractAddr {
			continue
		}
		var ev liquidationEvent
		if err := c.contract.UnpackLog(&ev, "LiquidationEvent", *logEntry); err != nil {
			continue
		}
		settlement.RepaidAmount = ev.RepaidAmount
		settlement.ProfitUSD = baseUnitsToDecimal(ev.Profit, c.funding.Decimals)
		break
	}

	return settlement, nil
}

// baseUnitsToDecimal converts integer base units to a decimal amount. The
// funding asset is a USD stable, so the result doubles as a USD figure.
func baseUnitsToDecimal(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f.Quo(f, new(big.Float).SetInt(scale))
	out, _ := f.Float64()
	return out
}

// Compile-time interface check.
var _ domain.Liquidator = (*Client)(nil)
