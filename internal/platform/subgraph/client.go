// Package subgraph implements domain.AccountSource against the lending
// protocol's GraphQL subgraph. The subgraph is the read-only index of
// accounts and per-market balances; the agent never writes to it.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/0xnivek/joe-liquidator/internal/domain"
)

// defaultBatchSize caps how many underwater accounts one snapshot fetches.
const defaultBatchSize = 100

// Client is a GraphQL client for the lending subgraph.
type Client struct {
	url        string
	apiKey     string
	batchSize  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a subgraph client for the given endpoint. apiKey may be
// empty for public endpoints.
func NewClient(url, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		url:       url,
		apiKey:    strings.TrimSpace(apiKey),
		batchSize: defaultBatchSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "subgraph")),
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// underwaterAccountsQuery selects accounts with positive debt and a health
// ratio strictly between 0 and 1, with every field the downstream snapshot
// model needs. Numbers arrive as decimal strings and are parsed client-side.
const underwaterAccountsQuery = `
	query UnderwaterAccounts($first: Int!) {
		accounts(
			first: $first
			where: { health_gt: 0, health_lt: 1, totalBorrowValueInUSD_gt: 0 }
		) {
			id
			health
			totalBorrowValueInUSD
			totalCollateralValueInUSD
			tokens {
				id
				enteredMarket
				borrowBalanceUnderlying
				supplyBalanceUnderlying
				market {
					symbol
					collateralFactor
					underlyingPriceUSD
					exchangeRate
					reserveFactor
					underlyingSymbol
					underlyingAddress
					underlyingDecimals
				}
			}
		}
	}
`

// FetchUnderwaterAccounts returns a fresh snapshot of liquidatable accounts
// in the subgraph's order.
func (c *Client) FetchUnderwaterAccounts(ctx context.Context) ([]domain.Account, error) {
	variables := map[string]any{"first": c.batchSize}

	respData, err := c.doQuery(ctx, underwaterAccountsQuery, variables)
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch underwater accounts: %w", err)
	}

	var result struct {
		Accounts []struct {
			ID                        string `json:"id"`
			Health                    string `json:"health"`
			TotalBorrowValueInUSD     string `json:"totalBorrowValueInUSD"`
			TotalCollateralValueInUSD string `json:"totalCollateralValueInUSD"`
			Tokens                    []struct {
				ID                      string `json:"id"`
				EnteredMarket           bool   `json:"enteredMarket"`
				BorrowBalanceUnderlying string `json:"borrowBalanceUnderlying"`
				SupplyBalanceUnderlying string `json:"supplyBalanceUnderlying"`
				Market                  struct {
					Symbol             string `json:"symbol"`
					CollateralFactor   string `json:"collateralFactor"`
					UnderlyingPriceUSD string `json:"underlyingPriceUSD"`
					ExchangeRate       string `json:"exchangeRate"`
					ReserveFactor      string `json:"reserveFactor"`
					UnderlyingSymbol   string `json:"underlyingSymbol"`
					UnderlyingAddress  string `json:"underlyingAddress"`
					UnderlyingDecimals int    `json:"underlyingDecimals"`
				} `json:"market"`
			} `json:"tokens"`
		} `json:"accounts"`
	}

	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("subgraph: decode accounts: %w", err)
	}

	// Malformed numeric fields map to zero, which drops the affected account
	// from consideration; count them so the degradation is visible.
	var malformed int
	parse := func(s string) float64 {
		f, ok := parseDecimal(s)
		if !ok {
			malformed++
		}
		return f
	}

	accounts := make([]domain.Account, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		acct := domain.Account{
			Address:                 a.ID,
			Health:                  parse(a.Health),
			TotalBorrowValueUSD:     parse(a.TotalBorrowValueInUSD),
			TotalCollateralValueUSD: parse(a.TotalCollateralValueInUSD),
			Positions:               make([]domain.Position, 0, len(a.Tokens)),
		}

		for _, t := range a.Tokens {
			acct.Positions = append(acct.Positions, domain.Position{
				ID: t.ID,
				Market: domain.Market{
					Symbol:             t.Market.Symbol,
					CollateralFactor:   parse(t.Market.CollateralFactor),
					UnderlyingPriceUSD: parse(t.Market.UnderlyingPriceUSD),
					ExchangeRate:       parse(t.Market.ExchangeRate),
					ReserveFactor:      parse(t.Market.ReserveFactor),
					UnderlyingSymbol:   t.Market.UnderlyingSymbol,
					UnderlyingAddress:  t.Market.UnderlyingAddress,
					UnderlyingDecimals: t.Market.UnderlyingDecimals,
				},
				BorrowBalance:       parse(t.BorrowBalanceUnderlying),
				BorrowBalanceRaw:    t.BorrowBalanceUnderlying,
				SupplyBalance:       parse(t.SupplyBalanceUnderlying),
				EnteredAsCollateral: t.EnteredMarket,
			})
		}

		accounts = append(accounts, acct)
	}

	if malformed > 0 {
		c.logger.Warn("snapshot contained malformed decimal fields",
			slog.Int("fields", malformed),
			slog.Int("accounts", len(accounts)),
		)
	}

	return accounts, nil
}

// parseDecimal converts the subgraph's decimal strings to float64, reporting
// whether the input parsed. Precision below the smallest currency unit is
// tolerated; the thresholds downstream only need directional correctness.
func parseDecimal(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// doQuery executes a GraphQL query and returns the raw "data" field.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}

// Compile-time interface check.
var _ domain.AccountSource = (*Client)(nil)
