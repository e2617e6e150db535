package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accountsFixture = `{
	"data": {
		"accounts": [
			{
				"id": "0xborrower1",
				"health": "0.83",
				"totalBorrowValueInUSD": "1000.5",
				"totalCollateralValueInUSD": "830.2",
				"tokens": [
					{
						"id": "0xjusdt-0xborrower1",
						"enteredMarket": false,
						"borrowBalanceUnderlying": "1000.5",
						"supplyBalanceUnderlying": "0",
						"market": {
							"symbol": "jUSDT",
							"collateralFactor": "0.8",
							"underlyingPriceUSD": "1.0",
							"exchangeRate": "0.02",
							"reserveFactor": "0.2",
							"underlyingSymbol": "USDT",
							"underlyingAddress": "0xusdt",
							"underlyingDecimals": 6
						}
					},
					{
						"id": "0xjlink-0xborrower1",
						"enteredMarket": true,
						"borrowBalanceUnderlying": "0",
						"supplyBalanceUnderlying": "55.34",
						"market": {
							"symbol": "jLINK",
							"collateralFactor": "0.6",
							"underlyingPriceUSD": "15.0",
							"exchangeRate": "0.02",
							"reserveFactor": "0.2",
							"underlyingSymbol": "LINK",
							"underlyingAddress": "0xlink",
							"underlyingDecimals": 18
						}
					}
				]
			}
		]
	}
}`

func TestFetchUnderwaterAccounts(t *testing.T) {
	var gotAuth string
	var gotBody graphqlRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(accountsFixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekret", testLogger())
	accounts, err := c.FetchUnderwaterAccounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer sekret", gotAuth)
	assert.Contains(t, gotBody.Query, "accounts(")
	assert.Equal(t, float64(defaultBatchSize), gotBody.Variables["first"])

	require.Len(t, accounts, 1)
	acct := accounts[0]
	assert.Equal(t, "0xborrower1", acct.Address)
	assert.InDelta(t, 0.83, acct.Health, 1e-9)
	assert.InDelta(t, 1000.5, acct.TotalBorrowValueUSD, 1e-9)
	assert.True(t, acct.IsLiquidatable())

	require.Len(t, acct.Positions, 2)
	borrow := acct.Positions[0]
	assert.Equal(t, "0xjusdt", borrow.MarketAddress())
	assert.Equal(t, "USDT", borrow.Market.UnderlyingSymbol)
	assert.Equal(t, 6, borrow.Market.UnderlyingDecimals)
	assert.InDelta(t, 1000.5, borrow.BorrowBalance, 1e-9)
	assert.Equal(t, "1000.5", borrow.BorrowBalanceRaw)
	assert.False(t, borrow.EnteredAsCollateral)

	supply := acct.Positions[1]
	assert.True(t, supply.EnteredAsCollateral)
	assert.InDelta(t, 55.34*15, supply.SupplyValueUSD(), 1e-6)
}

func TestFetchUnderwaterAccounts_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"indexer degraded"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testLogger())
	_, err := c.FetchUnderwaterAccounts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer degraded")
}

func TestFetchUnderwaterAccounts_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testLogger())
	_, err := c.FetchUnderwaterAccounts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchUnderwaterAccounts_NoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"accounts":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testLogger())
	accounts, err := c.FetchUnderwaterAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Empty(t, gotAuth)
}

func TestFetchUnderwaterAccounts_LogsMalformedFields(t *testing.T) {
	fixture := `{
		"data": {
			"accounts": [
				{
					"id": "0xborrower1",
					"health": "not-a-number",
					"totalBorrowValueInUSD": "1000.5",
					"totalCollateralValueInUSD": "830.2",
					"tokens": []
				}
			]
		}
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := NewClient(srv.URL, "", logger)
	accounts, err := c.FetchUnderwaterAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	assert.Contains(t, buf.String(), "malformed")
	assert.Contains(t, buf.String(), "fields=1")
}

func TestParseDecimal(t *testing.T) {
	f, ok := parseDecimal("0.83")
	assert.True(t, ok)
	assert.InDelta(t, 0.83, f, 1e-9)

	f, ok = parseDecimal("not a number")
	assert.False(t, ok)
	assert.Equal(t, 0.0, f)

	f, ok = parseDecimal("")
	assert.False(t, ok)
	assert.Equal(t, 0.0, f)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
