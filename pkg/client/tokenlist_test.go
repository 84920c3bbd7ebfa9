package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fast-swap/pkg/types"
)

const uniswapList = `{"name":"Uniswap Labs Default","tokens":[
 {"chainId":1,"address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","symbol":"USDC","decimals":6,"name":"USDCoin","logoURI":"https://x/usdc.png"},
 {"chainId":10,"address":"0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85","symbol":"USDC","decimals":6,"name":"USDCoin"},
 {"chainId":1,"address":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2","symbol":"WETH","decimals":18,"name":"Wrapped Ether"}
]}`

func TestTokensFiltersMainnetAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(uniswapList))
	}))
	defer srv.Close()

	c := NewTokenListClient(srv.URL, zap.NewNop())
	tokens, err := c.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "USDC", tokens[0].Symbol)
	assert.Equal(t, 6, tokens[0].Decimals)
	assert.Equal(t, "https://x/usdc.png", tokens[0].LogoURI)

	_, err = c.Tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestTokensUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewTokenListClient(srv.URL, zap.NewNop()).Tokens(context.Background())
	assert.Error(t, err)
}

func TestResolveToken(t *testing.T) {
	tokens := []types.Token{
		{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
		{Address: ZeroAddress, Symbol: "WETH", Decimals: 18},
	}

	tok, err := ResolveToken(tokens, "usdc")
	require.NoError(t, err)
	assert.Equal(t, 6, tok.Decimals)

	tok, err = ResolveToken(tokens, "ETH")
	require.NoError(t, err)
	assert.Equal(t, WETHAddress, tok.Address)

	tok, err = ResolveToken(nil, "eth")
	require.NoError(t, err)
	assert.Equal(t, WETHAddress, tok.Address)

	_, err = ResolveToken(tokens, "DOGE")
	assert.Error(t, err)
}

func TestTokenPrice(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		switch r.URL.Query().Get("ids") {
		case "ethereum":
			_, _ = w.Write([]byte(`{"ethereum":{"usd":3120.55}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := NewPriceClient(srv.URL, "", zap.NewNop())
	price, err := c.EthPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3120.55", price.String())

	price, err = c.TokenPrice(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "3120.55", price.String())
	assert.Equal(t, int32(1), hits.Load())

	_, err = c.TokenPrice(context.Background(), "NOPE")
	assert.Error(t, err)

	_, err = c.TokenPrice(context.Background(), "")
	assert.Error(t, err)
}

func TestCoinID(t *testing.T) {
	assert.Equal(t, "usd-coin", CoinID("usdc"))
	assert.Equal(t, "zzz", CoinID("ZZZ"))
}
