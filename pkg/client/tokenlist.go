package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"fast-swap/pkg/types"
)

const (
	WETHAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	tokenListTTL = time.Hour
	tokenListKey = "mainnet"
	mainnetChain = 1
)

type uniswapTokenList struct {
	Tokens []struct {
		ChainID  int    `json:"chainId"`
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
		LogoURI  string `json:"logoURI"`
		Name     string `json:"name"`
	} `json:"tokens"`
}

// TokenListClient fetches and caches the Uniswap default token list
type TokenListClient struct {
	url   string
	http  httpDoer
	cache *ttlcache.Cache[string, []types.Token]
}

// NewTokenListClient creates a token list client with a one hour cache
func NewTokenListClient(url string, logger *zap.Logger) *TokenListClient {
	return &TokenListClient{
		url:  url,
		http: newHTTPDoer("tokenlist", logger),
		cache: ttlcache.New[string, []types.Token](
			ttlcache.WithTTL[string, []types.Token](tokenListTTL),
			ttlcache.WithDisableTouchOnHit[string, []types.Token](),
		),
	}
}

// Tokens returns mainnet tokens, from cache when fresh
func (c *TokenListClient) Tokens(ctx context.Context) ([]types.Token, error) {
	if item := c.cache.Get(tokenListKey); item != nil {
		return item.Value(), nil
	}

	var list uniswapTokenList
	if err := c.http.getJSON(ctx, c.url, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch token list: %w", err)
	}

	tokens := make([]types.Token, 0, len(list.Tokens))
	for _, t := range list.Tokens {
		if t.ChainID != mainnetChain {
			continue
		}
		tokens = append(tokens, types.Token{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
			LogoURI:  t.LogoURI,
			Name:     t.Name,
		})
	}

	c.cache.Set(tokenListKey, tokens, ttlcache.DefaultTTL)
	return tokens, nil
}

// Resolve finds a token by symbol. ETH and the zero address resolve to
// WETH since swaps settle in the wrapped token.
func (c *TokenListClient) Resolve(ctx context.Context, symbol string) (*types.Token, error) {
	tokens, err := c.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveToken(tokens, symbol)
}

// ResolveToken looks symbol up in tokens, case-insensitively
func ResolveToken(tokens []types.Token, symbol string) (*types.Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "ETH" {
		symbol = "WETH"
	}

	for _, t := range tokens {
		if strings.ToUpper(t.Symbol) != symbol {
			continue
		}
		found := t
		if strings.EqualFold(found.Address, ZeroAddress) {
			found.Address = WETHAddress
		}
		return &found, nil
	}

	if symbol == "WETH" {
		return &types.Token{Address: WETHAddress, Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"}, nil
	}
	return nil, fmt.Errorf("token '%s' not found", symbol)
}

// StartJanitor runs expired-item cleanup until ctx is done
func (c *TokenListClient) StartJanitor(ctx context.Context) {
	go c.cache.Start()
	go func() {
		<-ctx.Done()
		c.cache.Stop()
	}()
}
