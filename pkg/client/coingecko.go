package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const priceTTL = time.Minute

// coinGeckoIDs maps the symbols the swap UI lists to CoinGecko coin ids
var coinGeckoIDs = map[string]string{
	"ETH":  "ethereum",
	"WETH": "weth",
	"USDC": "usd-coin",
	"USDT": "tether",
	"DAI":  "dai",
	"WBTC": "wrapped-bitcoin",
	"BTC":  "bitcoin",
	"UNI":  "uniswap",
	"LINK": "chainlink",
	"AAVE": "aave",
	"MKR":  "maker",
	"COMP": "compound-governance-token",
	"ARB":  "arbitrum",
	"OP":   "optimism",
	"SHIB": "shiba-inu",
	"PEPE": "pepe",
	"LDO":  "lido-dao",
	"CRV":  "curve-dao-token",
}

// PriceClient fetches USD prices from CoinGecko
type PriceClient struct {
	baseURL string
	apiKey  string
	http    httpDoer
	cache   *ttlcache.Cache[string, decimal.Decimal]
}

// NewPriceClient creates a price client with a one minute cache
func NewPriceClient(baseURL, apiKey string, logger *zap.Logger) *PriceClient {
	return &PriceClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    newHTTPDoer("coingecko", logger),
		cache: ttlcache.New[string, decimal.Decimal](
			ttlcache.WithTTL[string, decimal.Decimal](priceTTL),
			ttlcache.WithDisableTouchOnHit[string, decimal.Decimal](),
		),
	}
}

// CoinID returns the CoinGecko id for symbol, falling back to the
// lowercase symbol
func CoinID(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if id, ok := coinGeckoIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// TokenPrice returns the USD price of symbol
func (c *PriceClient) TokenPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("symbol is required")
	}
	if item := c.cache.Get(symbol); item != nil {
		return item.Value(), nil
	}

	id := CoinID(symbol)
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(id))

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": c.apiKey}
	}

	var prices map[string]map[string]decimal.Decimal
	if err := c.http.getJSON(ctx, u, headers, &prices); err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch %s price: %w", symbol, err)
	}

	price, ok := prices[id]["usd"]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("no price for %s", symbol)
	}

	c.cache.Set(symbol, price, ttlcache.DefaultTTL)
	return price, nil
}

// EthPrice returns the USD price of ETH
func (c *PriceClient) EthPrice(ctx context.Context) (decimal.Decimal, error) {
	return c.TokenPrice(ctx, "ETH")
}

// StartJanitor runs expired-item cleanup until ctx is done
func (c *PriceClient) StartJanitor(ctx context.Context) {
	go c.cache.Start()
	go func() {
		<-ctx.Done()
		c.cache.Stop()
	}()
}
