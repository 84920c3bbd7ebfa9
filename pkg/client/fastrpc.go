package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// FastRPCClient talks to the FastRPC status API
type FastRPCClient struct {
	baseURL string
	token   string
	http    httpDoer
}

// UserTransactions is the per-wallet counter pair FastRPC keeps
type UserTransactions struct {
	TxnCount  int64 `json:"txn_count"`
	SwapCount int64 `json:"swap_count"`
}

// NewFastRPCClient creates a FastRPC client
func NewFastRPCClient(baseURL, token string, logger *zap.Logger) *FastRPCClient {
	return &FastRPCClient{
		baseURL: baseURL,
		token:   token,
		http:    newHTTPDoer("fastrpc", logger),
	}
}

// Configured reports whether an API token is set
func (c *FastRPCClient) Configured() bool {
	return c.token != ""
}

// TransactionStatus returns the raw status document for hash
func (c *FastRPCClient) TransactionStatus(ctx context.Context, hash string) (json.RawMessage, error) {
	if hash == "" {
		return nil, fmt.Errorf("transaction hash is required")
	}

	body, _, err := c.http.do(ctx, http.MethodGet, c.baseURL+"/status/"+url.PathEscape(hash), bearer(c.token), nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("fastrpc returned invalid JSON for %s", hash)
	}
	return json.RawMessage(body), nil
}

// UserTransactions returns transaction counters for a lowercase address
func (c *FastRPCClient) UserTransactions(ctx context.Context, address string) (*UserTransactions, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("fastrpc API token: %w", ErrNotConfigured)
	}

	var out UserTransactions
	u := c.baseURL + "/user-transactions?address=" + url.QueryEscape(address)
	if err := c.http.getJSON(ctx, u, bearer(c.token), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
