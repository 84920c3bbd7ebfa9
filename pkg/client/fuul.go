package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// FuulClient proxies the Fuul referral API
type FuulClient struct {
	baseURL string
	apiKey  string
	http    httpDoer
}

// IdentifyUserRequest is the body of the identify-user route
type IdentifyUserRequest struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifierType"`
	TrackingID     string `json:"trackingId"`
	AccountChainID *int64 `json:"accountChainId,omitempty"`
}

type fuulEvent struct {
	Metadata       fuulMetadata `json:"metadata"`
	Name           string       `json:"name"`
	User           fuulUser     `json:"user"`
	AccountChainID *int64       `json:"account_chain_id,omitempty"`
}

type fuulMetadata struct {
	TrackingID string `json:"tracking_id"`
}

type fuulUser struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifier_type"`
}

// NewFuulClient creates a Fuul client
func NewFuulClient(baseURL, apiKey string, logger *zap.Logger) *FuulClient {
	return &FuulClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    newHTTPDoer("fuul", logger),
	}
}

// Configured reports whether an API key is set
func (c *FuulClient) Configured() bool {
	return c.apiKey != ""
}

// PayoutsSummary returns the payout summary document for currency
func (c *FuulClient) PayoutsSummary(ctx context.Context, currency string) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("fuul API key: %w", ErrNotConfigured)
	}
	if currency == "" {
		currency = "point"
	}

	headers := bearer(c.apiKey)
	headers["Accept"] = "application/json"

	body, _, err := c.http.do(ctx, http.MethodGet, c.baseURL+"/payouts/summary?currency="+url.QueryEscape(currency), headers, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse response from Fuul API")
	}
	return json.RawMessage(body), nil
}

// IdentifyUser records a connect_wallet event. An empty result means Fuul
// answered without a JSON body.
func (c *FuulClient) IdentifyUser(ctx context.Context, req IdentifyUserRequest) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("fuul API key: %w", ErrNotConfigured)
	}

	event := fuulEvent{
		Metadata: fuulMetadata{TrackingID: req.TrackingID},
		Name:     "connect_wallet",
		User: fuulUser{
			Identifier:     req.Identifier,
			IdentifierType: "evm_address",
		},
		AccountChainID: req.AccountChainID,
	}

	body, status, err := c.http.do(ctx, http.MethodPost, c.baseURL+"/events", bearer(c.apiKey), event)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(body) == 0 || !json.Valid(body) {
		return nil, nil
	}
	return json.RawMessage(body), nil
}
